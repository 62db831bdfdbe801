package service

import (
	"testing"

	"github.com/zhenghaoli/qacollab/internal/apperr"
)

func TestEvenSplit(t *testing.T) {
	tests := []struct {
		name       string
		total      int
		adminFront int
		userIDs    []int64
		want       []IndexRange
		wantCode   apperr.Code
	}{
		{
			name:    "exact division",
			total:   10,
			userIDs: []int64{3, 2},
			want: []IndexRange{
				{UserID: 2, Start: 0, End: 4},
				{UserID: 3, Start: 5, End: 9},
			},
		},
		{
			name:    "remainder goes to first users",
			total:   10,
			userIDs: []int64{2, 3, 4},
			want: []IndexRange{
				{UserID: 2, Start: 0, End: 3},
				{UserID: 3, Start: 4, End: 6},
				{UserID: 4, Start: 7, End: 9},
			},
		},
		{
			name:       "admin front block",
			total:      10,
			adminFront: 4,
			userIDs:    []int64{2, 3},
			want: []IndexRange{
				{UserID: 1, Start: 0, End: 3},
				{UserID: 2, Start: 4, End: 6},
				{UserID: 3, Start: 7, End: 9},
			},
		},
		{
			name:       "admin listed among users keeps only front block",
			total:      10,
			adminFront: 4,
			userIDs:    []int64{1, 2},
			want: []IndexRange{
				{UserID: 1, Start: 0, End: 3},
				{UserID: 2, Start: 4, End: 9},
			},
		},
		{
			name:       "admin alone with front block",
			total:      10,
			adminFront: 4,
			userIDs:    []int64{1},
			wantCode:   apperr.CodeNoUsers,
		},
		{
			name:    "single user takes everything",
			total:   7,
			userIDs: []int64{5},
			want: []IndexRange{
				{UserID: 5, Start: 0, End: 6},
			},
		},
		{
			name:     "no users",
			total:    10,
			userIDs:  nil,
			wantCode: apperr.CodeNoUsers,
		},
		{
			name:       "admin front exceeds total",
			total:      5,
			adminFront: 6,
			userIDs:    []int64{2},
			wantCode:   apperr.CodeInvalidRange,
		},
		{
			name:     "more users than records",
			total:    2,
			userIDs:  []int64{2, 3, 4},
			wantCode: apperr.CodeOverAssignment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evenSplit(tt.total, 1, tt.adminFront, tt.userIDs)
			if tt.wantCode != "" {
				if err == nil {
					t.Fatalf("expected %s, got ranges %+v", tt.wantCode, got)
				}
				if !apperr.IsCode(err, tt.wantCode) {
					t.Fatalf("expected code %s, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d ranges, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("range %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestEvenSplitCoversEveryIndexOnce(t *testing.T) {
	for _, total := range []int{3, 10, 17, 100} {
		ranges, err := evenSplit(total, 1, 0, []int64{2, 3, 4})
		if err != nil {
			t.Fatalf("total %d: %v", total, err)
		}
		covered := make([]int, total)
		for _, r := range ranges {
			for i := r.Start; i <= r.End; i++ {
				covered[i]++
			}
		}
		for i, c := range covered {
			if c != 1 {
				t.Fatalf("total %d: index %d covered %d times", total, i, c)
			}
		}
	}
}

func TestValidateManualSplit(t *testing.T) {
	allowed := []int64{2, 3}

	tests := []struct {
		name     string
		total    int
		ranges   []IndexRange
		wantCode apperr.Code
	}{
		{
			name:  "valid with gap",
			total: 10,
			ranges: []IndexRange{
				{UserID: 2, Start: 0, End: 3},
				{UserID: 3, Start: 6, End: 9},
			},
		},
		{
			name:  "valid full coverage",
			total: 10,
			ranges: []IndexRange{
				{UserID: 2, Start: 0, End: 4},
				{UserID: 3, Start: 5, End: 9},
			},
		},
		{
			name:  "unknown user",
			total: 10,
			ranges: []IndexRange{
				{UserID: 9, Start: 0, End: 4},
			},
			wantCode: apperr.CodeInvalidUser,
		},
		{
			name:  "end before start",
			total: 10,
			ranges: []IndexRange{
				{UserID: 2, Start: 5, End: 2},
			},
			wantCode: apperr.CodeInvalidRange,
		},
		{
			name:  "end past dataset",
			total: 10,
			ranges: []IndexRange{
				{UserID: 2, Start: 0, End: 10},
			},
			wantCode: apperr.CodeInvalidRange,
		},
		{
			name:  "negative start",
			total: 10,
			ranges: []IndexRange{
				{UserID: 2, Start: -1, End: 4},
			},
			wantCode: apperr.CodeInvalidRange,
		},
		{
			name:  "overlapping ranges",
			total: 10,
			ranges: []IndexRange{
				{UserID: 2, Start: 0, End: 5},
				{UserID: 3, Start: 5, End: 9},
			},
			wantCode: apperr.CodeRangeOverlap,
		},
		{
			name:  "sum exceeds total",
			total: 6,
			ranges: []IndexRange{
				{UserID: 2, Start: 0, End: 3},
				{UserID: 3, Start: 2, End: 5},
			},
			wantCode: apperr.CodeOverAssignment,
		},
		{
			name:  "same user holds two ranges",
			total: 10,
			ranges: []IndexRange{
				{UserID: 2, Start: 0, End: 2},
				{UserID: 2, Start: 4, End: 6},
			},
			wantCode: apperr.CodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateManualSplit(tt.total, tt.ranges, allowed)
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperr.IsCode(err, tt.wantCode) {
				t.Fatalf("expected code %s, got %v", tt.wantCode, err)
			}
		})
	}
}
