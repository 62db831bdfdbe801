package service

import (
	"sort"

	"github.com/zhenghaoli/qacollab/internal/apperr"
)

// IndexRange is one inclusive slice of the dataset handed to a user.
type IndexRange struct {
	UserID int64 `json:"user_id"`
	Start  int   `json:"start"`
	End    int   `json:"end"`
}

// Len returns the number of records covered by the range.
func (r IndexRange) Len() int {
	return r.End - r.Start + 1
}

// evenSplit partitions [0, total) across the users, optionally reserving the
// first adminFront records for the admin. When a front block is reserved the
// admin is excluded from the worker set even if listed among the users. The
// function is deterministic: users are processed in ascending ID order, block
// sizes differ by at most one, and the first (total-adminFront) mod len(users)
// users receive the larger block.
func evenSplit(total int, adminID int64, adminFront int, userIDs []int64) ([]IndexRange, error) {
	if adminFront < 0 || adminFront > total {
		return nil, apperr.New(apperr.CodeInvalidRange,
			"admin front block %d outside dataset of %d records", adminFront, total)
	}

	// The front block is the admin's whole share. Drop the admin from the
	// worker set so no user ends up holding two assignments for one task.
	seen := make(map[int64]bool, len(userIDs))
	sorted := make([]int64, 0, len(userIDs))
	for _, id := range userIDs {
		if seen[id] || (adminFront > 0 && id == adminID) {
			continue
		}
		seen[id] = true
		sorted = append(sorted, id)
	}
	if len(sorted) == 0 {
		return nil, apperr.New(apperr.CodeNoUsers, "no users to assign")
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	remaining := total - adminFront
	if remaining < len(sorted) {
		return nil, apperr.New(apperr.CodeOverAssignment,
			"%d users but only %d records to split", len(sorted), remaining)
	}

	var ranges []IndexRange
	cursor := 0
	if adminFront > 0 {
		ranges = append(ranges, IndexRange{UserID: adminID, Start: 0, End: adminFront - 1})
		cursor = adminFront
	}

	base := remaining / len(sorted)
	extra := remaining % len(sorted)
	for i, userID := range sorted {
		size := base
		if i < extra {
			size++
		}
		ranges = append(ranges, IndexRange{UserID: userID, Start: cursor, End: cursor + size - 1})
		cursor += size
	}

	return ranges, nil
}

// validateManualSplit checks admin-supplied ranges against the dataset size
// and the resolved assignee set. Gaps are allowed; overlaps are not, each
// user may hold at most one range, and the covered total may not exceed the
// dataset.
func validateManualSplit(total int, ranges []IndexRange, allowed []int64) error {
	if len(ranges) == 0 {
		return apperr.New(apperr.CodeNoUsers, "no ranges to assign")
	}

	allowedSet := make(map[int64]bool, len(allowed))
	for _, id := range allowed {
		allowedSet[id] = true
	}

	covered := 0
	seen := make(map[int64]bool, len(ranges))
	for _, r := range ranges {
		if !allowedSet[r.UserID] {
			return apperr.New(apperr.CodeInvalidUser, "user %d is not an assignable user", r.UserID)
		}
		if seen[r.UserID] {
			return apperr.New(apperr.CodeInvalidRequest,
				"user %d appears in more than one range", r.UserID)
		}
		seen[r.UserID] = true
		if r.Start < 0 || r.End >= total || r.Start > r.End {
			return apperr.New(apperr.CodeInvalidRange,
				"range [%d, %d] invalid for dataset of %d records", r.Start, r.End, total)
		}
		covered += r.Len()
	}
	if covered > total {
		return apperr.New(apperr.CodeOverAssignment,
			"ranges cover %d records but dataset has %d", covered, total)
	}

	byStart := make([]IndexRange, len(ranges))
	copy(byStart, ranges)
	sort.Slice(byStart, func(i, j int) bool { return byStart[i].Start < byStart[j].Start })
	for i := 1; i < len(byStart); i++ {
		if byStart[i].Start <= byStart[i-1].End {
			return apperr.New(apperr.CodeRangeOverlap,
				"range [%d, %d] overlaps [%d, %d]",
				byStart[i].Start, byStart[i].End, byStart[i-1].Start, byStart[i-1].End)
		}
	}

	return nil
}
