package service

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/zhenghaoli/qacollab/internal/apperr"
)

func TestExportJSONL(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 4)
	assignAll(t, ctx, f, task.ID)

	// Edit one record and delete another before exporting.
	page, _ := f.draftSvc.GetWorkingPage(ctx, userA, task.ID, 1, 0)
	edited := "corrected question"
	if _, err := f.draftSvc.SaveDraft(ctx, userA, task.ID, SaveDraftInput{
		RecordID: page.Records[1].Record.ID,
		Prompt:   &edited,
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if err := f.draftSvc.MarkDeleted(ctx, userA, task.ID, page.Records[3].Record.ID); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}
	submit(t, ctx, f, userA, task.ID)

	svc := NewExportService(f.tasks, f.records, t.TempDir(), nopLogger{})
	artifact, err := svc.ExportJSONL(ctx, admin, task.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if artifact.Records != 3 {
		t.Errorf("expected 3 exported records, got %d", artifact.Records)
	}

	file, err := os.Open(artifact.Path)
	if err != nil {
		t.Fatalf("open export: %v", err)
	}
	defer file.Close()

	var lines []exportedRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line exportedRecord
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("bad line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	// Ascending index order, deleted record absent.
	for i := 1; i < len(lines); i++ {
		if lines[i].Index <= lines[i-1].Index {
			t.Errorf("lines out of order: %d before %d", lines[i-1].Index, lines[i].Index)
		}
	}
	for _, line := range lines {
		if line.Index == 3 {
			t.Error("deleted record exported")
		}
		if line.Index == 1 && line.Prompt != edited {
			t.Errorf("expected edited prompt for index 1, got %q", line.Prompt)
		}
		if line.EditedBy == nil || *line.EditedBy != userA.ID {
			t.Errorf("index %d missing editor stamp", line.Index)
		}
	}
}

func TestExportExcel(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 3)

	svc := NewExportService(f.tasks, f.records, t.TempDir(), nopLogger{})
	artifact, err := svc.ExportExcel(ctx, admin, task.ID)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if artifact.Records != 3 {
		t.Errorf("expected 3 exported records, got %d", artifact.Records)
	}
	if info, err := os.Stat(artifact.Path); err != nil || info.Size() == 0 {
		t.Errorf("expected non-empty workbook at %s: %v", artifact.Path, err)
	}
}

func TestExportManagerOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 3)
	assignAll(t, ctx, f, task.ID)

	svc := NewExportService(f.tasks, f.records, t.TempDir(), nopLogger{})
	if _, err := svc.ExportJSONL(ctx, userA, task.ID); !apperr.IsCode(err, apperr.CodeForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

// assignAll hands the whole dataset to userA.
func assignAll(t *testing.T, ctx context.Context, f *fixture, taskID int64) {
	t.Helper()
	if _, err := f.assignSvc.Assign(ctx, admin, taskID, AssignInput{
		Strategy: StrategyEven,
		UserIDs:  []int64{userA.ID},
	}); err != nil {
		t.Fatalf("assign: %v", err)
	}
}
