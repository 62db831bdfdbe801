package service

import (
	"context"
	"testing"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

func TestSubmitFoldsDraftsIntoRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 10)
	assignTwoUsers(t, ctx, f, task.ID)

	page, err := f.draftSvc.GetWorkingPage(ctx, userA, task.ID, 1, 0)
	if err != nil {
		t.Fatalf("working page: %v", err)
	}

	edited := page.Records[0].Record
	deleted := page.Records[1].Record
	newPrompt := "better question"
	if _, err := f.draftSvc.SaveDraft(ctx, userA, task.ID, SaveDraftInput{
		RecordID: edited.ID,
		Prompt:   &newPrompt,
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if err := f.draftSvc.MarkDeleted(ctx, userA, task.ID, deleted.ID); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	result := submit(t, ctx, f, userA, task.ID)
	if result.EditedCount != 1 {
		t.Errorf("expected 1 edit, got %d", result.EditedCount)
	}
	if result.DeletedCount != 1 {
		t.Errorf("expected 1 deletion, got %d", result.DeletedCount)
	}
	if result.TaskCompleted {
		t.Error("task must not complete while user B is open")
	}

	// Canonical record carries the draft content and the editor stamp.
	rec, _ := f.records.GetByID(ctx, edited.ID)
	if rec.Prompt != newPrompt {
		t.Errorf("expected folded prompt %q, got %q", newPrompt, rec.Prompt)
	}
	if rec.Completion != edited.Completion {
		t.Errorf("untouched completion changed: %q", rec.Completion)
	}
	if rec.EditedBy == nil || *rec.EditedBy != userA.ID {
		t.Errorf("expected editor %d, got %+v", userA.ID, rec.EditedBy)
	}

	// The marked record is soft-deleted for real.
	rec, _ = f.records.GetByID(ctx, deleted.ID)
	if !rec.IsDeleted {
		t.Error("expected soft-deleted record")
	}

	// Untouched records in the range still get the reviewer stamp.
	rec, _ = f.records.GetByID(ctx, page.Records[2].Record.ID)
	if rec.EditedBy == nil || *rec.EditedBy != userA.ID {
		t.Errorf("expected reviewer stamp on untouched record, got %+v", rec.EditedBy)
	}

	// Drafts are gone and the assignment is completed.
	if drafts, _ := f.drafts.ListByTaskUser(ctx, task.ID, userA.ID); len(drafts) != 0 {
		t.Errorf("expected cleared drafts, got %d", len(drafts))
	}
	a, _ := f.assigns.GetByTaskAndUser(ctx, task.ID, userA.ID)
	if a.Status != entity.AssignmentStatusCompleted {
		t.Errorf("expected completed assignment, got %s", a.Status)
	}
}

func TestSubmitWritesSummaryWithOriginals(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 10)
	assignTwoUsers(t, ctx, f, task.ID)

	page, _ := f.draftSvc.GetWorkingPage(ctx, userA, task.ID, 1, 0)
	target := page.Records[0].Record
	originalPrompt := target.Prompt
	newPrompt := "rephrased"
	if _, err := f.draftSvc.SaveDraft(ctx, userA, task.ID, SaveDraftInput{
		RecordID: target.ID,
		Prompt:   &newPrompt,
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}
	if err := f.draftSvc.MarkDeleted(ctx, userA, task.ID, page.Records[1].Record.ID); err != nil {
		t.Fatalf("mark deleted: %v", err)
	}

	submit(t, ctx, f, userA, task.ID)

	items, total, _ := f.summary.ListByTask(ctx, task.ID, 0, 0)
	// 5 records in the range, one marked deleted.
	if total != 4 {
		t.Fatalf("expected 4 summary rows, got %d", total)
	}
	modified := 0
	for _, item := range items {
		if item.RecordID == target.ID {
			if item.OriginalPrompt != originalPrompt {
				t.Errorf("summary lost original prompt: %q", item.OriginalPrompt)
			}
			if item.EditedPrompt != newPrompt {
				t.Errorf("summary missed edited prompt: %q", item.EditedPrompt)
			}
			if !item.IsModified {
				t.Error("edited row not flagged modified")
			}
		}
		if item.IsModified {
			modified++
		}
	}
	if modified != 1 {
		t.Errorf("expected exactly 1 modified row, got %d", modified)
	}
}

func TestSubmitIdempotence(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 10)
	assignTwoUsers(t, ctx, f, task.ID)

	submit(t, ctx, f, userA, task.ID)

	_, err := f.submitSvc.Submit(ctx, userA, task.ID)
	if !apperr.IsCode(err, apperr.CodeAlreadyCompleted) {
		t.Fatalf("expected ALREADY_COMPLETED, got %v", err)
	}
}

func TestSubmitRequiresAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 10)
	assignTwoUsers(t, ctx, f, task.ID)

	if _, err := f.submitSvc.Submit(ctx, userC, task.ID); !apperr.IsCode(err, apperr.CodeNotAssigned) {
		t.Fatalf("expected NOT_ASSIGNED, got %v", err)
	}
	if _, err := f.submitSvc.Submit(ctx, userA, 999); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestLastSubmitterCompletesTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 10)
	assignTwoUsers(t, ctx, f, task.ID)

	first := submit(t, ctx, f, userA, task.ID)
	if first.TaskCompleted {
		t.Error("first submit must not complete the task")
	}
	got, _ := f.tasks.GetByID(ctx, task.ID)
	if got.Status != entity.TaskStatusInProgress {
		t.Errorf("expected in_progress, got %s", got.Status)
	}

	second := submit(t, ctx, f, userB, task.ID)
	if !second.TaskCompleted {
		t.Error("last submit must complete the task")
	}
	got, _ = f.tasks.GetByID(ctx, task.ID)
	if got.Status != entity.TaskStatusCompleted {
		t.Errorf("expected completed, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}

	notes := f.notifier.byType(entity.NotifyTaskCompleted)
	if len(notes) != 1 || notes[0].UserID != admin.ID {
		t.Errorf("expected one completion notification for the creator, got %+v", notes)
	}
}

func TestSubmitAfterRejectResubmits(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 10)
	assignTwoUsers(t, ctx, f, task.ID)
	submit(t, ctx, f, userA, task.ID)
	submit(t, ctx, f, userB, task.ID)

	if err := f.taskSvc.Reject(ctx, admin, task.ID, userA.ID, "check record 3"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	// The rejected assignee can rework and submit again; the summary row is
	// overwritten rather than duplicated.
	page, _ := f.draftSvc.GetWorkingPage(ctx, userA, task.ID, 1, 0)
	reworked := "fixed on rework"
	if _, err := f.draftSvc.SaveDraft(ctx, userA, task.ID, SaveDraftInput{
		RecordID:   page.Records[0].Record.ID,
		Completion: &reworked,
	}); err != nil {
		t.Fatalf("save draft: %v", err)
	}

	result := submit(t, ctx, f, userA, task.ID)
	if !result.TaskCompleted {
		t.Error("resubmit of the only open assignment must complete the task")
	}

	a, _ := f.assigns.GetByTaskAndUser(ctx, task.ID, userA.ID)
	if a.Status != entity.AssignmentStatusCompleted {
		t.Errorf("expected completed, got %s", a.Status)
	}
	if a.RejectReason != "" || a.RejectedBy != nil {
		t.Errorf("rejection metadata survived resubmit: %q %+v", a.RejectReason, a.RejectedBy)
	}

	_, total, _ := f.summary.ListByTask(ctx, task.ID, 0, 0)
	if total != 10 {
		t.Errorf("expected 10 summary rows after both ranges submitted, got %d", total)
	}
}

func TestSubmitSpreadAcrossTwoUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	task := f.seedTask(ctx, 10)
	assignTwoUsers(t, ctx, f, task.ID)

	submit(t, ctx, f, userA, task.ID)

	progress, err := f.progressSvc.GetProgress(ctx, admin, task.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if progress.TotalAssignments != 2 || progress.CompletedAssignments != 1 {
		t.Errorf("expected 1/2 complete, got %d/%d", progress.CompletedAssignments, progress.TotalAssignments)
	}
	if progress.CompletionRate != 0.5 {
		t.Errorf("expected rate 0.5, got %v", progress.CompletionRate)
	}
}
