package service

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/zhenghaoli/qacollab/internal/application/port"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// In-memory fakes implementing the port interfaces. They keep real state so
// multi-step flows (assign, edit, submit, reject) behave like the SQL
// implementations do.

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type fakeTxManager struct{}

func (fakeTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []*entity.Notification
}

func (n *fakeNotifier) Notify(ctx context.Context, notification *entity.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
}

func (n *fakeNotifier) byType(eventType string) []*entity.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*entity.Notification
	for _, s := range n.sent {
		if s.Type == eventType {
			out = append(out, s)
		}
	}
	return out
}

type fakeIdentity struct{}

func (fakeIdentity) ResolveAssignees(ctx context.Context, actor entity.Actor, userIDs, groupIDs []int64) ([]int64, error) {
	seen := make(map[int64]bool)
	var out []int64
	for _, id := range userIDs {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

type fakeTaskRepo struct {
	mu      sync.Mutex
	nextID  int64
	tasks   map[int64]*entity.Task
	assigns *fakeAssignmentRepo
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[int64]*entity.Task)}
}

func (r *fakeTaskRepo) Create(ctx context.Context, task *entity.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	task.ID = r.nextID
	task.CreatedAt = time.Now()
	task.UpdatedAt = task.CreatedAt
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

func (r *fakeTaskRepo) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

func (r *fakeTaskRepo) List(ctx context.Context, filter port.TaskFilter) ([]*entity.Task, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Task
	for _, task := range r.tasks {
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		// Mirrors the SQL repository: when both owner filters are set the
		// union is returned, otherwise each restricts on its own.
		switch {
		case filter.CreatedBy != 0 && filter.AssignedTo != 0:
			if task.CreatedBy != filter.CreatedBy && !r.assigns.hasAssignment(task.ID, filter.AssignedTo) {
				continue
			}
		case filter.CreatedBy != 0:
			if task.CreatedBy != filter.CreatedBy {
				continue
			}
		case filter.AssignedTo != 0:
			if !r.assigns.hasAssignment(task.ID, filter.AssignedTo) {
				continue
			}
		}
		copied := *task
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (r *fakeTaskRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[id]; ok {
		task.Status = status
	}
	return nil
}

func (r *fakeTaskRepo) SetCompleted(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[id]; ok {
		task.Status = entity.TaskStatusCompleted
		task.CompletedAt = &at
	}
	return nil
}

func (r *fakeTaskRepo) SetFinalized(ctx context.Context, id int64, by int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[id]; ok {
		task.Status = entity.TaskStatusFinalized
		task.FinalizedAt = &at
		task.FinalizedBy = &by
	}
	return nil
}

func (r *fakeTaskRepo) ClearCompletion(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task, ok := r.tasks[id]; ok {
		task.Status = entity.TaskStatusInProgress
		task.CompletedAt = nil
		task.FinalizedAt = nil
		task.FinalizedBy = nil
	}
	return nil
}

func (r *fakeTaskRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	return nil
}

type fakeFileRepo struct {
	mu     sync.Mutex
	nextID int64
	files  map[int64]*entity.DatasetFile
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: make(map[int64]*entity.DatasetFile)}
}

func (r *fakeFileRepo) Create(ctx context.Context, file *entity.DatasetFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	file.ID = r.nextID
	copied := *file
	r.files[file.ID] = &copied
	return nil
}

func (r *fakeFileRepo) GetByID(ctx context.Context, id int64) (*entity.DatasetFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.files[id]
	if !ok {
		return nil, nil
	}
	copied := *file
	return &copied, nil
}

func (r *fakeFileRepo) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, id)
	return nil
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	nextID      int64
	assignments map[int64]*entity.Assignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{assignments: make(map[int64]*entity.Assignment)}
}

func (r *fakeAssignmentRepo) hasAssignment(taskID, userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.TaskID == taskID && a.AssignedTo == userID {
			return true
		}
	}
	return false
}

func (r *fakeAssignmentRepo) Create(ctx context.Context, a *entity.Assignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	a.ID = r.nextID
	if a.Status == "" {
		a.Status = entity.AssignmentStatusPending
	}
	copied := *a
	r.assignments[a.ID] = &copied
	return nil
}

func (r *fakeAssignmentRepo) GetByID(ctx context.Context, id int64) (*entity.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAssignmentRepo) GetByTaskAndUser(ctx context.Context, taskID, userID int64) (*entity.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.TaskID == taskID && a.AssignedTo == userID {
			copied := *a
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeAssignmentRepo) ListByTask(ctx context.Context, taskID int64) ([]*entity.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Assignment
	for _, a := range r.assignments {
		if a.TaskID == taskID {
			copied := *a
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartIndex < out[j].StartIndex })
	return out, nil
}

func (r *fakeAssignmentRepo) DeleteByTask(ctx context.Context, taskID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, a := range r.assignments {
		if a.TaskID == taskID {
			delete(r.assignments, id)
		}
	}
	return nil
}

func (r *fakeAssignmentRepo) MarkStarted(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assignments[id]; ok && a.Status == entity.AssignmentStatusPending {
		a.Status = entity.AssignmentStatusInProgress
		a.StartedAt = &at
	}
	return nil
}

func (r *fakeAssignmentRepo) CompleteIfOpen(ctx context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok || a.Status == entity.AssignmentStatusCompleted {
		return false, nil
	}
	a.Status = entity.AssignmentStatusCompleted
	a.CompletedAt = &at
	a.RejectedAt = nil
	a.RejectedBy = nil
	a.RejectReason = ""
	return true, nil
}

func (r *fakeAssignmentRepo) Reject(ctx context.Context, id int64, by int64, reason string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assignments[id]; ok {
		a.Status = entity.AssignmentStatusRejected
		a.RejectedAt = &at
		a.RejectedBy = &by
		a.RejectReason = reason
	}
	return nil
}

func (r *fakeAssignmentRepo) Reset(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assignments[id]; ok {
		if a.Status == entity.AssignmentStatusCompleted || a.Status == entity.AssignmentStatusRejected {
			a.Status = entity.AssignmentStatusInProgress
			a.CompletedAt = nil
			a.RejectedAt = nil
			a.RejectedBy = nil
			a.RejectReason = ""
		}
	}
	return nil
}

func (r *fakeAssignmentRepo) ListOverdue(ctx context.Context, now time.Time) ([]*entity.OverdueAssignment, error) {
	return nil, nil
}

type fakeRecordRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*entity.QARecord
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[int64]*entity.QARecord)}
}

func (r *fakeRecordRepo) BulkCreate(ctx context.Context, fileID int64, records []*entity.QARecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range records {
		r.nextID++
		rec.ID = r.nextID
		rec.FileID = fileID
		rec.IndexInFile = i
		copied := *rec
		r.records[rec.ID] = &copied
	}
	return nil
}

func (r *fakeRecordRepo) GetByID(ctx context.Context, id int64) (*entity.QARecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (r *fakeRecordRepo) ListRange(ctx context.Context, fileID int64, rng port.RecordRange, includeDeleted bool) ([]*entity.QARecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.QARecord
	for _, rec := range r.records {
		if rec.FileID != fileID {
			continue
		}
		if !includeDeleted && rec.IsDeleted {
			continue
		}
		if rng.Start != nil && rec.IndexInFile < *rng.Start {
			continue
		}
		if rng.End != nil && rec.IndexInFile > *rng.End {
			continue
		}
		copied := *rec
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IndexInFile < out[j].IndexInFile })
	return out, nil
}

func (r *fakeRecordRepo) CountRange(ctx context.Context, fileID int64, rng port.RecordRange, includeDeleted bool) (int, error) {
	records, err := r.ListRange(ctx, fileID, rng, includeDeleted)
	return len(records), err
}

func (r *fakeRecordRepo) Edit(ctx context.Context, id int64, prompt, completion string, editorID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.Prompt = prompt
		rec.Completion = completion
		rec.EditedBy = &editorID
		rec.EditedAt = &at
	}
	return nil
}

func (r *fakeRecordRepo) StampEditor(ctx context.Context, fileID int64, start, end int, editorID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.FileID == fileID && !rec.IsDeleted && rec.IndexInFile >= start && rec.IndexInFile <= end {
			rec.EditedBy = &editorID
			rec.EditedAt = &at
		}
	}
	return nil
}

func (r *fakeRecordRepo) SoftDelete(ctx context.Context, id int64, actorID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.IsDeleted = true
		rec.EditedBy = &actorID
		rec.EditedAt = &at
	}
	return nil
}

func (r *fakeRecordRepo) CountDeletedByEditor(ctx context.Context, fileID int64, editorID int64, start, end int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, rec := range r.records {
		if rec.FileID == fileID && rec.IsDeleted && rec.EditedBy != nil && *rec.EditedBy == editorID &&
			rec.IndexInFile >= start && rec.IndexInFile <= end {
			count++
		}
	}
	return count, nil
}

func (r *fakeRecordRepo) DeleteByFile(ctx context.Context, fileID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if rec.FileID == fileID {
			delete(r.records, id)
		}
	}
	return nil
}

type draftKey struct {
	taskID, userID, recordID int64
}

type fakeDraftRepo struct {
	mu     sync.Mutex
	nextID int64
	drafts map[draftKey]*entity.Draft
}

func newFakeDraftRepo() *fakeDraftRepo {
	return &fakeDraftRepo{drafts: make(map[draftKey]*entity.Draft)}
}

func (r *fakeDraftRepo) Save(ctx context.Context, d *entity.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := draftKey{d.TaskID, d.UserID, d.RecordID}
	if existing, ok := r.drafts[key]; ok {
		d.ID = existing.ID
	} else {
		r.nextID++
		d.ID = r.nextID
	}
	copied := *d
	r.drafts[key] = &copied
	return nil
}

func (r *fakeDraftRepo) Get(ctx context.Context, taskID, userID, recordID int64) (*entity.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.drafts[draftKey{taskID, userID, recordID}]
	if !ok {
		return nil, nil
	}
	copied := *d
	return &copied, nil
}

func (r *fakeDraftRepo) ListByTaskUser(ctx context.Context, taskID, userID int64) ([]*entity.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Draft
	for key, d := range r.drafts {
		if key.taskID == taskID && key.userID == userID {
			copied := *d
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordID < out[j].RecordID })
	return out, nil
}

func (r *fakeDraftRepo) CountMarkedDeleted(ctx context.Context, taskID, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for key, d := range r.drafts {
		if key.taskID == taskID && key.userID == userID && d.MarkedDeleted {
			count++
		}
	}
	return count, nil
}

func (r *fakeDraftRepo) Clear(ctx context.Context, taskID, userID, recordID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, draftKey{taskID, userID, recordID})
	return nil
}

func (r *fakeDraftRepo) ClearAll(ctx context.Context, taskID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.drafts {
		if key.taskID == taskID && key.userID == userID {
			delete(r.drafts, key)
		}
	}
	return nil
}

func (r *fakeDraftRepo) DeleteByTask(ctx context.Context, taskID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.drafts {
		if key.taskID == taskID {
			delete(r.drafts, key)
		}
	}
	return nil
}

type summaryKey struct {
	taskID, recordID int64
}

type fakeSummaryRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[summaryKey]*entity.SummaryItem
}

func newFakeSummaryRepo() *fakeSummaryRepo {
	return &fakeSummaryRepo{items: make(map[summaryKey]*entity.SummaryItem)}
}

func (r *fakeSummaryRepo) Upsert(ctx context.Context, item *entity.SummaryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := summaryKey{item.TaskID, item.RecordID}
	if existing, ok := r.items[key]; ok {
		item.ID = existing.ID
	} else {
		r.nextID++
		item.ID = r.nextID
	}
	copied := *item
	r.items[key] = &copied
	return nil
}

func (r *fakeSummaryRepo) ListByTask(ctx context.Context, taskID int64, limit, offset int) ([]*entity.SummaryItem, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.SummaryItem
	for key, item := range r.items {
		if key.taskID == taskID {
			copied := *item
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordIndex < out[j].RecordIndex })
	total := len(out)
	if limit > 0 {
		if offset > total {
			offset = total
		}
		end := offset + limit
		if end > total {
			end = total
		}
		out = out[offset:end]
	}
	return out, total, nil
}

func (r *fakeSummaryRepo) CountModified(ctx context.Context, taskID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for key, item := range r.items {
		if key.taskID == taskID && item.IsModified {
			count++
		}
	}
	return count, nil
}

func (r *fakeSummaryRepo) SyncRecord(ctx context.Context, taskID int64, record *entity.QARecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item, ok := r.items[summaryKey{taskID, record.ID}]; ok {
		item.EditedPrompt = record.Prompt
		item.EditedCompletion = record.Completion
		item.EditorID = record.EditedBy
		item.IsModified = item.OriginalPrompt != record.Prompt || item.OriginalCompletion != record.Completion
	}
	return nil
}

func (r *fakeSummaryRepo) DeleteByTask(ctx context.Context, taskID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.items {
		if key.taskID == taskID {
			delete(r.items, key)
		}
	}
	return nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[int64]*entity.WorkSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[int64]*entity.WorkSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *entity.WorkSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	s.ID = r.nextID
	s.IsActive = true
	copied := *s
	r.sessions[s.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetActive(ctx context.Context, taskID, userID int64) (*entity.WorkSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *entity.WorkSession
	for _, s := range r.sessions {
		if s.TaskID == taskID && s.UserID == userID && s.IsActive {
			if latest == nil || s.SessionStart.After(latest.SessionStart) {
				latest = s
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	copied := *latest
	return &copied, nil
}

func (r *fakeSessionRepo) DeactivateAll(ctx context.Context, taskID, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TaskID == taskID && s.UserID == userID && s.IsActive {
			s.IsActive = false
			s.SessionEnd = &at
		}
	}
	return nil
}

func (r *fakeSessionRepo) Touch(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && s.IsActive {
		s.LastActivity = at
		s.ActivityCount++
	}
	return nil
}

func (r *fakeSessionRepo) End(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && s.IsActive {
		s.IsActive = false
		s.SessionEnd = &at
	}
	return nil
}

func (r *fakeSessionRepo) DeleteByTask(ctx context.Context, taskID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.TaskID == taskID {
			delete(r.sessions, id)
		}
	}
	return nil
}

type fakeNotificationRepo struct {
	mu            sync.Mutex
	nextID        int64
	notifications map[int64]*entity.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[int64]*entity.Notification)}
}

func (r *fakeNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	n.ID = r.nextID
	copied := *n
	r.notifications[n.ID] = &copied
	return nil
}

func (r *fakeNotificationRepo) ListByUser(ctx context.Context, userID int64, unreadOnly bool, limit, offset int) ([]*entity.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		copied := *n
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, len(out), nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return sql.ErrNoRows
	}
	n.IsRead = true
	return nil
}

func (r *fakeNotificationRepo) MarkAllRead(ctx context.Context, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

// Interface compliance for the fakes.
var (
	_ port.TaskRepository         = (*fakeTaskRepo)(nil)
	_ port.FileRepository         = (*fakeFileRepo)(nil)
	_ port.AssignmentRepository   = (*fakeAssignmentRepo)(nil)
	_ port.RecordRepository       = (*fakeRecordRepo)(nil)
	_ port.DraftRepository        = (*fakeDraftRepo)(nil)
	_ port.SummaryRepository      = (*fakeSummaryRepo)(nil)
	_ port.SessionRepository      = (*fakeSessionRepo)(nil)
	_ port.NotificationRepository = (*fakeNotificationRepo)(nil)
	_ port.Notifier               = (*fakeNotifier)(nil)
	_ port.IdentityProvider       = (*fakeIdentity)(nil)
	_ port.TransactionManager     = (fakeTxManager{})
)

// fixture wires every service over one shared set of fakes.
type fixture struct {
	tasks    *fakeTaskRepo
	files    *fakeFileRepo
	records  *fakeRecordRepo
	assigns  *fakeAssignmentRepo
	drafts   *fakeDraftRepo
	summary  *fakeSummaryRepo
	sessions *fakeSessionRepo
	notifier *fakeNotifier

	taskSvc     TaskService
	assignSvc   AssignmentService
	draftSvc    DraftService
	submitSvc   SubmissionService
	progressSvc ProgressService
	summarySvc  SummaryService
	sessionSvc  SessionService
}

func newFixture() *fixture {
	f := &fixture{
		tasks:    newFakeTaskRepo(),
		files:    newFakeFileRepo(),
		records:  newFakeRecordRepo(),
		assigns:  newFakeAssignmentRepo(),
		drafts:   newFakeDraftRepo(),
		summary:  newFakeSummaryRepo(),
		sessions: newFakeSessionRepo(),
		notifier: &fakeNotifier{},
	}
	f.tasks.assigns = f.assigns

	tx := fakeTxManager{}
	logger := nopLogger{}

	f.taskSvc = NewTaskService(f.tasks, f.files, f.records, f.assigns, f.drafts, f.summary, f.sessions, tx, f.notifier, 0, logger)
	f.assignSvc = NewAssignmentService(f.tasks, f.assigns, f.drafts, f.summary, f.sessions, tx, fakeIdentity{}, f.notifier, logger)
	f.draftSvc = NewDraftService(f.tasks, f.assigns, f.records, f.drafts, f.sessions, tx, logger)
	f.submitSvc = NewSubmissionService(f.tasks, f.assigns, f.records, f.drafts, f.summary, f.sessions, tx, f.notifier, logger)
	f.progressSvc = NewProgressService(f.tasks, f.assigns, f.records, f.drafts, logger)
	f.summarySvc = NewSummaryService(f.tasks, f.assigns, f.records, f.summary, tx, logger)
	f.sessionSvc = NewSessionService(f.assigns, f.sessions, tx, logger)

	return f
}

var (
	admin = entity.Actor{ID: 1, Role: entity.RoleAdmin, DisplayName: "Admin"}
	userA = entity.Actor{ID: 2, Role: entity.RoleUser, DisplayName: "Alice"}
	userB = entity.Actor{ID: 3, Role: entity.RoleUser, DisplayName: "Bob"}
	userC = entity.Actor{ID: 4, Role: entity.RoleUser, DisplayName: "Carol"}
)

// seedTask creates a task with n records through the task service.
func (f *fixture) seedTask(ctx context.Context, n int) *entity.Task {
	return f.seedTaskFor(ctx, admin, n)
}

func (f *fixture) seedTaskFor(ctx context.Context, creator entity.Actor, n int) *entity.Task {
	records := make([]RecordInput, n)
	for i := range records {
		records[i] = RecordInput{
			Prompt:     fmtRecord("q", i),
			Completion: fmtRecord("a", i),
		}
	}
	task, err := f.taskSvc.Create(ctx, creator, CreateTaskInput{
		Title:            "Proofread dataset",
		OriginalFilename: "dataset.jsonl",
		Records:          records,
	})
	if err != nil {
		panic(err)
	}
	return task
}

func fmtRecord(prefix string, i int) string {
	return prefix + "-" + strconv.Itoa(i)
}
