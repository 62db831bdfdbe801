package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/application/service"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// PagedResponse wraps a listing with its total count.
type PagedResponse struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondError(c *gin.Context, err error) {
	message := "internal error"
	var ae *apperr.Error
	if errors.As(err, &ae) {
		message = ae.Message
	}

	c.JSON(apperr.HTTPStatus(err), Response{
		Success: false,
		Code:    string(apperr.CodeOf(err)),
		Error:   message,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Code:    string(apperr.CodeInvalidRequest),
		Error:   message,
	})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	respondOK(c, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateTaskRequest is the task creation payload: metadata plus the parsed
// dataset records.
type CreateTaskRequest struct {
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	OriginalFilename string                `json:"original_filename"`
	Deadline         *time.Time            `json:"deadline"`
	Records          []service.RecordInput `json:"records"`
}

// CreateTask handles POST /api/tasks
func (h *Handlers) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	task, err := h.services.Tasks.Create(c.Request.Context(), currentActor(c), service.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		OriginalFilename: req.OriginalFilename,
		Deadline:         req.Deadline,
		Records:          req.Records,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: task})
}

// ListTasks handles GET /api/tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	tasks, total, err := h.services.Tasks.List(c.Request.Context(), currentActor(c), service.ListTasksInput{
		Status: c.Query("status"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, PagedResponse{Items: tasks, Total: total})
}

// GetTask handles GET /api/tasks/:id
func (h *Handlers) GetTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	detail, err := h.services.Tasks.Get(c.Request.Context(), currentActor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, detail)
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *Handlers) DeleteTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Tasks.Delete(c.Request.Context(), currentActor(c), taskID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// AssignTaskRequest selects the partition strategy and its parameters.
type AssignTaskRequest struct {
	Strategy   string               `json:"strategy"`
	UserIDs    []int64              `json:"user_ids"`
	GroupIDs   []int64              `json:"group_ids"`
	AdminFront int                  `json:"admin_front"`
	Ranges     []service.IndexRange `json:"ranges"`
}

// AssignTask handles POST /api/tasks/:id/assign
func (h *Handlers) AssignTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	assignments, err := h.services.Assignments.Assign(c.Request.Context(), currentActor(c), taskID, service.AssignInput{
		Strategy:   req.Strategy,
		UserIDs:    req.UserIDs,
		GroupIDs:   req.GroupIDs,
		AdminFront: req.AdminFront,
		Ranges:     req.Ranges,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, assignments)
}

// SubmitTask handles POST /api/tasks/:id/submit
func (h *Handlers) SubmitTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	result, err := h.services.Submissions.Submit(c.Request.Context(), currentActor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// RejectAssignmentRequest names the assignee and the reason.
type RejectAssignmentRequest struct {
	UserID int64  `json:"user_id"`
	Reason string `json:"reason"`
}

// RejectAssignment handles POST /api/tasks/:id/reject
func (h *Handlers) RejectAssignment(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req RejectAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		badRequest(c, "invalid request body")
		return
	}

	if err := h.services.Tasks.Reject(c.Request.Context(), currentActor(c), taskID, req.UserID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// ReopenTask handles POST /api/tasks/:id/reopen
func (h *Handlers) ReopenTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Tasks.Reopen(c.Request.Context(), currentActor(c), taskID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// FinalizeTask handles POST /api/tasks/:id/finalize
func (h *Handlers) FinalizeTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.services.Tasks.Finalize(c.Request.Context(), currentActor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, task)
}

// GetWorkingRecords handles GET /api/tasks/:id/records
func (h *Handlers) GetWorkingRecords(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	result, err := h.services.Drafts.GetWorkingPage(c.Request.Context(), currentActor(c), taskID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, result)
}

// SaveDraftRequest is a partial draft update; omitted fields keep the stored
// draft values.
type SaveDraftRequest struct {
	Prompt     *string `json:"prompt"`
	Completion *string `json:"completion"`
	AutoSaved  bool    `json:"auto_saved"`
}

// SaveDraft handles PUT /api/tasks/:id/records/:recordID/draft
func (h *Handlers) SaveDraft(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordID")
	if !ok {
		return
	}

	var req SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	draft, err := h.services.Drafts.SaveDraft(c.Request.Context(), currentActor(c), taskID, service.SaveDraftInput{
		RecordID:   recordID,
		Prompt:     req.Prompt,
		Completion: req.Completion,
		AutoSaved:  req.AutoSaved,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, draft)
}

// DiscardDraft handles DELETE /api/tasks/:id/records/:recordID/draft
func (h *Handlers) DiscardDraft(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordID")
	if !ok {
		return
	}

	if err := h.services.Drafts.DiscardDraft(c.Request.Context(), currentActor(c), taskID, recordID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// MarkRecordDeleted handles DELETE /api/tasks/:id/records/:recordID
func (h *Handlers) MarkRecordDeleted(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordID")
	if !ok {
		return
	}

	if err := h.services.Drafts.MarkDeleted(c.Request.Context(), currentActor(c), taskID, recordID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// DiscardAllDrafts handles DELETE /api/tasks/:id/drafts
func (h *Handlers) DiscardAllDrafts(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Drafts.DiscardAll(c.Request.Context(), currentActor(c), taskID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// GetProgress handles GET /api/tasks/:id/progress
func (h *Handlers) GetProgress(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	progress, err := h.services.Progress.GetProgress(c.Request.Context(), currentActor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, progress)
}

// GetParticipants handles GET /api/tasks/:id/participants
func (h *Handlers) GetParticipants(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	participants, err := h.services.Progress.GetParticipants(c.Request.Context(), currentActor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, participants)
}

// GetSummary handles GET /api/tasks/:id/summary
func (h *Handlers) GetSummary(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	summary, err := h.services.Summaries.GetSummary(c.Request.Context(), currentActor(c), taskID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}

// GetSummaryStats handles GET /api/tasks/:id/summary/stats
func (h *Handlers) GetSummaryStats(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	stats, err := h.services.Summaries.GetStats(c.Request.Context(), currentActor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, stats)
}

// EditSummaryRecordRequest carries the corrected content.
type EditSummaryRecordRequest struct {
	Prompt     string `json:"prompt"`
	Completion string `json:"completion"`
}

// EditSummaryRecord handles PUT /api/tasks/:id/summary/records/:recordID
func (h *Handlers) EditSummaryRecord(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}
	recordID, ok := pathID(c, "recordID")
	if !ok {
		return
	}

	var req EditSummaryRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	err := h.services.Summaries.EditRecord(c.Request.Context(), currentActor(c), taskID, recordID, req.Prompt, req.Completion)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// ExportTask handles GET /api/tasks/:id/export?format=jsonl|xlsx
func (h *Handlers) ExportTask(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var artifact *service.ExportArtifact
	var err error
	switch c.DefaultQuery("format", "jsonl") {
	case "jsonl":
		artifact, err = h.services.Exports.ExportJSONL(c.Request.Context(), currentActor(c), taskID)
	case "xlsx":
		artifact, err = h.services.Exports.ExportExcel(c.Request.Context(), currentActor(c), taskID)
	default:
		badRequest(c, "unknown export format")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.FileAttachment(artifact.Path, artifact.Filename)
}

// StartSession handles POST /api/tasks/:id/session/start
func (h *Handlers) StartSession(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	session, err := h.services.Sessions.Start(c.Request.Context(), currentActor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, session)
}

// SessionHeartbeat handles POST /api/tasks/:id/session/heartbeat
func (h *Handlers) SessionHeartbeat(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	status, err := h.services.Sessions.Heartbeat(c.Request.Context(), currentActor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, status)
}

// EndSession handles POST /api/tasks/:id/session/end
func (h *Handlers) EndSession(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Sessions.End(c.Request.Context(), currentActor(c), taskID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// SessionStatus handles GET /api/tasks/:id/session
func (h *Handlers) SessionStatus(c *gin.Context) {
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	status, err := h.services.Sessions.Status(c.Request.Context(), currentActor(c), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, status)
}

// ListOverdue handles GET /api/assignments/overdue
func (h *Handlers) ListOverdue(c *gin.Context) {
	overdue, err := h.services.Assignments.ListOverdue(c.Request.Context(), currentActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, overdue)
}

// ListNotifications handles GET /api/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	unreadOnly := c.Query("unread") == "true"

	notifications, total, err := h.services.Notifications.List(c.Request.Context(), currentActor(c), unreadOnly, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, PagedResponse{Items: notifications, Total: total})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.services.Notifications.MarkRead(c.Request.Context(), currentActor(c), id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	if err := h.services.Notifications.MarkAllRead(c.Request.Context(), currentActor(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}
