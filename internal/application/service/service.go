// Package service implements the application operations: task lifecycle,
// assignment partitioning, draft editing, submission, progress, summaries,
// notifications, work sessions and export. Every operation returns typed
// apperr errors and runs its writes inside one transaction.
package service

import (
	"github.com/zhenghaoli/qacollab/internal/apperr"
	"github.com/zhenghaoli/qacollab/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// requireManager checks that the actor may manage the task: super admins
// manage everything, admins manage the tasks they created.
func requireManager(actor entity.Actor, task *entity.Task) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if actor.IsAdmin() && task.CreatedBy == actor.ID {
		return nil
	}
	return apperr.New(apperr.CodeForbidden, "user %d cannot manage task %d", actor.ID, task.ID)
}

// requireAdmin checks that the actor carries admin rights at all.
func requireAdmin(actor entity.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	return apperr.New(apperr.CodeForbidden, "user %d is not an administrator", actor.ID)
}
