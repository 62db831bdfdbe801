package entity

import "time"

// Idle thresholds for work sessions, in minutes.
const (
	SessionRemindAfterMinutes = 10
	SessionIdleAfterMinutes   = 15
)

// WorkSession tracks one user's editing activity on one task. Starting a
// new session deactivates any previous active one; draft auto-saves bump
// the activity counter.
type WorkSession struct {
	ID            int64      `json:"id"`
	TaskID        int64      `json:"task_id"`
	UserID        int64      `json:"user_id"`
	SessionStart  time.Time  `json:"session_start"`
	SessionEnd    *time.Time `json:"session_end,omitempty"`
	LastActivity  time.Time  `json:"last_activity"`
	IsActive      bool       `json:"is_active"`
	ActivityCount int        `json:"activity_count"`
}

// DurationMinutes returns how long the session has run, in minutes.
func (s *WorkSession) DurationMinutes(now time.Time) float64 {
	end := now
	if s.SessionEnd != nil {
		end = *s.SessionEnd
	}
	return end.Sub(s.SessionStart).Minutes()
}

// IdleMinutes returns minutes since the last recorded activity.
func (s *WorkSession) IdleMinutes(now time.Time) float64 {
	return now.Sub(s.LastActivity).Minutes()
}
