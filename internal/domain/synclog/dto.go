package synclog

import (
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/punch"
	"github.com/pinky-hr/attendance-engine/internal/pkg/validator"
)

// ========================================
// OPERATOR DTOs
// ========================================

type RequestSyncRequest struct {
	Days        int     `json:"days"`
	RequestedBy *string `json:"-"`
}

func (r *RequestSyncRequest) Validate(defaultDays int) error {
	var errs validator.ValidationErrors

	if r.Days == 0 {
		r.Days = defaultDays
	}
	if r.Days < 1 || r.Days > 90 {
		errs = append(errs, validator.ValidationError{
			Field:   "days",
			Message: "days must be between 1 and 90",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SyncLogResponse struct {
	ID              string       `json:"id"`
	Status          string       `json:"status"`
	Trigger         string       `json:"trigger"`
	RequestedBy     *string      `json:"requested_by,omitempty"`
	FromDate        string       `json:"from_date"`
	ToDate          string       `json:"to_date"`
	Days            int          `json:"days"`
	StartedAt       *string      `json:"started_at,omitempty"`
	CompletedAt     *string      `json:"completed_at,omitempty"`
	DurationSeconds *float64     `json:"duration_seconds,omitempty"`
	Counters
	Errors    []ErrorEntry `json:"errors"`
	CreatedAt string       `json:"created_at"`
}

func NewSyncLogResponse(s SyncLog) SyncLogResponse {
	resp := SyncLogResponse{
		ID:          s.ID,
		Status:      string(s.Status),
		Trigger:     string(s.Trigger),
		RequestedBy: s.RequestedBy,
		FromDate:    s.FromDate.Format("2006-01-02"),
		ToDate:      s.ToDate.Format("2006-01-02"),
		Days:        s.Days,
		Counters:    s.Counters,
		Errors:      s.Errors,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
	if resp.Errors == nil {
		resp.Errors = []ErrorEntry{}
	}
	if s.StartedAt != nil {
		v := s.StartedAt.Format(time.RFC3339)
		resp.StartedAt = &v
	}
	if s.CompletedAt != nil {
		v := s.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
		d := s.Duration().Seconds()
		resp.DurationSeconds = &d
	}
	return resp
}

type SyncLogFilter struct {
	Status *string `json:"status,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

func (f *SyncLogFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}
	if f.Status != nil {
		valid := []string{string(StatusPending), string(StatusRunning), string(StatusCompleted), string(StatusFailed)}
		if !validator.IsInSlice(*f.Status, valid) {
			errs = append(errs, validator.ValidationError{
				Field:   "status",
				Message: "status must be one of: pending, running, completed, failed",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListSyncLogResponse struct {
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	Logs       []SyncLogResponse `json:"logs"`
}

// ========================================
// AGENT DTOs
// ========================================

type PollResponse struct {
	Pending bool    `json:"pending"`
	SyncID  *string `json:"sync_id,omitempty"`
	Days    int     `json:"days,omitempty"`
	From    string  `json:"from,omitempty"`
	To      string  `json:"to,omitempty"`
}

type StartResponse struct {
	SyncID  string `json:"sync_id"`
	Started bool   `json:"started"`
	Reason  string `json:"reason,omitempty"`
}

// MaxAgentErrors bounds the per-device errors accepted in one done report.
const MaxAgentErrors = 100

// DoneRequest is the agent's completion report, optionally carrying the
// punches and users it pulled from the devices. Errors lists per-device
// failures met during a run that may still have succeeded overall.
type DoneRequest struct {
	SyncID          string                    `json:"-"`
	Success         *bool                     `json:"success"`
	DevicesSynced   int                       `json:"devices_synced"`
	DevicesFailed   int                       `json:"devices_failed"`
	TotalUsers      int                       `json:"total_users"`
	TotalAttendance int                       `json:"total_attendance"`
	Error           *string                   `json:"error,omitempty"`
	Errors          []string                  `json:"errors,omitempty"`
	Users           []punch.DeviceUserPayload `json:"users,omitempty"`
	Punches         []punch.PunchPayload      `json:"punches,omitempty"`
}

func (r *DoneRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.Success == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "success",
			Message: "success is required",
		})
	}
	if r.DevicesSynced < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "devices_synced",
			Message: "devices_synced must not be negative",
		})
	}
	if r.DevicesFailed < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "devices_failed",
			Message: "devices_failed must not be negative",
		})
	}
	if r.TotalUsers < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "total_users",
			Message: "total_users must not be negative",
		})
	}
	if r.TotalAttendance < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "total_attendance",
			Message: "total_attendance must not be negative",
		})
	}
	if r.Error != nil && len(*r.Error) > 2000 {
		errs = append(errs, validator.ValidationError{
			Field:   "error",
			Message: "error must not exceed 2000 characters",
		})
	}
	if len(r.Errors) > MaxAgentErrors {
		errs = append(errs, validator.ValidationError{
			Field:   "errors",
			Message: "errors must not list more than " + validator.Itoa(MaxAgentErrors) + " entries",
		})
	}
	for i, e := range r.Errors {
		if len(e) > 2000 {
			errs = append(errs, validator.ValidationError{
				Field:   "errors[" + validator.Itoa(i) + "]",
				Message: "error must not exceed 2000 characters",
			})
		}
	}
	for i, u := range r.Users {
		if validator.IsEmpty(u.UserID) {
			errs = append(errs, validator.ValidationError{
				Field:   "users[" + validator.Itoa(i) + "].user_id",
				Message: "user_id is required",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AgentEntries returns the agent's reported errors as log entries, the
// summary error first. Blank messages are dropped.
func (r DoneRequest) AgentEntries() []ErrorEntry {
	var out []ErrorEntry
	if r.Error != nil && !validator.IsEmpty(*r.Error) {
		out = append(out, ErrorEntry{Kind: ErrorKindAgent, Message: *r.Error})
	}
	for _, e := range r.Errors {
		if validator.IsEmpty(e) {
			continue
		}
		out = append(out, ErrorEntry{Kind: ErrorKindAgent, Message: e})
	}
	return out
}

type HeartbeatRequest struct {
	AgentID  string  `json:"agent_id"`
	Version  *string `json:"version,omitempty"`
	Hostname *string `json:"hostname,omitempty"`
	Devices  int     `json:"devices"`
}

func (r *HeartbeatRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.AgentID) {
		r.AgentID = "default"
	}
	if r.Devices < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "devices",
			Message: "devices must not be negative",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AgentStatusResponse struct {
	Online   bool    `json:"online"`
	AgentID  string  `json:"agent_id,omitempty"`
	Version  *string `json:"version,omitempty"`
	Hostname *string `json:"hostname,omitempty"`
	Devices  int     `json:"devices"`
	LastSeen *string `json:"last_seen,omitempty"`
}
