package anomaly

import (
	"time"

	"github.com/pinky-hr/attendance-engine/internal/pkg/validator"
)

// ========================================
// ANOMALY DTOs
// ========================================

type AnomalyResponse struct {
	ID                 string  `json:"id"`
	AttendanceRecordID string  `json:"attendance_record_id"`
	EmployeeID         string  `json:"employee_id"`
	WorkDate           string  `json:"work_date"`
	Type               string  `json:"type"`
	Severity           string  `json:"severity"`
	Description        string  `json:"description"`
	ExpectedValue      *string `json:"expected_value,omitempty"`
	ActualValue        *string `json:"actual_value,omitempty"`
	DeviationMinutes   *int    `json:"deviation_minutes,omitempty"`
	Status             string  `json:"status"`
	AutoDetected       bool    `json:"auto_detected"`
	ResolvedBy         *string `json:"resolved_by,omitempty"`
	ResolvedAt         *string `json:"resolved_at,omitempty"`
	ResolutionNotes    *string `json:"resolution_notes,omitempty"`
	CreatedAt          string  `json:"created_at"`
}

func NewAnomalyResponse(a Anomaly) AnomalyResponse {
	resp := AnomalyResponse{
		ID:                 a.ID,
		AttendanceRecordID: a.AttendanceRecordID,
		EmployeeID:         a.EmployeeID,
		WorkDate:           a.WorkDate.Format("2006-01-02"),
		Type:               string(a.Type),
		Severity:           string(a.Severity),
		Description:        a.Description,
		ExpectedValue:      a.ExpectedValue,
		ActualValue:        a.ActualValue,
		DeviationMinutes:   a.DeviationMinutes,
		Status:             string(a.Status),
		AutoDetected:       a.AutoDetected,
		ResolvedBy:         a.ResolvedBy,
		ResolutionNotes:    a.ResolutionNotes,
		CreatedAt:          a.CreatedAt.Format(time.RFC3339),
	}
	if a.ResolvedAt != nil {
		s := a.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &s
	}
	return resp
}

type AnomalyFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	From       *string `json:"from,omitempty"` // YYYY-MM-DD
	To         *string `json:"to,omitempty"`   // YYYY-MM-DD
	Type       *string `json:"type,omitempty"`
	Status     *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *AnomalyFilter) Validate() error {
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
	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Type != nil && !validator.IsInSlice(*f.Type, TypeValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: "type is not a known anomaly type",
		})
	}
	if f.Status != nil && !validator.IsInSlice(*f.Status, StatusValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be open, resolved or dismissed",
		})
	}
	if f.From != nil && *f.From != "" {
		if _, ok := validator.IsValidDate(*f.From); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "from",
				Message: "from must be in YYYY-MM-DD format",
			})
		}
	}
	if f.To != nil && *f.To != "" {
		if _, ok := validator.IsValidDate(*f.To); !ok {
			errs = append(errs, validator.ValidationError{
				Field:   "to",
				Message: "to must be in YYYY-MM-DD format",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListAnomalyResponse struct {
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
	Anomalies  []AnomalyResponse `json:"anomalies"`
}

// CloseRequest resolves or dismisses an open anomaly.
type CloseRequest struct {
	ID     string  `json:"-"`
	Status string  `json:"status"`
	Notes  *string `json:"resolution_notes,omitempty"`

	// ClosedBy is the operator subject taken from the access token.
	ClosedBy *string `json:"-"`
}

func (r *CloseRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}
	if r.Status != string(StatusResolved) && r.Status != string(StatusDismissed) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be resolved or dismissed",
		})
	}
	if r.Notes != nil && len(*r.Notes) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "resolution_notes",
			Message: "resolution_notes must not exceed 1000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
