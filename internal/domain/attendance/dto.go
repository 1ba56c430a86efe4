package attendance

import (
	"time"

	"github.com/pinky-hr/attendance-engine/internal/pkg/validator"
)

// ========================================
// ATTENDANCE DTOs
// ========================================

type AttendanceResponse struct {
	ID                    string   `json:"id"`
	EmployeeID            string   `json:"employee_id"`
	WorkDate              string   `json:"work_date"`
	CheckIn               *string  `json:"check_in,omitempty"`
	CheckOut              *string  `json:"check_out,omitempty"`
	WorkedHours           float64  `json:"worked_hours"`
	RegularHours          float64  `json:"regular_hours"`
	OvertimeHours         *float64 `json:"overtime_hours,omitempty"`
	OvertimeAuthorized    bool     `json:"overtime_authorized"`
	NightHours            *float64 `json:"night_hours,omitempty"`
	IsNightShift          bool     `json:"is_night_shift"`
	NightShiftAuthorized  bool     `json:"night_shift_authorized"`
	LateMinutes           int      `json:"late_minutes"`
	EarlyDepartureMinutes int      `json:"early_departure_minutes"`
	BreakMinutes          int      `json:"break_minutes"`
	IsRestDayWork         bool     `json:"is_rest_day_work"`
	RequiresReview        bool     `json:"requires_review"`
	Status                string   `json:"status"`
	PunchCount            int      `json:"punch_count"`
	ManualDesignation     bool     `json:"manual_designation"`
	AnomalyCount          int      `json:"anomaly_count"`
	UpdatedAt             string   `json:"updated_at"`
}

// Visibility carries the authorization state used to mask overtime and
// night hours for downstream readers.
type Visibility struct {
	Overtime   bool
	NightShift bool
}

// NewAttendanceResponse maps a record to its API shape. Overtime and night
// hours are only exposed when authorized.
func NewAttendanceResponse(r Record, v Visibility) AttendanceResponse {
	resp := AttendanceResponse{
		ID:                    r.ID,
		EmployeeID:            r.EmployeeID,
		WorkDate:              r.WorkDate.Format("2006-01-02"),
		WorkedHours:           r.WorkedHours,
		RegularHours:          r.RegularHours,
		OvertimeAuthorized:    v.Overtime,
		NightShiftAuthorized:  v.NightShift,
		LateMinutes:           r.LateMinutes,
		EarlyDepartureMinutes: r.EarlyDepartureMinutes,
		BreakMinutes:          r.BreakMinutes,
		IsRestDayWork:         r.IsRestDayWork,
		RequiresReview:        r.RequiresReview,
		Status:                string(r.Status),
		PunchCount:            len(r.RawPunches),
		ManualDesignation:     r.HasManualDesignation(),
		AnomalyCount:          r.AnomalyCount,
		UpdatedAt:             r.UpdatedAt.Format(time.RFC3339),
	}
	if r.CheckIn != nil {
		s := r.CheckIn.Format(time.RFC3339)
		resp.CheckIn = &s
	}
	if r.CheckOut != nil {
		s := r.CheckOut.Format(time.RFC3339)
		resp.CheckOut = &s
	}

	overtime := r.OvertimeHours
	if r.ManualOvertimeHours != nil {
		overtime = *r.ManualOvertimeHours
	}
	if v.Overtime {
		resp.OvertimeHours = &overtime
	}

	night := r.IsNightShift
	if r.ManualNightShift != nil {
		night = *r.ManualNightShift
	}
	if v.NightShift {
		resp.IsNightShift = night
		nh := r.NightHours
		resp.NightHours = &nh
	}
	return resp
}

type AttendanceFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	From       *string `json:"from,omitempty"` // YYYY-MM-DD
	To         *string `json:"to,omitempty"`   // YYYY-MM-DD
	Status     *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *AttendanceFilter) Validate() error {
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

	if f.Status != nil && !validator.IsInSlice(*f.Status, StatusValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status is not a known attendance status",
		})
	}

	var from, to time.Time
	if f.From != nil && *f.From != "" {
		d, valid := validator.IsValidDate(*f.From)
		if !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "from",
				Message: "from must be in YYYY-MM-DD format",
			})
		}
		from = d
	}
	if f.To != nil && *f.To != "" {
		d, valid := validator.IsValidDate(*f.To)
		if !valid {
			errs = append(errs, validator.ValidationError{
				Field:   "to",
				Message: "to must be in YYYY-MM-DD format",
			})
		}
		to = d
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to must not be before from",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Attendances []AttendanceResponse `json:"attendances"`
}

// RecalculateRequest asks for a bulk recomputation over a date range.
// Reprocess re-runs deduplication on every stored punch.
type RecalculateRequest struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	EmployeeID *string `json:"employee_id,omitempty"`
	Reprocess  bool    `json:"reprocess"`

	FromDate time.Time `json:"-"`
	ToDate   time.Time `json:"-"`
}

func (r *RecalculateRequest) Validate() error {
	var errs validator.ValidationErrors

	from, ok := validator.IsValidDate(r.From)
	if !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "from",
			Message: "from must be in YYYY-MM-DD format",
		})
	}
	to, ok2 := validator.IsValidDate(r.To)
	if !ok2 {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to must be in YYYY-MM-DD format",
		})
	}
	if ok && ok2 && to.Before(from) {
		errs = append(errs, validator.ValidationError{
			Field:   "to",
			Message: "to must not be before from",
		})
	}
	if r.EmployeeID != nil && validator.IsEmpty(*r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id must not be blank",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	r.FromDate, r.ToDate = from, to
	return nil
}

type RecalculateResponse struct {
	From      string      `json:"from"`
	To        string      `json:"to"`
	Reprocess bool        `json:"reprocess"`
	Report    BatchReport `json:"report"`
}

// DesignationRequest records a manual overtime or night-shift designation
// for one employee/date.
type DesignationRequest struct {
	EmployeeID    string   `json:"-"`
	Date          string   `json:"-"`
	OvertimeHours *float64 `json:"overtime_hours,omitempty"`
	NightShift    *bool    `json:"night_shift,omitempty"`
	Reason        *string  `json:"reason,omitempty"`

	WorkDate time.Time `json:"-"`
}

func (r *DesignationRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.EmployeeID) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_id",
			Message: "employee_id is required",
		})
	}
	d, ok := validator.IsValidDate(r.Date)
	if !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}
	if r.OvertimeHours == nil && r.NightShift == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "overtime_hours",
			Message: "overtime_hours or night_shift is required",
		})
	}
	if r.OvertimeHours != nil && (*r.OvertimeHours < 0 || *r.OvertimeHours > 24) {
		errs = append(errs, validator.ValidationError{
			Field:   "overtime_hours",
			Message: "overtime_hours must be between 0 and 24",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	r.WorkDate = d
	return nil
}
