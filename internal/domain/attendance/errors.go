package attendance

import "errors"

var (
	ErrAttendanceNotFound = errors.New("attendance record not found")
	ErrNoRawPunches       = errors.New("attendance record has no stored punches")
	ErrInvalidRawPunches  = errors.New("stored punches could not be decoded")
)

// Record error kinds reported in batch and sync reports.
const (
	ErrorKindMissingSchedule = "missing_schedule"
	ErrorKindUnknownEmployee = "unknown_employee"
	ErrorKindLookupFailed    = "lookup_failed"
	ErrorKindWriteFailed     = "write_failed"
	ErrorKindBadData         = "bad_data"
	ErrorKindCanceled        = "canceled"
	ErrorKindAnomalyFailed   = "anomaly_failed"
)

// RecordError describes why one employee/date could not be reconciled.
type RecordError struct {
	EmployeeID string `json:"employee_id"`
	WorkDate   string `json:"work_date,omitempty"`
	Kind       string `json:"kind"`
	Message    string `json:"message"`
}

func (e RecordError) Error() string {
	return e.Kind + ": employee " + e.EmployeeID + " on " + e.WorkDate + ": " + e.Message
}
