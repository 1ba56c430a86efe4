package anomaly

import "time"

type Type string

const (
	TypeMissingCheckout        Type = "missing_checkout"
	TypeMissingCheckin         Type = "missing_checkin"
	TypeUnauthorizedOvertime   Type = "unauthorized_overtime"
	TypeUnauthorizedNightShift Type = "unauthorized_night_shift"
	TypeExcessiveBreak         Type = "excessive_break"
	TypeMissingLunch           Type = "missing_lunch"
	TypeLateArrival            Type = "late_arrival"
	TypeEarlyDeparture         Type = "early_departure"
	TypeScheduleDeviation      Type = "schedule_deviation"
	TypeDuplicatePunches       Type = "duplicate_punches"
	TypeLateAccumulation       Type = "late_accumulation"
)

var TypeValues = []string{
	string(TypeMissingCheckout),
	string(TypeMissingCheckin),
	string(TypeUnauthorizedOvertime),
	string(TypeUnauthorizedNightShift),
	string(TypeExcessiveBreak),
	string(TypeMissingLunch),
	string(TypeLateArrival),
	string(TypeEarlyDeparture),
	string(TypeScheduleDeviation),
	string(TypeDuplicatePunches),
	string(TypeLateAccumulation),
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type Status string

const (
	StatusOpen      Status = "open"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

var StatusValues = []string{string(StatusOpen), string(StatusResolved), string(StatusDismissed)}

// Anomaly is an irregularity found on one attendance record. At most one
// anomaly of each type exists per record.
type Anomaly struct {
	ID                 string
	AttendanceRecordID string
	EmployeeID         string
	WorkDate           time.Time
	Type               Type
	Severity           Severity
	Description        string
	ExpectedValue      *string
	ActualValue        *string
	DeviationMinutes   *int
	Status             Status
	AutoDetected       bool
	ResolvedBy         *string
	ResolvedAt         *time.Time
	ResolutionNotes    *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// SyncResult reports how a record's detected set was applied.
type SyncResult struct {
	Created int
	Removed int
	Open    int
}

// LateAccumulation counts an employee's late arrivals in one ISO week.
// Once AbsenceGenerated is set it stays set, and GeneratedOn keeps the work
// date whose late arrival reached the threshold.
type LateAccumulation struct {
	EmployeeID       string
	Year             int
	Week             int
	LateCount        int
	AbsenceGenerated bool
	GeneratedOn      *time.Time
	UpdatedAt        time.Time
}
