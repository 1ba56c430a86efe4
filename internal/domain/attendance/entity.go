package attendance

import (
	"time"
)

type Status string

const (
	StatusPresent    Status = "present"
	StatusLate       Status = "late"
	StatusAbsent     Status = "absent"
	StatusPartial    Status = "partial"
	StatusHoliday    Status = "holiday"
	StatusVacation   Status = "vacation"
	StatusSickLeave  Status = "sick_leave"
	StatusPermission Status = "permission"
)

var StatusValues = []string{
	string(StatusPresent),
	string(StatusLate),
	string(StatusAbsent),
	string(StatusPartial),
	string(StatusHoliday),
	string(StatusVacation),
	string(StatusSickLeave),
	string(StatusPermission),
}

// Record is the authoritative attendance of one employee on one work date.
// (EmployeeID, WorkDate) is unique.
type Record struct {
	ID         string
	EmployeeID string
	WorkDate   time.Time
	Metrics

	// RawPunches is every punch assigned to the work date, duplicates included.
	RawPunches       []StoredPunch
	PunchFingerprint string

	// Manual designations survive upserts while PunchFingerprint equals
	// ManualFingerprint.
	ManualOvertimeHours *float64
	ManualNightShift    *bool
	ManualFingerprint   *string
	ManualReason        *string

	// AnomalyCount is the number of open anomalies on the record. It is
	// maintained by the anomaly store, not by Upsert.
	AnomalyCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Metrics holds the fields computed by the classifier.
type Metrics struct {
	CheckIn               *time.Time
	CheckOut              *time.Time
	WorkedHours           float64
	RegularHours          float64
	OvertimeHours         float64
	NightHours            float64
	LateMinutes           int
	EarlyDepartureMinutes int
	BreakMinutes          int
	IsNightShift          bool
	IsRestDayWork         bool
	RequiresReview        bool
	Status                Status
}

// Equal compares two metric sets, treating times by instant.
func (m Metrics) Equal(o Metrics) bool {
	return timePtrEqual(m.CheckIn, o.CheckIn) &&
		timePtrEqual(m.CheckOut, o.CheckOut) &&
		m.WorkedHours == o.WorkedHours &&
		m.RegularHours == o.RegularHours &&
		m.OvertimeHours == o.OvertimeHours &&
		m.NightHours == o.NightHours &&
		m.LateMinutes == o.LateMinutes &&
		m.EarlyDepartureMinutes == o.EarlyDepartureMinutes &&
		m.BreakMinutes == o.BreakMinutes &&
		m.IsNightShift == o.IsNightShift &&
		m.IsRestDayWork == o.IsRestDayWork &&
		m.RequiresReview == o.RequiresReview &&
		m.Status == o.Status
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// StoredPunch is the serialized copy of a punch kept on the record for
// reprocessing. Kept is false for punches dropped as duplicates.
type StoredPunch struct {
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Method    string    `json:"method,omitempty"`
	Kept      bool      `json:"kept"`
}

// KeptTimestamps returns the timestamps of the punches that survived deduplication.
func (r Record) KeptTimestamps() []time.Time {
	out := make([]time.Time, 0, len(r.RawPunches))
	for _, p := range r.RawPunches {
		if p.Kept {
			out = append(out, p.Timestamp)
		}
	}
	return out
}

// HasManualDesignation reports whether an operator set overtime or night-shift by hand.
func (r Record) HasManualDesignation() bool {
	return r.ManualOvertimeHours != nil || r.ManualNightShift != nil
}
