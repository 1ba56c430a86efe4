package authorization

import "time"

// Kind is the kind of hours an authorization releases to downstream viewers.
type Kind string

const (
	KindOvertime   Kind = "overtime"
	KindNightShift Kind = "night_shift"

	// Entry and exit permissions excuse a late arrival or an early departure.
	KindEntryPermission Kind = "entry_permission"
	KindExitPermission  Kind = "exit_permission"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusPaid     Status = "paid"
)

// Authorization is an approval record owned by the authorization subsystem.
type Authorization struct {
	ID         string
	EmployeeID string
	Date       time.Time
	Kind       Kind
	Status     Status
	Hours      float64
}
