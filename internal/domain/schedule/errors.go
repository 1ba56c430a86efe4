package schedule

import "errors"

var (
	// ErrScheduleNotFound is returned when the employee has no active schedule.
	ErrScheduleNotFound = errors.New("no active schedule found for employee")
	ErrInvalidSchedule  = errors.New("invalid schedule data")
)
