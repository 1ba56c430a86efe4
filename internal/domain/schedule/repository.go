package schedule

import (
	"context"
	"time"
)

// Resolver returns the expected work window for an employee on a date.
// Implementations fail with ErrScheduleNotFound when no active schedule applies.
type Resolver interface {
	Resolve(ctx context.Context, employeeID string, date time.Time) (Resolved, error)
}

// FreshResolver is implemented by caching resolvers. ResolveFresh reads the
// store directly and refreshes the cached entry.
type FreshResolver interface {
	ResolveFresh(ctx context.Context, employeeID string, date time.Time) (Resolved, error)
}

// ScheduleRepository reads schedule reference data.
type ScheduleRepository interface {
	// GetActiveForEmployee returns the schedule in force for the employee on
	// date, preferring a dated assignment over the employee default.
	GetActiveForEmployee(ctx context.Context, employeeID string, date time.Time) (Schedule, error)
}
