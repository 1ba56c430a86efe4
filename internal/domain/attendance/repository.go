package attendance

import (
	"context"
	"time"
)

// AttendanceRepository persists reconciled records. Writes are keyed on
// (employee_id, work_date).
type AttendanceRepository interface {
	// Get returns nil, nil when no record exists for the pair.
	Get(ctx context.Context, employeeID string, workDate time.Time) (*Record, error)

	// Upsert inserts or replaces the record for (employee_id, work_date) and
	// reports whether a new row was created.
	Upsert(ctx context.Context, rec Record) (created bool, err error)

	// ListChunk returns up to limit records in [from, to] ordered by
	// (work_date, employee_id), strictly after the given cursor.
	ListChunk(ctx context.Context, q ChunkQuery) ([]Record, error)

	Count(ctx context.Context, from, to time.Time, employeeID *string) (int64, error)

	List(ctx context.Context, filter AttendanceFilter) ([]Record, int64, error)

	// SetManualDesignation stores an operator designation and pins it to
	// the record's current punch fingerprint.
	SetManualDesignation(ctx context.Context, employeeID string, workDate time.Time, overtime *float64, night *bool, reason *string) (Record, error)

	// Delete removes the record for the pair. Deleting a missing record is not an error.
	Delete(ctx context.Context, employeeID string, workDate time.Time) error
}

type ChunkQuery struct {
	From            time.Time
	To              time.Time
	EmployeeID      *string
	AfterDate       *time.Time
	AfterEmployeeID string
	Limit           int
}
