package attendance

import (
	"context"
	"time"
)

// AttendanceService exposes reconciled attendance to operators.
type AttendanceService interface {
	// ListAttendance returns records with overtime and night hours masked
	// by the authorization collaborator.
	ListAttendance(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)

	// Recalculate recomputes every record in the request range.
	Recalculate(ctx context.Context, req RecalculateRequest, progress func(done, total int)) (RecalculateResponse, error)

	SetDesignation(ctx context.Context, req DesignationRequest) (AttendanceResponse, error)
}

// Reconciler turns the punches of one employee on one work date into a record.
type Reconciler interface {
	ReconcileDay(ctx context.Context, employeeID string, workDate time.Time, punches []StoredPunch) Result
}
