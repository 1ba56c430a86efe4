package anomaly

import (
	"context"
	"time"
)

type AnomalyRepository interface {
	// Sync applies the detected set to the record of (employeeID, workDate):
	// new types are inserted open, open auto-detected anomalies no longer
	// detected are removed, and closed ones are left alone. The record's
	// anomaly count is updated in the same transaction.
	Sync(ctx context.Context, employeeID string, workDate time.Time, detected []Anomaly) (SyncResult, error)

	List(ctx context.Context, filter AnomalyFilter) ([]Anomaly, int64, error)

	// Close moves an open anomaly to resolved or dismissed and refreshes the
	// record's anomaly count.
	Close(ctx context.Context, id string, status Status, by *string, notes *string) (Anomaly, error)

	// SaveLateAccumulation upserts the week's count. AbsenceGenerated and
	// GeneratedOn are never cleared once stored.
	SaveLateAccumulation(ctx context.Context, acc LateAccumulation) (LateAccumulation, error)

	ListLateAccumulations(ctx context.Context, employeeID *string, from, to time.Time) ([]LateAccumulation, error)
}
