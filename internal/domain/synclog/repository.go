package synclog

import (
	"context"
	"time"
)

type SyncLogRepository interface {
	Create(ctx context.Context, log SyncLog) (SyncLog, error)
	GetByID(ctx context.Context, id string) (SyncLog, error)

	// OldestPending returns nil, nil when nothing is queued.
	OldestPending(ctx context.Context) (*SyncLog, error)

	List(ctx context.Context, filter SyncLogFilter) ([]SyncLog, int64, error)

	// MarkRunning moves a pending job to running. It fails with
	// ErrStaleJobClaim if the job is not pending and ErrSyncInProgress if
	// another job holds the running slot.
	MarkRunning(ctx context.Context, id string, startedAt time.Time) (SyncLog, error)

	// CreateRunning inserts a job directly in the running state.
	CreateRunning(ctx context.Context, log SyncLog) (SyncLog, error)

	// Finish moves a running job to a terminal state. It fails with
	// ErrStaleJobClaim if the job is not running.
	Finish(ctx context.Context, id string, out Outcome, completedAt time.Time) (SyncLog, error)

	// SweepStuck fails every running job started before the threshold and
	// returns the ids it changed.
	SweepStuck(ctx context.Context, startedBefore, now time.Time, entry ErrorEntry) ([]string, error)

	HasRunning(ctx context.Context) (bool, error)
}
