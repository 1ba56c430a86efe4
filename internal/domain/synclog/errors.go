package synclog

import "errors"

var (
	ErrSyncLogNotFound = errors.New("sync log not found")

	// ErrStaleJobClaim is returned when a transition is attempted on a job
	// that is no longer in the expected state.
	ErrStaleJobClaim = errors.New("sync job is not in the expected state")

	// ErrSyncInProgress is returned when another job is already running.
	ErrSyncInProgress = errors.New("another sync job is already running")

	ErrSourceUnavailable = errors.New("punch source unavailable")
	ErrInvalidRange      = errors.New("invalid sync date range")
)
