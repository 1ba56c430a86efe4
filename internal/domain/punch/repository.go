package punch

import (
	"context"
	"time"
)

// PunchRepository is the append-only punch store filled by the collector.
type PunchRepository interface {
	// InsertBatch appends punches, ignoring exact (user, device, timestamp) repeats.
	// Returns the number of rows actually inserted.
	InsertBatch(ctx context.Context, punches []RawPunch) (int64, error)

	// ListBetween returns punches with from <= timestamp < to ordered by user and timestamp.
	ListBetween(ctx context.Context, from, to time.Time) ([]RawPunch, error)

	// ActiveUsersSince returns the device user ids that punched at or after since.
	ActiveUsersSince(ctx context.Context, since time.Time) ([]string, error)

	UpsertDeviceUsers(ctx context.Context, users []DeviceUser) error
	ListDeviceUsers(ctx context.Context) ([]DeviceUser, error)
}
