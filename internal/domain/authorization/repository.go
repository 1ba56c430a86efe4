package authorization

import (
	"context"
	"time"
)

// Lookup answers whether hours of a kind are authorized for an employee and date.
// Approved and paid authorizations both count.
type Lookup interface {
	IsAuthorized(ctx context.Context, employeeID string, date time.Time, kind Kind) (bool, error)
}
