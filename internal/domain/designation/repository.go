package designation

import (
	"context"
	"time"
)

// Lookup finds the non-work designation applying to an employee on a date.
type Lookup interface {
	// Find returns nil when the date carries no designation.
	Find(ctx context.Context, employeeID string, date time.Time) (*Designation, error)
}
