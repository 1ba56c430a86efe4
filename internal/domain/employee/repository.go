package employee

import "context"

// EmployeeRepository exposes the subset of the employee store the engine needs.
type EmployeeRepository interface {
	// ListLinked returns every employee linked to a device user.
	ListLinked(ctx context.Context) ([]Employee, error)

	// ListActive returns active employees linked to a device user.
	ListActive(ctx context.Context) ([]Employee, error)

	Create(ctx context.Context, employee Employee) (Employee, error)
	Update(ctx context.Context, employee Employee) error

	// MarkMissingInactive deactivates active employees whose device user is
	// not in seen, returning how many were changed.
	MarkMissingInactive(ctx context.Context, seen []string) (int, error)
}
