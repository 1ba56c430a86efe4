package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/authorization"
	"github.com/pinky-hr/attendance-engine/internal/pkg/database"
)

type authorizationRepositoryImpl struct {
	db *database.DB
}

func NewAuthorizationLookup(db *database.DB) authorization.Lookup {
	return &authorizationRepositoryImpl{db: db}
}

// IsAuthorized implements authorization.Lookup.
func (a *authorizationRepositoryImpl) IsAuthorized(ctx context.Context, employeeID string, date time.Time, kind authorization.Kind) (bool, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM authorizations
			WHERE employee_id = $1 AND date = $2 AND kind = $3 AND status IN ($4, $5)
		)
	`

	var ok bool
	err := q.QueryRow(ctx, query,
		employeeID, date, kind, authorization.StatusApproved, authorization.StatusPaid,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check %s authorization for employee %s: %w", kind, employeeID, err)
	}
	return ok, nil
}
