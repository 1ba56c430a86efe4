package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/designation"
	"github.com/pinky-hr/attendance-engine/internal/pkg/database"
)

type designationRepositoryImpl struct {
	db *database.DB
}

func NewDesignationLookup(db *database.DB) designation.Lookup {
	return &designationRepositoryImpl{db: db}
}

// Find implements designation.Lookup. Personal designations and company-wide
// holidays are both considered; designation.Pick decides between them.
func (d *designationRepositoryImpl) Find(ctx context.Context, employeeID string, date time.Time) (*designation.Designation, error) {
	q := GetQuerier(ctx, d.db)

	query := `
		SELECT employee_id, date, kind, note
		FROM designations
		WHERE date = $1 AND (employee_id = $2 OR employee_id IS NULL)
	`

	rows, err := q.Query(ctx, query, date, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query designations: %w", err)
	}
	defer rows.Close()

	var found []designation.Designation
	for rows.Next() {
		var ds designation.Designation
		if err := rows.Scan(&ds.EmployeeID, &ds.Date, &ds.Kind, &ds.Note); err != nil {
			return nil, fmt.Errorf("failed to scan designation: %w", err)
		}
		found = append(found, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return designation.Pick(found), nil
}
