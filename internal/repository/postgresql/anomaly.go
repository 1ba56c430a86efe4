package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
	"github.com/pinky-hr/attendance-engine/internal/pkg/database"
)

const anomalyColumns = `id, attendance_record_id, employee_id, work_date, anomaly_type, severity,
	description, expected_value, actual_value, deviation_minutes, status, auto_detected,
	resolved_by, resolved_at, resolution_notes, created_at, updated_at`

type anomalyRepositoryImpl struct {
	db *database.DB
}

func NewAnomalyRepository(db *database.DB) anomaly.AnomalyRepository {
	return &anomalyRepositoryImpl{db: db}
}

func scanAnomaly(row pgx.Row) (anomaly.Anomaly, error) {
	var a anomaly.Anomaly
	err := row.Scan(
		&a.ID, &a.AttendanceRecordID, &a.EmployeeID, &a.WorkDate, &a.Type, &a.Severity,
		&a.Description, &a.ExpectedValue, &a.ActualValue, &a.DeviationMinutes, &a.Status, &a.AutoDetected,
		&a.ResolvedBy, &a.ResolvedAt, &a.ResolutionNotes, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

type storedAnomaly struct {
	id           string
	status       anomaly.Status
	autoDetected bool
}

// Sync implements anomaly.AnomalyRepository. The record row is locked for the
// duration so concurrent syncs of one record serialize.
func (a *anomalyRepositoryImpl) Sync(ctx context.Context, employeeID string, workDate time.Time, detected []anomaly.Anomaly) (anomaly.SyncResult, error) {
	var res anomaly.SyncResult

	err := WithTransaction(ctx, a.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, a.db)

		var recordID string
		err := q.QueryRow(ctx,
			`SELECT id FROM attendance_records WHERE employee_id = $1 AND work_date = $2 FOR UPDATE`,
			employeeID, workDate,
		).Scan(&recordID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("employee %s on %s: %w", employeeID, workDate.Format("2006-01-02"), anomaly.ErrRecordNotFound)
			}
			return fmt.Errorf("failed to lock attendance record: %w", err)
		}

		rows, err := q.Query(ctx,
			`SELECT id, anomaly_type, status, auto_detected FROM attendance_anomalies WHERE attendance_record_id = $1`,
			recordID,
		)
		if err != nil {
			return fmt.Errorf("failed to query anomalies: %w", err)
		}
		existing := map[anomaly.Type]storedAnomaly{}
		for rows.Next() {
			var (
				s storedAnomaly
				t anomaly.Type
			)
			if err := rows.Scan(&s.id, &t, &s.status, &s.autoDetected); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan anomaly: %w", err)
			}
			existing[t] = s
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		seen := map[anomaly.Type]bool{}
		for _, d := range detected {
			if seen[d.Type] {
				continue
			}
			seen[d.Type] = true

			prev, ok := existing[d.Type]
			switch {
			case !ok:
				id, err := uuid.NewV7()
				if err != nil {
					return fmt.Errorf("failed to generate anomaly id: %w", err)
				}
				_, err = q.Exec(ctx, `
					INSERT INTO attendance_anomalies (
						id, attendance_record_id, employee_id, work_date, anomaly_type, severity,
						description, expected_value, actual_value, deviation_minutes, status, auto_detected
					) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, TRUE)
				`, id.String(), recordID, employeeID, workDate, d.Type, d.Severity,
					d.Description, d.ExpectedValue, d.ActualValue, d.DeviationMinutes, anomaly.StatusOpen)
				if err != nil {
					return fmt.Errorf("failed to insert %s anomaly: %w", d.Type, err)
				}
				res.Created++
			case prev.status == anomaly.StatusOpen:
				_, err := q.Exec(ctx, `
					UPDATE attendance_anomalies
					SET severity = $2, description = $3, expected_value = $4, actual_value = $5,
						deviation_minutes = $6, updated_at = NOW()
					WHERE id = $1
				`, prev.id, d.Severity, d.Description, d.ExpectedValue, d.ActualValue, d.DeviationMinutes)
				if err != nil {
					return fmt.Errorf("failed to update %s anomaly: %w", d.Type, err)
				}
			}
		}

		for t, prev := range existing {
			if seen[t] || prev.status != anomaly.StatusOpen || !prev.autoDetected {
				continue
			}
			if _, err := q.Exec(ctx, `DELETE FROM attendance_anomalies WHERE id = $1`, prev.id); err != nil {
				return fmt.Errorf("failed to delete %s anomaly: %w", t, err)
			}
			res.Removed++
		}

		open, err := refreshAnomalyCount(ctx, q, recordID)
		if err != nil {
			return err
		}
		res.Open = open
		return nil
	})
	if err != nil {
		return anomaly.SyncResult{}, err
	}
	return res, nil
}

func refreshAnomalyCount(ctx context.Context, q database.Querier, recordID string) (int, error) {
	query := `
		UPDATE attendance_records
		SET anomaly_count = (
			SELECT COUNT(*) FROM attendance_anomalies
			WHERE attendance_record_id = $1 AND status = $2
		)
		WHERE id = $1
		RETURNING anomaly_count
	`
	var open int
	if err := q.QueryRow(ctx, query, recordID, anomaly.StatusOpen).Scan(&open); err != nil {
		return 0, fmt.Errorf("failed to refresh anomaly count: %w", err)
	}
	return open, nil
}

// List implements anomaly.AnomalyRepository.
func (a *anomalyRepositoryImpl) List(ctx context.Context, filter anomaly.AnomalyFilter) ([]anomaly.Anomaly, int64, error) {
	q := GetQuerier(ctx, a.db)

	baseWhere := "TRUE"
	args := []any{}
	argIdx := 1

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		baseWhere += fmt.Sprintf(" AND employee_id = $%d", argIdx)
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.From != nil && *filter.From != "" {
		baseWhere += fmt.Sprintf(" AND work_date >= $%d", argIdx)
		args = append(args, *filter.From)
		argIdx++
	}
	if filter.To != nil && *filter.To != "" {
		baseWhere += fmt.Sprintf(" AND work_date <= $%d", argIdx)
		args = append(args, *filter.To)
		argIdx++
	}
	if filter.Type != nil && *filter.Type != "" {
		baseWhere += fmt.Sprintf(" AND anomaly_type = $%d", argIdx)
		args = append(args, *filter.Type)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_anomalies WHERE `+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count anomalies: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	offset := (filter.Page - 1) * limit
	args = append(args, limit, offset)

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendance_anomalies
		WHERE %s
		ORDER BY work_date DESC, employee_id, anomaly_type
		LIMIT $%d OFFSET $%d
	`, anomalyColumns, baseWhere, argIdx, argIdx+1)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query anomalies: %w", err)
	}
	defer rows.Close()

	var out []anomaly.Anomaly
	for rows.Next() {
		an, err := scanAnomaly(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan anomaly: %w", err)
		}
		out = append(out, an)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Close implements anomaly.AnomalyRepository.
func (a *anomalyRepositoryImpl) Close(ctx context.Context, id string, status anomaly.Status, by *string, notes *string) (anomaly.Anomaly, error) {
	if _, err := uuid.Parse(id); err != nil {
		return anomaly.Anomaly{}, fmt.Errorf("anomaly %q: %w", id, anomaly.ErrAnomalyNotFound)
	}

	var closed anomaly.Anomaly
	err := WithTransaction(ctx, a.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, a.db)

		query := `
			UPDATE attendance_anomalies
			SET status = $2, resolved_by = $3, resolution_notes = $4, resolved_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = $5
			RETURNING ` + anomalyColumns

		var err error
		closed, err = scanAnomaly(q.QueryRow(ctx, query, id, status, by, notes, anomaly.StatusOpen))
		if err != nil {
			if !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("failed to close anomaly: %w", err)
			}
			var exists bool
			if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM attendance_anomalies WHERE id = $1)`, id).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check anomaly: %w", err)
			}
			if exists {
				return fmt.Errorf("anomaly %s: %w", id, anomaly.ErrAlreadyClosed)
			}
			return fmt.Errorf("anomaly %s: %w", id, anomaly.ErrAnomalyNotFound)
		}

		_, err = refreshAnomalyCount(ctx, q, closed.AttendanceRecordID)
		return err
	})
	if err != nil {
		return anomaly.Anomaly{}, err
	}
	return closed, nil
}

// SaveLateAccumulation implements anomaly.AnomalyRepository.
func (a *anomalyRepositoryImpl) SaveLateAccumulation(ctx context.Context, acc anomaly.LateAccumulation) (anomaly.LateAccumulation, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		INSERT INTO late_accumulations (employee_id, year, week, late_count, absence_generated, generated_on)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (employee_id, year, week) DO UPDATE SET
			late_count = EXCLUDED.late_count,
			absence_generated = late_accumulations.absence_generated OR EXCLUDED.absence_generated,
			generated_on = COALESCE(late_accumulations.generated_on, EXCLUDED.generated_on),
			updated_at = NOW()
		RETURNING employee_id, year, week, late_count, absence_generated, generated_on, updated_at
	`

	var saved anomaly.LateAccumulation
	err := q.QueryRow(ctx, query,
		acc.EmployeeID, acc.Year, acc.Week, acc.LateCount, acc.AbsenceGenerated, acc.GeneratedOn,
	).Scan(&saved.EmployeeID, &saved.Year, &saved.Week, &saved.LateCount, &saved.AbsenceGenerated, &saved.GeneratedOn, &saved.UpdatedAt)
	if err != nil {
		return anomaly.LateAccumulation{}, fmt.Errorf("failed to save late accumulation for employee %s week %d/%d: %w",
			acc.EmployeeID, acc.Week, acc.Year, err)
	}
	return saved, nil
}

// ListLateAccumulations implements anomaly.AnomalyRepository. Weeks are
// selected by their Monday falling in [from, to].
func (a *anomalyRepositoryImpl) ListLateAccumulations(ctx context.Context, employeeID *string, from, to time.Time) ([]anomaly.LateAccumulation, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT employee_id, year, week, late_count, absence_generated, generated_on, updated_at
		FROM late_accumulations
		WHERE to_date(year::text || '-' || lpad(week::text, 2, '0') || '-1', 'IYYY-IW-ID') BETWEEN $1 AND $2
		  AND ($3::uuid IS NULL OR employee_id = $3::uuid)
		ORDER BY year, week, employee_id
	`

	rows, err := q.Query(ctx, query, from, to, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query late accumulations: %w", err)
	}
	defer rows.Close()

	var out []anomaly.LateAccumulation
	for rows.Next() {
		var acc anomaly.LateAccumulation
		if err := rows.Scan(&acc.EmployeeID, &acc.Year, &acc.Week, &acc.LateCount, &acc.AbsenceGenerated, &acc.GeneratedOn, &acc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan late accumulation: %w", err)
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
