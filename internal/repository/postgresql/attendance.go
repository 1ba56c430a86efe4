package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/pkg/database"
)

const attendanceColumns = `id, employee_id, work_date, check_in, check_out,
	worked_hours, regular_hours, overtime_hours, night_hours,
	late_minutes, early_departure_minutes, break_minutes,
	is_night_shift, is_rest_day_work, requires_review, status,
	raw_punches, punch_fingerprint,
	manual_overtime_hours, manual_night_shift, manual_fingerprint, manual_reason,
	anomaly_count, created_at, updated_at`

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

func scanRecord(row pgx.Row) (attendance.Record, error) {
	var (
		rec attendance.Record
		raw []byte
	)
	err := row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.WorkDate, &rec.CheckIn, &rec.CheckOut,
		&rec.WorkedHours, &rec.RegularHours, &rec.OvertimeHours, &rec.NightHours,
		&rec.LateMinutes, &rec.EarlyDepartureMinutes, &rec.BreakMinutes,
		&rec.IsNightShift, &rec.IsRestDayWork, &rec.RequiresReview, &rec.Status,
		&raw, &rec.PunchFingerprint,
		&rec.ManualOvertimeHours, &rec.ManualNightShift, &rec.ManualFingerprint, &rec.ManualReason,
		&rec.AnomalyCount, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return attendance.Record{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.RawPunches); err != nil {
			return attendance.Record{}, fmt.Errorf("%w: record %s: %v", attendance.ErrInvalidRawPunches, rec.ID, err)
		}
	}
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]attendance.Record, error) {
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Get implements attendance.AttendanceRepository.
func (a *attendanceRepository) Get(ctx context.Context, employeeID string, workDate time.Time) (*attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE employee_id = $1 AND work_date = $2`

	rec, err := scanRecord(q.QueryRow(ctx, query, employeeID, workDate))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}
	return &rec, nil
}

// Upsert implements attendance.AttendanceRepository. xmax is zero only on
// rows inserted by this statement.
func (a *attendanceRepository) Upsert(ctx context.Context, rec attendance.Record) (bool, error) {
	q := GetQuerier(ctx, a.db)

	if rec.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return false, fmt.Errorf("failed to generate attendance id: %w", err)
		}
		rec.ID = id.String()
	}

	punches := rec.RawPunches
	if punches == nil {
		punches = []attendance.StoredPunch{}
	}
	raw, err := json.Marshal(punches)
	if err != nil {
		return false, fmt.Errorf("failed to encode raw punches: %w", err)
	}

	query := `
		INSERT INTO attendance_records (
			id, employee_id, work_date, check_in, check_out,
			worked_hours, regular_hours, overtime_hours, night_hours,
			late_minutes, early_departure_minutes, break_minutes,
			is_night_shift, is_rest_day_work, requires_review, status,
			raw_punches, punch_fingerprint,
			manual_overtime_hours, manual_night_shift, manual_fingerprint, manual_reason
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22
		)
		ON CONFLICT (employee_id, work_date) DO UPDATE SET
			check_in = EXCLUDED.check_in,
			check_out = EXCLUDED.check_out,
			worked_hours = EXCLUDED.worked_hours,
			regular_hours = EXCLUDED.regular_hours,
			overtime_hours = EXCLUDED.overtime_hours,
			night_hours = EXCLUDED.night_hours,
			late_minutes = EXCLUDED.late_minutes,
			early_departure_minutes = EXCLUDED.early_departure_minutes,
			break_minutes = EXCLUDED.break_minutes,
			is_night_shift = EXCLUDED.is_night_shift,
			is_rest_day_work = EXCLUDED.is_rest_day_work,
			requires_review = EXCLUDED.requires_review,
			status = EXCLUDED.status,
			raw_punches = EXCLUDED.raw_punches,
			punch_fingerprint = EXCLUDED.punch_fingerprint,
			manual_overtime_hours = EXCLUDED.manual_overtime_hours,
			manual_night_shift = EXCLUDED.manual_night_shift,
			manual_fingerprint = EXCLUDED.manual_fingerprint,
			manual_reason = EXCLUDED.manual_reason,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`

	var created bool
	err = q.QueryRow(ctx, query,
		rec.ID, rec.EmployeeID, rec.WorkDate, rec.CheckIn, rec.CheckOut,
		rec.WorkedHours, rec.RegularHours, rec.OvertimeHours, rec.NightHours,
		rec.LateMinutes, rec.EarlyDepartureMinutes, rec.BreakMinutes,
		rec.IsNightShift, rec.IsRestDayWork, rec.RequiresReview, rec.Status,
		raw, rec.PunchFingerprint,
		rec.ManualOvertimeHours, rec.ManualNightShift, rec.ManualFingerprint, rec.ManualReason,
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("failed to upsert attendance record for employee %s on %s: %w",
			rec.EmployeeID, rec.WorkDate.Format("2006-01-02"), err)
	}
	return created, nil
}

// ListChunk implements attendance.AttendanceRepository.
func (a *attendanceRepository) ListChunk(ctx context.Context, cq attendance.ChunkQuery) ([]attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	where := []string{"work_date >= $1", "work_date <= $2"}
	args := []any{cq.From, cq.To}
	argIdx := 3

	if cq.EmployeeID != nil {
		where = append(where, fmt.Sprintf("employee_id = $%d", argIdx))
		args = append(args, *cq.EmployeeID)
		argIdx++
	}
	if cq.AfterDate != nil {
		where = append(where, fmt.Sprintf("(work_date, employee_id) > ($%d, $%d)", argIdx, argIdx+1))
		args = append(args, *cq.AfterDate, cq.AfterEmployeeID)
		argIdx += 2
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records
		WHERE %s
		ORDER BY work_date, employee_id
		LIMIT $%d
	`, attendanceColumns, strings.Join(where, " AND "), argIdx)
	args = append(args, cq.Limit)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance chunk: %w", err)
	}
	return collectRecords(rows)
}

// Count implements attendance.AttendanceRepository.
func (a *attendanceRepository) Count(ctx context.Context, from, to time.Time, employeeID *string) (int64, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		SELECT COUNT(*)
		FROM attendance_records
		WHERE work_date >= $1 AND work_date <= $2
		  AND ($3::uuid IS NULL OR employee_id = $3::uuid)
	`

	var total int64
	if err := q.QueryRow(ctx, query, from, to, employeeID).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count attendance records: %w", err)
	}
	return total, nil
}

// List implements attendance.AttendanceRepository.
func (a *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Record, int64, error) {
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
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM attendance_records WHERE `+baseWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendance records: %w", err)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 20
	}
	offset := (filter.Page - 1) * limit
	args = append(args, limit, offset)

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendance_records
		WHERE %s
		ORDER BY work_date DESC, employee_id
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, baseWhere, argIdx, argIdx+1)

	rows, err := q.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query attendance records: %w", err)
	}
	records, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// SetManualDesignation implements attendance.AttendanceRepository.
func (a *attendanceRepository) SetManualDesignation(ctx context.Context, employeeID string, workDate time.Time, overtime *float64, night *bool, reason *string) (attendance.Record, error) {
	q := GetQuerier(ctx, a.db)

	query := `
		UPDATE attendance_records
		SET manual_overtime_hours = $3,
			manual_night_shift = $4,
			manual_reason = $5,
			manual_fingerprint = punch_fingerprint,
			updated_at = NOW()
		WHERE employee_id = $1 AND work_date = $2
		RETURNING ` + attendanceColumns

	rec, err := scanRecord(q.QueryRow(ctx, query, employeeID, workDate, overtime, night, reason))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Record{}, fmt.Errorf("employee %s on %s: %w", employeeID, workDate.Format("2006-01-02"), attendance.ErrAttendanceNotFound)
		}
		return attendance.Record{}, fmt.Errorf("failed to set manual designation: %w", err)
	}
	return rec, nil
}

// Delete implements attendance.AttendanceRepository. Anomalies of the record
// go with it.
func (a *attendanceRepository) Delete(ctx context.Context, employeeID string, workDate time.Time) error {
	q := GetQuerier(ctx, a.db)

	query := `DELETE FROM attendance_records WHERE employee_id = $1 AND work_date = $2`
	if _, err := q.Exec(ctx, query, employeeID, workDate); err != nil {
		return fmt.Errorf("failed to delete attendance record for employee %s on %s: %w",
			employeeID, workDate.Format("2006-01-02"), err)
	}
	return nil
}
