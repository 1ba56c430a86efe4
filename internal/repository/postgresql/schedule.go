package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
	"github.com/pinky-hr/attendance-engine/internal/pkg/database"
)

type scheduleRepositoryImpl struct {
	db *database.DB
}

func NewScheduleRepository(db *database.DB) schedule.ScheduleRepository {
	return &scheduleRepositoryImpl{db: db}
}

// dayOverrideRow is the JSON form of one entry of schedules.day_overrides,
// keyed by lower-case weekday name.
type dayOverrideRow struct {
	EntryTime      *string  `json:"entry_time,omitempty"`
	ExitTime       *string  `json:"exit_time,omitempty"`
	DailyWorkHours *float64 `json:"daily_work_hours,omitempty"`
}

// GetActiveForEmployee implements schedule.ScheduleRepository.
func (s *scheduleRepositoryImpl) GetActiveForEmployee(ctx context.Context, employeeID string, date time.Time) (schedule.Schedule, error) {
	q := GetQuerier(ctx, s.db)

	query := `
		SELECT s.id, s.code, s.name, s.entry_time, s.exit_time, s.break_minutes, s.late_tolerance_minutes,
			s.daily_work_hours, s.working_days, s.day_overrides, s.is_active, s.created_at, s.updated_at
		FROM schedules s
		WHERE s.is_active
		  AND s.id = COALESCE(
			(SELECT a.schedule_id
			 FROM schedule_assignments a
			 WHERE a.employee_id = $1
			   AND a.start_date <= $2
			   AND (a.end_date IS NULL OR a.end_date >= $2)
			 ORDER BY a.start_date DESC
			 LIMIT 1),
			(SELECT e.schedule_id FROM employees e WHERE e.id = $1)
		  )
	`

	var (
		sch         schedule.Schedule
		entry, exit pgtype.Time
		days        []string
		overrides   []byte
	)
	err := q.QueryRow(ctx, query, employeeID, date).Scan(
		&sch.ID, &sch.Code, &sch.Name, &entry, &exit, &sch.BreakMinutes, &sch.LateToleranceMinutes,
		&sch.DailyWorkHours, &days, &overrides, &sch.IsActive, &sch.CreatedAt, &sch.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.Schedule{}, fmt.Errorf("employee %s on %s: %w", employeeID, date.Format("2006-01-02"), schedule.ErrScheduleNotFound)
		}
		return schedule.Schedule{}, fmt.Errorf("failed to get schedule for employee %s: %w", employeeID, err)
	}

	sch.EntryTime = clockFromPG(entry)
	sch.ExitTime = clockFromPG(exit)

	for _, name := range days {
		d, ok := schedule.ParseWeekday(name)
		if !ok {
			return schedule.Schedule{}, fmt.Errorf("%w: unknown working day %q on schedule %s", schedule.ErrInvalidSchedule, name, sch.Code)
		}
		sch.WorkingDays = append(sch.WorkingDays, d)
	}

	if sch.DayOverrides, err = decodeDayOverrides(overrides); err != nil {
		return schedule.Schedule{}, fmt.Errorf("%w: schedule %s: %v", schedule.ErrInvalidSchedule, sch.Code, err)
	}

	return sch, nil
}

func clockFromPG(t pgtype.Time) schedule.ClockTime {
	return schedule.ClockTime(time.Duration(t.Microseconds) * time.Microsecond)
}

func decodeDayOverrides(raw []byte) (map[time.Weekday]schedule.DayOverride, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows map[string]dayOverrideRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}

	out := make(map[time.Weekday]schedule.DayOverride, len(rows))
	for name, row := range rows {
		d, ok := schedule.ParseWeekday(name)
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		o := schedule.DayOverride{DailyWorkHours: row.DailyWorkHours}
		if row.EntryTime != nil {
			c, err := schedule.ParseClockTime(*row.EntryTime)
			if err != nil {
				return nil, err
			}
			o.EntryTime = &c
		}
		if row.ExitTime != nil {
			c, err := schedule.ParseClockTime(*row.ExitTime)
			if err != nil {
				return nil, err
			}
			o.ExitTime = &c
		}
		out[d] = o
	}
	return out, nil
}
