package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	"github.com/pinky-hr/attendance-engine/internal/pkg/database"
)

const (
	syncLogColumns = `id, status, trigger, requested_by, from_date, to_date, days,
	started_at, completed_at,
	devices_synced, devices_failed, total_users,
	records_fetched, records_processed, records_created, records_updated, records_failed,
	employees_imported, employees_updated, employees_marked_inactive,
	anomalies_detected, errors, created_at, updated_at`

	singleRunningIndex = "uq_sync_logs_single_running"
)

type syncLogRepositoryImpl struct {
	db *database.DB
}

func NewSyncLogRepository(db *database.DB) synclog.SyncLogRepository {
	return &syncLogRepositoryImpl{db: db}
}

func scanSyncLog(row pgx.Row) (synclog.SyncLog, error) {
	var (
		l   synclog.SyncLog
		raw []byte
	)
	err := row.Scan(
		&l.ID, &l.Status, &l.Trigger, &l.RequestedBy, &l.FromDate, &l.ToDate, &l.Days,
		&l.StartedAt, &l.CompletedAt,
		&l.DevicesSynced, &l.DevicesFailed, &l.TotalUsers,
		&l.RecordsFetched, &l.RecordsProcessed, &l.RecordsCreated, &l.RecordsUpdated, &l.RecordsFailed,
		&l.EmployeesImported, &l.EmployeesUpdated, &l.EmployeesMarkedInactive,
		&l.AnomaliesDetected, &raw, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return synclog.SyncLog{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &l.Errors); err != nil {
			return synclog.SyncLog{}, fmt.Errorf("failed to decode errors of sync log %s: %w", l.ID, err)
		}
	}
	return l, nil
}

func encodeErrors(entries []synclog.ErrorEntry) ([]byte, error) {
	if entries == nil {
		entries = []synclog.ErrorEntry{}
	}
	return json.Marshal(entries)
}

func (s *syncLogRepositoryImpl) insert(ctx context.Context, l synclog.SyncLog) (synclog.SyncLog, error) {
	q := GetQuerier(ctx, s.db)

	id, err := uuid.NewV7()
	if err != nil {
		return synclog.SyncLog{}, fmt.Errorf("failed to generate sync log id: %w", err)
	}

	query := `
		INSERT INTO sync_logs (id, status, trigger, requested_by, from_date, to_date, days, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + syncLogColumns

	return scanSyncLog(q.QueryRow(ctx, query,
		id.String(), l.Status, l.Trigger, l.RequestedBy, l.FromDate, l.ToDate, l.Days, l.StartedAt,
	))
}

// Create implements synclog.SyncLogRepository.
func (s *syncLogRepositoryImpl) Create(ctx context.Context, l synclog.SyncLog) (synclog.SyncLog, error) {
	created, err := s.insert(ctx, l)
	if err != nil {
		return synclog.SyncLog{}, fmt.Errorf("failed to create sync log: %w", err)
	}
	return created, nil
}

// CreateRunning implements synclog.SyncLogRepository.
func (s *syncLogRepositoryImpl) CreateRunning(ctx context.Context, l synclog.SyncLog) (synclog.SyncLog, error) {
	l.Status = synclog.StatusRunning
	created, err := s.insert(ctx, l)
	if err != nil {
		if database.IsUniqueViolation(err, singleRunningIndex) {
			return synclog.SyncLog{}, synclog.ErrSyncInProgress
		}
		return synclog.SyncLog{}, fmt.Errorf("failed to create running sync log: %w", err)
	}
	return created, nil
}

// GetByID implements synclog.SyncLogRepository.
func (s *syncLogRepositoryImpl) GetByID(ctx context.Context, id string) (synclog.SyncLog, error) {
	q := GetQuerier(ctx, s.db)

	if _, err := uuid.Parse(id); err != nil {
		return synclog.SyncLog{}, fmt.Errorf("sync log %q: %w", id, synclog.ErrSyncLogNotFound)
	}

	l, err := scanSyncLog(q.QueryRow(ctx, `SELECT `+syncLogColumns+` FROM sync_logs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return synclog.SyncLog{}, fmt.Errorf("sync log %s: %w", id, synclog.ErrSyncLogNotFound)
		}
		return synclog.SyncLog{}, fmt.Errorf("failed to get sync log: %w", err)
	}
	return l, nil
}

// OldestPending implements synclog.SyncLogRepository.
func (s *syncLogRepositoryImpl) OldestPending(ctx context.Context) (*synclog.SyncLog, error) {
	q := GetQuerier(ctx, s.db)

	query := `SELECT ` + syncLogColumns + ` FROM sync_logs WHERE status = $1 ORDER BY created_at, id LIMIT 1`

	l, err := scanSyncLog(q.QueryRow(ctx, query, synclog.StatusPending))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending sync log: %w", err)
	}
	return &l, nil
}

// List implements synclog.SyncLogRepository.
func (s *syncLogRepositoryImpl) List(ctx context.Context, filter synclog.SyncLogFilter) ([]synclog.SyncLog, int64, error) {
	q := GetQuerier(ctx, s.db)

	var total int64
	if err := q.QueryRow(ctx,
		`SELECT COUNT(*) FROM sync_logs WHERE ($1::text IS NULL OR status = $1::text)`, filter.Status,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sync logs: %w", err)
	}

	query := `
		SELECT ` + syncLogColumns + `
		FROM sync_logs
		WHERE ($1::text IS NULL OR status = $1::text)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := q.Query(ctx, query, filter.Status, filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query sync logs: %w", err)
	}
	defer rows.Close()

	var logs []synclog.SyncLog
	for rows.Next() {
		l, err := scanSyncLog(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sync log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}

// MarkRunning implements synclog.SyncLogRepository. The status guard in the
// WHERE clause makes the claim a compare-and-swap; the partial unique index
// rejects a second running job.
func (s *syncLogRepositoryImpl) MarkRunning(ctx context.Context, id string, startedAt time.Time) (synclog.SyncLog, error) {
	q := GetQuerier(ctx, s.db)

	current, err := s.GetByID(ctx, id)
	if err != nil {
		return synclog.SyncLog{}, err
	}
	if current.Status != synclog.StatusPending {
		return synclog.SyncLog{}, fmt.Errorf("sync log %s is %s: %w", id, current.Status, synclog.ErrStaleJobClaim)
	}

	query := `
		UPDATE sync_logs
		SET status = $2, started_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING ` + syncLogColumns

	l, err := scanSyncLog(q.QueryRow(ctx, query, id, synclog.StatusRunning, startedAt, synclog.StatusPending))
	if err != nil {
		if database.IsUniqueViolation(err, singleRunningIndex) {
			return synclog.SyncLog{}, synclog.ErrSyncInProgress
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return synclog.SyncLog{}, fmt.Errorf("sync log %s was claimed concurrently: %w", id, synclog.ErrStaleJobClaim)
		}
		return synclog.SyncLog{}, fmt.Errorf("failed to mark sync log running: %w", err)
	}
	return l, nil
}

// Finish implements synclog.SyncLogRepository.
func (s *syncLogRepositoryImpl) Finish(ctx context.Context, id string, out synclog.Outcome, completedAt time.Time) (synclog.SyncLog, error) {
	q := GetQuerier(ctx, s.db)

	raw, err := encodeErrors(out.Errors)
	if err != nil {
		return synclog.SyncLog{}, fmt.Errorf("failed to encode sync errors: %w", err)
	}

	query := `
		UPDATE sync_logs
		SET status = $2, completed_at = $3,
			devices_synced = $4, devices_failed = $5, total_users = $6,
			records_fetched = $7, records_processed = $8, records_created = $9,
			records_updated = $10, records_failed = $11,
			employees_imported = $12, employees_updated = $13, employees_marked_inactive = $14,
			anomalies_detected = $15, errors = $16, updated_at = NOW()
		WHERE id = $1 AND status = $17
		RETURNING ` + syncLogColumns

	c := out.Counters
	l, err := scanSyncLog(q.QueryRow(ctx, query,
		id, out.Status, completedAt,
		c.DevicesSynced, c.DevicesFailed, c.TotalUsers,
		c.RecordsFetched, c.RecordsProcessed, c.RecordsCreated,
		c.RecordsUpdated, c.RecordsFailed,
		c.EmployeesImported, c.EmployeesUpdated, c.EmployeesMarkedInactive,
		c.AnomaliesDetected, raw, synclog.StatusRunning,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return synclog.SyncLog{}, fmt.Errorf("sync log %s is not running: %w", id, synclog.ErrStaleJobClaim)
		}
		return synclog.SyncLog{}, fmt.Errorf("failed to finish sync log: %w", err)
	}
	return l, nil
}

// SweepStuck implements synclog.SyncLogRepository.
func (s *syncLogRepositoryImpl) SweepStuck(ctx context.Context, startedBefore, now time.Time, entry synclog.ErrorEntry) ([]string, error) {
	q := GetQuerier(ctx, s.db)

	raw, err := json.Marshal([]synclog.ErrorEntry{entry})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sweep entry: %w", err)
	}

	query := `
		UPDATE sync_logs
		SET status = $1, completed_at = $2, errors = errors || $3::jsonb, updated_at = NOW()
		WHERE status = $4 AND started_at < $5
		RETURNING id
	`

	rows, err := q.Query(ctx, query, synclog.StatusFailed, now, raw, synclog.StatusRunning, startedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep stuck sync logs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan swept sync logs: %w", err)
	}
	return ids, nil
}

// HasRunning implements synclog.SyncLogRepository.
func (s *syncLogRepositoryImpl) HasRunning(ctx context.Context) (bool, error) {
	q := GetQuerier(ctx, s.db)

	var running bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sync_logs WHERE status = $1)`, synclog.StatusRunning).Scan(&running); err != nil {
		return false, fmt.Errorf("failed to check running sync: %w", err)
	}
	return running, nil
}
