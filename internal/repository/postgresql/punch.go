package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pinky-hr/attendance-engine/internal/domain/punch"
	"github.com/pinky-hr/attendance-engine/internal/pkg/database"
)

const punchBatchSize = 500

type punchRepositoryImpl struct {
	db *database.DB
}

func NewPunchRepository(db *database.DB) punch.PunchRepository {
	return &punchRepositoryImpl{db: db}
}

// InsertBatch implements punch.PunchRepository. All punches are inserted in
// one transaction.
func (p *punchRepositoryImpl) InsertBatch(ctx context.Context, punches []punch.RawPunch) (int64, error) {
	if len(punches) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO raw_punches (device_user_id, device_id, punched_at, punch_kind, method)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_user_id, device_id, punched_at) DO NOTHING
	`

	var inserted int64
	err := WithTransaction(ctx, p.db, func(ctx context.Context) error {
		q := GetQuerier(ctx, p.db)
		for start := 0; start < len(punches); start += punchBatchSize {
			chunk := punches[start:min(start+punchBatchSize, len(punches))]

			batch := &pgx.Batch{}
			for _, rp := range chunk {
				batch.Queue(query, rp.DeviceUserID, rp.DeviceID, rp.Timestamp, rp.Kind, rp.Method)
			}

			results := q.SendBatch(ctx, batch)
			for range chunk {
				tag, err := results.Exec()
				if err != nil {
					results.Close()
					return fmt.Errorf("failed to insert punch: %w", err)
				}
				inserted += tag.RowsAffected()
			}
			if err := results.Close(); err != nil {
				return fmt.Errorf("failed to close punch batch: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListBetween implements punch.PunchRepository.
func (p *punchRepositoryImpl) ListBetween(ctx context.Context, from, to time.Time) ([]punch.RawPunch, error) {
	q := GetQuerier(ctx, p.db)

	query := `
		SELECT device_user_id, device_id, punched_at, punch_kind, method
		FROM raw_punches
		WHERE punched_at >= $1 AND punched_at < $2
		ORDER BY device_user_id, punched_at
	`

	rows, err := q.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query punches: %w", err)
	}
	defer rows.Close()

	var punches []punch.RawPunch
	for rows.Next() {
		var rp punch.RawPunch
		if err := rows.Scan(&rp.DeviceUserID, &rp.DeviceID, &rp.Timestamp, &rp.Kind, &rp.Method); err != nil {
			return nil, fmt.Errorf("failed to scan punch: %w", err)
		}
		punches = append(punches, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return punches, nil
}

// ActiveUsersSince implements punch.PunchRepository.
func (p *punchRepositoryImpl) ActiveUsersSince(ctx context.Context, since time.Time) ([]string, error) {
	q := GetQuerier(ctx, p.db)

	rows, err := q.Query(ctx, `SELECT DISTINCT device_user_id FROM raw_punches WHERE punched_at >= $1`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query active device users: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan active device users: %w", err)
	}
	return ids, nil
}

// UpsertDeviceUsers implements punch.PunchRepository.
func (p *punchRepositoryImpl) UpsertDeviceUsers(ctx context.Context, users []punch.DeviceUser) error {
	if len(users) == 0 {
		return nil
	}
	q := GetQuerier(ctx, p.db)

	query := `
		INSERT INTO device_users (user_id, name, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, u := range users {
		batch.Queue(query, u.UserID, u.Name)
	}
	if err := q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert device users: %w", err)
	}
	return nil
}

// ListDeviceUsers implements punch.PunchRepository.
func (p *punchRepositoryImpl) ListDeviceUsers(ctx context.Context) ([]punch.DeviceUser, error) {
	q := GetQuerier(ctx, p.db)

	rows, err := q.Query(ctx, `SELECT user_id, name FROM device_users ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query device users: %w", err)
	}
	defer rows.Close()

	var users []punch.DeviceUser
	for rows.Next() {
		var u punch.DeviceUser
		if err := rows.Scan(&u.UserID, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan device user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}
