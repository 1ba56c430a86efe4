package postgresql_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinky-hr/attendance-engine/internal/domain/punch"
	"github.com/pinky-hr/attendance-engine/internal/repository/postgresql"
)

func TestPunchRepository(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := postgresql.NewPunchRepository(testDB)

	base := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	punches := []punch.RawPunch{
		{DeviceUserID: "1", DeviceID: "dev-1", Timestamp: base, Method: punch.MethodFingerprint},
		{DeviceUserID: "1", DeviceID: "dev-1", Timestamp: base.Add(8 * time.Hour), Method: punch.MethodFingerprint},
		{DeviceUserID: "2", DeviceID: "dev-1", Timestamp: base.AddDate(0, -3, 0), Method: punch.MethodPassword},
	}

	inserted, err := repo.InsertBatch(ctx, punches)
	require.NoError(t, err)
	assert.EqualValues(t, 3, inserted)

	inserted, err = repo.InsertBatch(ctx, punches)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	got, err := repo.ListBetween(ctx, base.Add(-time.Hour), base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Timestamp.Equal(base))
	assert.Equal(t, punch.MethodFingerprint, got[1].Method)

	active, err := repo.ActiveUsersSince(ctx, base.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, active)

	require.NoError(t, repo.UpsertDeviceUsers(ctx, []punch.DeviceUser{{UserID: "1", Name: "NN-1"}, {UserID: "2", Name: "ANA"}}))
	require.NoError(t, repo.UpsertDeviceUsers(ctx, []punch.DeviceUser{{UserID: "1", Name: "JUAN PEREZ"}}))

	users, err := repo.ListDeviceUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []punch.DeviceUser{{UserID: "1", Name: "JUAN PEREZ"}, {UserID: "2", Name: "ANA"}}, users)
}
