package punch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPunchPayloadToRawPunch(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)

	tests := []struct {
		name    string
		payload PunchPayload
		want    time.Time
		method  string
		wantErr bool
	}{
		{
			name:    "offset timestamp",
			payload: PunchPayload{UserID: "7", DeviceID: "dev-1", Timestamp: "2024-03-04T09:00:00Z"},
			want:    time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC),
			method:  MethodFingerprint,
		},
		{
			name:    "device local time",
			payload: PunchPayload{UserID: "7", Timestamp: "2024-03-04 09:00:00", Status: 1},
			want:    time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC),
			method:  MethodPassword,
		},
		{
			name:    "missing user",
			payload: PunchPayload{Timestamp: "2024-03-04T09:00:00Z"},
			wantErr: true,
		},
		{
			name:    "bad timestamp",
			payload: PunchPayload{UserID: "7", Timestamp: "yesterday"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.payload.ToRawPunch(loc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPunch)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Timestamp), "got %v", got.Timestamp)
			assert.Equal(t, tt.method, got.Method)
			assert.Equal(t, tt.payload.UserID, got.DeviceUserID)
		})
	}
}

func TestMethodFromStatus(t *testing.T) {
	assert.Equal(t, MethodFingerprint, MethodFromStatus(0))
	assert.Equal(t, MethodPassword, MethodFromStatus(1))
	assert.Equal(t, MethodOther, MethodFromStatus(15))
}
