package punch

import (
	"fmt"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/pkg/validator"
)

// PunchPayload is the wire form of a punch sent by the collector agent.
type PunchPayload struct {
	UserID    string  `json:"user_id"`
	DeviceID  string  `json:"device_id"`
	Timestamp string  `json:"timestamp"`
	PunchKind *string `json:"punch_kind,omitempty"`
	Status    int     `json:"status"`
}

// DeviceUserPayload is the wire form of an enrolled device user.
type DeviceUserPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// ToRawPunch validates the payload and converts it. Timestamps without an
// offset are interpreted in loc, since devices report local wall-clock time.
func (p PunchPayload) ToRawPunch(loc *time.Location) (RawPunch, error) {
	if validator.IsEmpty(p.UserID) {
		return RawPunch{}, fmt.Errorf("%w: user_id is required", ErrInvalidPunch)
	}
	ts, ok := validator.IsValidDateTime(p.Timestamp)
	if !ok {
		ts, ok = validator.IsValidLocalDateTime(p.Timestamp, loc)
	}
	if !ok {
		return RawPunch{}, fmt.Errorf("%w: invalid timestamp %q", ErrInvalidPunch, p.Timestamp)
	}
	return RawPunch{
		DeviceUserID: p.UserID,
		DeviceID:     p.DeviceID,
		Timestamp:    ts,
		Kind:         p.PunchKind,
		Method:       MethodFromStatus(p.Status),
	}, nil
}
