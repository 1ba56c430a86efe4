package punch

import "time"

// RawPunch is a single presence event as delivered by the collector.
// Punches are never mutated once stored.
type RawPunch struct {
	DeviceUserID string
	DeviceID     string
	Timestamp    time.Time
	Kind         *string
	Method       string
}

// DeviceUser is a user enrolled on a clock-in device.
type DeviceUser struct {
	UserID string
	Name   string
}

const (
	MethodFingerprint = "fingerprint"
	MethodPassword    = "password"
	MethodOther       = "other"
)

// MethodFromStatus maps the device verification status code to a method name.
func MethodFromStatus(status int) string {
	switch status {
	case 0:
		return MethodFingerprint
	case 1:
		return MethodPassword
	default:
		return MethodOther
	}
}
