package attendance

import (
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
)

// Policy holds the reconciliation thresholds. They are configuration, not
// constants; DefaultPolicy returns the values used when nothing is set.
type Policy struct {
	DuplicateWindow time.Duration
	LunchThreshold  time.Duration
	MaxDailyHours   float64
	NightStart      schedule.ClockTime
	NightEnd        schedule.ClockTime
	PartialFraction float64

	// A date whose punches all fall before MorningCutoff continues the
	// previous date when that date has a punch at or after EveningCutoff.
	MorningCutoff schedule.ClockTime
	EveningCutoff schedule.ClockTime

	Location *time.Location
}

func DefaultPolicy() Policy {
	return Policy{
		DuplicateWindow: 5 * time.Minute,
		LunchThreshold:  30 * time.Minute,
		MaxDailyHours:   16,
		NightStart:      schedule.MustClockTime("22:00"),
		NightEnd:        schedule.MustClockTime("06:00"),
		PartialFraction: 0.5,
		MorningCutoff:   schedule.MustClockTime("06:00"),
		EveningCutoff:   schedule.MustClockTime("20:00"),
		Location:        time.UTC,
	}
}

// Zone is the timezone used to derive work dates.
func (p Policy) Zone() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}
