package schedule

import (
	"fmt"
	"strings"
	"time"
)

// Schedule is an employee work schedule as kept by the HR data store.
type Schedule struct {
	ID                   string
	Code                 string
	Name                 string
	EntryTime            ClockTime
	ExitTime             ClockTime
	BreakMinutes         int
	LateToleranceMinutes int
	DailyWorkHours       float64
	WorkingDays          []time.Weekday
	DayOverrides         map[time.Weekday]DayOverride
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// DayOverride replaces the default times for one weekday.
type DayOverride struct {
	EntryTime      *ClockTime
	ExitTime       *ClockTime
	DailyWorkHours *float64
}

// ClockTime is a wall-clock time of day expressed as an offset from midnight.
type ClockTime time.Duration

// ParseClockTime parses "HH:MM" or "HH:MM:SS".
func ParseClockTime(s string) (ClockTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockTime(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q", s)
}

// MustClockTime is ParseClockTime for constants and tests.
func MustClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c ClockTime) String() string {
	d := time.Duration(c)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// On returns the instant of c on the calendar day of date, in date's location.
func (c ClockTime) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, date.Location()).Add(time.Duration(c))
}

// IsWorkingDay reports whether day is in the schedule's working-day calendar.
func (s Schedule) IsWorkingDay(day time.Weekday) bool {
	for _, d := range s.WorkingDays {
		if d == day {
			return true
		}
	}
	return false
}

// ResolveFor applies the per-day overrides for date.
func (s Schedule) ResolveFor(date time.Time) Resolved {
	r := Resolved{
		ScheduleID:       s.ID,
		EntryTime:        s.EntryTime,
		ExitTime:         s.ExitTime,
		ToleranceMinutes: s.LateToleranceMinutes,
		BreakMinutes:     s.BreakMinutes,
		DailyHours:       s.DailyWorkHours,
		IsWorkingDay:     s.IsWorkingDay(date.Weekday()),
	}
	if o, ok := s.DayOverrides[date.Weekday()]; ok {
		if o.EntryTime != nil {
			r.EntryTime = *o.EntryTime
		}
		if o.ExitTime != nil {
			r.ExitTime = *o.ExitTime
		}
		if o.DailyWorkHours != nil {
			r.DailyHours = *o.DailyWorkHours
		}
	}
	return r
}

// Resolved is the expected work window for one employee on one date.
type Resolved struct {
	ScheduleID       string
	EntryTime        ClockTime
	ExitTime         ClockTime
	ToleranceMinutes int
	BreakMinutes     int
	DailyHours       float64
	IsWorkingDay     bool
}

// EntryOn returns the scheduled entry instant for workDate.
func (r Resolved) EntryOn(workDate time.Time) time.Time {
	return r.EntryTime.On(workDate)
}

// ExitOn returns the scheduled exit instant for workDate. Schedules whose exit
// is not after their entry end on the following day.
func (r Resolved) ExitOn(workDate time.Time) time.Time {
	exit := r.ExitTime.On(workDate)
	if r.ExitTime <= r.EntryTime {
		exit = exit.AddDate(0, 0, 1)
	}
	return exit
}

// CrossesMidnight reports whether the shift ends on the next calendar day.
func (r Resolved) CrossesMidnight() bool {
	return r.ExitTime <= r.EntryTime
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses an English weekday name, case-insensitively.
func ParseWeekday(name string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}
