package attendance

import (
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/designation"
	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
	"github.com/shopspring/decimal"
)

// DayContext is the reference data the classifier compares segments against.
// WorkDate is midnight of the work date in the policy location.
type DayContext struct {
	WorkDate    time.Time
	Schedule    schedule.Resolved
	Designation *designation.Designation
}

// Classify computes the record metrics for one work date. It is a pure
// function of its arguments.
func Classify(seg Segmentation, day DayContext, p Policy) attendance.Metrics {
	var m attendance.Metrics

	sch := day.Schedule
	entry := sch.EntryOn(day.WorkDate)
	exit := sch.ExitOn(day.WorkDate)
	closed := seg.Closed()
	hasPunches := len(seg.Segments) > 0

	switch {
	case len(closed) > 0:
		in, out := closed[0].Start, closed[len(closed)-1].End
		m.CheckIn, m.CheckOut = &in, &out
	case hasPunches:
		// A lone punch is a check-in when it falls in the first half of the
		// scheduled window, a check-out otherwise.
		t := seg.Segments[0].Start
		mid := entry.Add(exit.Sub(entry) / 2)
		if t.Before(mid) {
			m.CheckIn = &t
		} else {
			m.CheckOut = &t
		}
	}

	worked := seg.Worked()
	if p.MaxDailyHours > 0 {
		limit := time.Duration(p.MaxDailyHours * float64(time.Hour))
		if worked > limit {
			worked = limit
			m.RequiresReview = true
		}
	}
	workedHours := toHours(worked)
	m.WorkedHours = workedHours.InexactFloat64()
	m.BreakMinutes = int(seg.Break / time.Minute)

	daily := sch.DailyHours
	if !sch.IsWorkingDay {
		daily = 0
	}
	overtime := decimal.Max(decimal.Zero, workedHours.Sub(decimal.NewFromFloat(daily)))
	m.OvertimeHours = overtime.Round(2).InexactFloat64()
	m.RegularHours = workedHours.Sub(overtime).Round(2).InexactFloat64()

	if sch.IsWorkingDay && m.CheckIn != nil {
		late := m.CheckIn.Sub(entry) - time.Duration(sch.ToleranceMinutes)*time.Minute
		if late > 0 {
			m.LateMinutes = int(late / time.Minute)
		}
	}
	if sch.IsWorkingDay && len(closed) > 0 {
		if early := exit.Sub(*m.CheckOut); early > 0 {
			m.EarlyDepartureMinutes = int(early / time.Minute)
		}
	}

	night := nightOverlap(closed, day.WorkDate, p)
	m.NightHours = toHours(night).InexactFloat64()
	m.IsNightShift = night > 0
	if seg.HasOpen() && inNightWindow(seg.Segments[len(seg.Segments)-1].Start, day.WorkDate, p) {
		m.IsNightShift = true
	}

	m.IsRestDayWork = !sch.IsWorkingDay && hasPunches
	m.RequiresReview = m.RequiresReview || seg.HasOpen()

	switch {
	case day.Designation != nil:
		m.Status = attendance.Status(day.Designation.Kind)
	case !hasPunches:
		m.Status = attendance.StatusAbsent
	case len(closed) == 0:
		m.Status = attendance.StatusPartial
	case m.LateMinutes > 0:
		m.Status = attendance.StatusLate
	case daily > 0 && m.WorkedHours < daily*p.PartialFraction:
		m.Status = attendance.StatusPartial
	default:
		m.Status = attendance.StatusPresent
	}
	return m
}

// nightWindows returns the night windows that can touch a shift worked on
// workDate: the one opening the evening before, that day's, and the next.
func nightWindows(workDate time.Time, p Policy) [][2]time.Time {
	out := make([][2]time.Time, 0, 3)
	for offset := -1; offset <= 1; offset++ {
		d := workDate.AddDate(0, 0, offset)
		start, end := p.NightStart.On(d), p.NightEnd.On(d)
		if p.NightEnd <= p.NightStart {
			end = end.AddDate(0, 0, 1)
		}
		out = append(out, [2]time.Time{start, end})
	}
	return out
}

func nightOverlap(segments []WorkSegment, workDate time.Time, p Policy) time.Duration {
	var total time.Duration
	windows := nightWindows(workDate, p)
	for _, seg := range segments {
		for _, w := range windows {
			start := maxTime(seg.Start, w[0])
			end := minTime(seg.End, w[1])
			if end.After(start) {
				total += end.Sub(start)
			}
		}
	}
	return total
}

func inNightWindow(t, workDate time.Time, p Policy) bool {
	for _, w := range nightWindows(workDate, p) {
		if !t.Before(w[0]) && t.Before(w[1]) {
			return true
		}
	}
	return false
}

// toHours converts d to hours rounded half away from zero to two places.
func toHours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(decimal.NewFromInt(int64(time.Hour))).Round(2)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
