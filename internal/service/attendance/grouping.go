package attendance

import (
	"slices"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
)

// DayPunches are the punches attributed to one work date.
type DayPunches struct {
	WorkDate time.Time
	Punches  []attendance.StoredPunch
}

// DateOf returns midnight of t's calendar date in loc.
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// CivilDate keeps t's own year, month and day and places midnight of that
// date in loc. Dates read back from storage arrive as UTC midnight.
func CivilDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func clockOf(t time.Time, loc *time.Location) schedule.ClockTime {
	local := t.In(loc)
	return schedule.ClockTime(local.Sub(DateOf(local, loc)))
}

// GroupByWorkDate buckets punches by local calendar date. A date whose
// punches all fall before the morning cutoff is folded into the previous
// date when that one has a punch at or after the evening cutoff, so a night
// shift stays on the date it started.
func GroupByWorkDate(punches []attendance.StoredPunch, p Policy) []DayPunches {
	loc := p.Zone()
	byDate := make(map[time.Time][]attendance.StoredPunch)
	for _, pu := range punches {
		d := DateOf(pu.Timestamp, loc)
		byDate[d] = append(byDate[d], pu)
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	slices.SortFunc(dates, func(a, b time.Time) int { return a.Compare(b) })

	for _, d := range dates {
		prev := d.AddDate(0, 0, -1)
		prevPunches, ok := byDate[prev]
		if !ok {
			continue
		}
		if allBefore(byDate[d], p.MorningCutoff, loc) && anyAtOrAfter(prevPunches, p.EveningCutoff, loc) {
			byDate[prev] = append(prevPunches, byDate[d]...)
			delete(byDate, d)
		}
	}

	out := make([]DayPunches, 0, len(byDate))
	for _, d := range dates {
		ps, ok := byDate[d]
		if !ok {
			continue
		}
		slices.SortStableFunc(ps, func(a, b attendance.StoredPunch) int {
			return a.Timestamp.Compare(b.Timestamp)
		})
		out = append(out, DayPunches{WorkDate: d, Punches: ps})
	}
	return out
}

func allBefore(ps []attendance.StoredPunch, cutoff schedule.ClockTime, loc *time.Location) bool {
	for _, p := range ps {
		if clockOf(p.Timestamp, loc) >= cutoff {
			return false
		}
	}
	return true
}

func anyAtOrAfter(ps []attendance.StoredPunch, cutoff schedule.ClockTime, loc *time.Location) bool {
	for _, p := range ps {
		if clockOf(p.Timestamp, loc) >= cutoff {
			return true
		}
	}
	return false
}

// DatesBetween lists each calendar date in [from, to].
func DatesBetween(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}
