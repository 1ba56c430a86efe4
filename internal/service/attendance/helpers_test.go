package attendance

import (
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
)

// monday is 2024-03-04, a Monday.
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func at(day time.Time, hh, mm int) time.Time {
	return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func punchesAt(day time.Time, clock ...[2]int) []time.Time {
	out := make([]time.Time, 0, len(clock))
	for _, c := range clock {
		out = append(out, at(day, c[0], c[1]))
	}
	return out
}

func stored(ts ...time.Time) []attendance.StoredPunch {
	out := make([]attendance.StoredPunch, 0, len(ts))
	for _, t := range ts {
		out = append(out, attendance.StoredPunch{Timestamp: t, DeviceID: "dev-1", Method: "fingerprint", Kept: true})
	}
	return out
}

func officeSchedule() schedule.Resolved {
	return schedule.Resolved{
		ScheduleID:       "office",
		EntryTime:        schedule.MustClockTime("09:00"),
		ExitTime:         schedule.MustClockTime("17:00"),
		ToleranceMinutes: 10,
		DailyHours:       8,
		IsWorkingDay:     true,
	}
}

func nightSchedule() schedule.Resolved {
	return schedule.Resolved{
		ScheduleID:       "night",
		EntryTime:        schedule.MustClockTime("22:00"),
		ExitTime:         schedule.MustClockTime("06:00"),
		ToleranceMinutes: 10,
		DailyHours:       8,
		IsWorkingDay:     true,
	}
}

func classifyDay(ts []time.Time, day DayContext, p Policy) attendance.Metrics {
	kept := Deduplicate(ts, p.DuplicateWindow)
	seg := Segment(kept, p.LunchThreshold, day.WorkDate.AddDate(0, 0, 1))
	return Classify(seg, day, p)
}
