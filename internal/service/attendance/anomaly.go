package attendance

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/authorization"
)

// AnomalyRules holds the detection thresholds.
type AnomalyRules struct {
	// BreakAllowance is how far a break may exceed the scheduled break.
	BreakAllowance time.Duration
	// LateToAbsence is the number of unexcused late arrivals in one ISO
	// week that counts as an absence. Zero disables accumulation.
	LateToAbsence int
}

func DefaultAnomalyRules() AnomalyRules {
	return AnomalyRules{BreakAllowance: 15 * time.Minute, LateToAbsence: 6}
}

// Fixed detection thresholds.
const (
	lateArrivalMinutes    = 30
	earlyDepartureMinutes = 15
	severeMinutes         = 60
	earlyArrivalMinutes   = 60
	lunchRequiredHours    = 5
	maxNormalPunches      = 8
)

// AnomalyDetector implements Detector over the anomaly store.
type AnomalyDetector struct {
	anomalies      anomaly.AnomalyRepository
	records        attendance.AttendanceRepository
	authorizations authorization.Lookup
	rules          AnomalyRules
}

func NewAnomalyDetector(
	anomalies anomaly.AnomalyRepository,
	records attendance.AttendanceRepository,
	authorizations authorization.Lookup,
	rules AnomalyRules,
) *AnomalyDetector {
	return &AnomalyDetector{
		anomalies:      anomalies,
		records:        records,
		authorizations: authorizations,
		rules:          rules,
	}
}

var _ Detector = (*AnomalyDetector)(nil)

// Detect evaluates the record, refreshes the late accumulation of its week
// and stores the detected set.
func (d *AnomalyDetector) Detect(ctx context.Context, rec attendance.Record, day DayContext) (anomaly.SyncResult, error) {
	found, err := d.Evaluate(ctx, rec, day)
	if err != nil {
		return anomaly.SyncResult{}, err
	}

	acc, err := d.accumulateLate(ctx, rec)
	if err != nil {
		return anomaly.SyncResult{}, err
	}
	if acc != nil && acc.GeneratedOn != nil && sameDate(*acc.GeneratedOn, rec.WorkDate) {
		found = append(found, lateAccumulation(rec, *acc, d.rules.LateToAbsence))
	}

	res, err := d.anomalies.Sync(ctx, rec.EmployeeID, rec.WorkDate, found)
	if err != nil {
		return anomaly.SyncResult{}, fmt.Errorf("failed to store anomalies: %w", err)
	}
	return res, nil
}

// Evaluate returns the anomalies found on one record, without the weekly
// late accumulation.
func (d *AnomalyDetector) Evaluate(ctx context.Context, rec attendance.Record, day DayContext) ([]anomaly.Anomaly, error) {
	sch := day.Schedule
	loc := day.WorkDate.Location()
	var out []anomaly.Anomaly
	add := func(a anomaly.Anomaly) {
		a.EmployeeID = rec.EmployeeID
		a.WorkDate = rec.WorkDate
		a.Status = anomaly.StatusOpen
		a.AutoDetected = true
		out = append(out, a)
	}
	authorized := func(kind authorization.Kind) (bool, error) {
		ok, err := d.authorizations.IsAuthorized(ctx, rec.EmployeeID, rec.WorkDate, kind)
		if err != nil {
			return false, fmt.Errorf("failed to check %s authorization: %w", kind, err)
		}
		return ok, nil
	}

	if rec.CheckIn != nil && rec.CheckOut == nil && rec.Status != attendance.StatusAbsent {
		add(anomaly.Anomaly{
			Type:          anomaly.TypeMissingCheckout,
			Severity:      anomaly.SeverityWarning,
			Description:   "Check-in recorded without a check-out.",
			ExpectedValue: ptr(sch.ExitTime.String()),
		})
	}
	if rec.CheckIn == nil && rec.CheckOut != nil {
		add(anomaly.Anomaly{
			Type:          anomaly.TypeMissingCheckin,
			Severity:      anomaly.SeverityWarning,
			Description:   "Check-out recorded without a check-in.",
			ExpectedValue: ptr(sch.EntryTime.String()),
		})
	}

	overtime := rec.OvertimeHours
	if rec.ManualOvertimeHours != nil {
		overtime = *rec.ManualOvertimeHours
	}
	if overtime > 0 {
		ok, err := authorized(authorization.KindOvertime)
		if err != nil {
			return nil, err
		}
		if !ok {
			add(anomaly.Anomaly{
				Type:             anomaly.TypeUnauthorizedOvertime,
				Severity:         anomaly.SeverityWarning,
				Description:      fmt.Sprintf("%s overtime hours without an approved authorization.", formatHours(overtime)),
				ExpectedValue:    ptr("0"),
				ActualValue:      ptr(formatHours(overtime)),
				DeviationMinutes: ptr(int(overtime * 60)),
			})
		}
	}

	night := rec.NightHours
	if rec.ManualNightShift != nil && !*rec.ManualNightShift {
		night = 0
	}
	if night > 0 {
		ok, err := authorized(authorization.KindNightShift)
		if err != nil {
			return nil, err
		}
		if !ok {
			add(anomaly.Anomaly{
				Type:             anomaly.TypeUnauthorizedNightShift,
				Severity:         anomaly.SeverityCritical,
				Description:      fmt.Sprintf("%s night hours without an approved authorization.", formatHours(night)),
				ExpectedValue:    ptr("0"),
				ActualValue:      ptr(formatHours(night)),
				DeviationMinutes: ptr(int(night * 60)),
			})
		}
	}

	allowance := int(d.rules.BreakAllowance / time.Minute)
	if rec.BreakMinutes > 0 && rec.BreakMinutes > sch.BreakMinutes+allowance {
		over := rec.BreakMinutes - sch.BreakMinutes
		add(anomaly.Anomaly{
			Type:     anomaly.TypeExcessiveBreak,
			Severity: anomaly.SeverityInfo,
			Description: fmt.Sprintf("Break exceeded by %d minutes (taken %d, scheduled %d).",
				over, rec.BreakMinutes, sch.BreakMinutes),
			ExpectedValue:    ptr(strconv.Itoa(sch.BreakMinutes)),
			ActualValue:      ptr(strconv.Itoa(rec.BreakMinutes)),
			DeviationMinutes: ptr(over),
		})
	}
	if rec.WorkedHours >= lunchRequiredHours && sch.BreakMinutes > 0 && rec.BreakMinutes == 0 {
		add(anomaly.Anomaly{
			Type:          anomaly.TypeMissingLunch,
			Severity:      anomaly.SeverityInfo,
			Description:   "No break punches recorded.",
			ExpectedValue: ptr(strconv.Itoa(sch.BreakMinutes)),
		})
	}

	if rec.LateMinutes > lateArrivalMinutes {
		add(anomaly.Anomaly{
			Type:             anomaly.TypeLateArrival,
			Severity:         severityFor(rec.LateMinutes),
			Description:      fmt.Sprintf("Arrived %d minutes late.", rec.LateMinutes),
			ExpectedValue:    ptr(sch.EntryTime.String()),
			ActualValue:      clockString(rec.CheckIn, loc),
			DeviationMinutes: ptr(rec.LateMinutes),
		})
	}
	if rec.EarlyDepartureMinutes > earlyDepartureMinutes {
		ok, err := authorized(authorization.KindExitPermission)
		if err != nil {
			return nil, err
		}
		if !ok {
			add(anomaly.Anomaly{
				Type:             anomaly.TypeEarlyDeparture,
				Severity:         severityFor(rec.EarlyDepartureMinutes),
				Description:      fmt.Sprintf("Left %d minutes early without an exit permission.", rec.EarlyDepartureMinutes),
				ExpectedValue:    ptr(sch.ExitTime.String()),
				ActualValue:      clockString(rec.CheckOut, loc),
				DeviationMinutes: ptr(rec.EarlyDepartureMinutes),
			})
		}
	}

	if rec.CheckIn != nil {
		early := int(sch.EntryOn(day.WorkDate).Sub(*rec.CheckIn) / time.Minute)
		if early > earlyArrivalMinutes {
			add(anomaly.Anomaly{
				Type:             anomaly.TypeScheduleDeviation,
				Severity:         anomaly.SeverityInfo,
				Description:      fmt.Sprintf("Checked in %d minutes before the scheduled entry.", early),
				ExpectedValue:    ptr(sch.EntryTime.String()),
				ActualValue:      clockString(rec.CheckIn, loc),
				DeviationMinutes: ptr(early),
			})
		}
	}

	if n := len(rec.RawPunches); n > maxNormalPunches {
		add(anomaly.Anomaly{
			Type:          anomaly.TypeDuplicatePunches,
			Severity:      anomaly.SeverityInfo,
			Description:   fmt.Sprintf("%d punches recorded on one day.", n),
			ExpectedValue: ptr("4-6"),
			ActualValue:   ptr(strconv.Itoa(n)),
		})
	}
	return out, nil
}

// accumulateLate recounts the unexcused late arrivals in the record's ISO
// week and stores the total. It returns nil when accumulation is disabled.
func (d *AnomalyDetector) accumulateLate(ctx context.Context, rec attendance.Record) (*anomaly.LateAccumulation, error) {
	threshold := d.rules.LateToAbsence
	if threshold <= 0 {
		return nil, nil
	}

	start := weekStart(rec.WorkDate)
	week, err := d.records.ListChunk(ctx, attendance.ChunkQuery{
		From:       start,
		To:         start.AddDate(0, 0, 6),
		EmployeeID: &rec.EmployeeID,
		Limit:      7,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list week records: %w", err)
	}
	// The record being built wins over whatever the store returned for its day.
	week = slices.DeleteFunc(week, func(r attendance.Record) bool { return sameDate(r.WorkDate, rec.WorkDate) })
	week = append(week, rec)
	slices.SortFunc(week, func(a, b attendance.Record) int { return a.WorkDate.Compare(b.WorkDate) })

	var late []time.Time
	for _, r := range week {
		if r.LateMinutes <= 0 {
			continue
		}
		excused, err := d.authorizations.IsAuthorized(ctx, rec.EmployeeID, r.WorkDate, authorization.KindEntryPermission)
		if err != nil {
			return nil, fmt.Errorf("failed to check entry permission: %w", err)
		}
		if !excused {
			late = append(late, r.WorkDate)
		}
	}

	year, wk := rec.WorkDate.ISOWeek()
	acc := anomaly.LateAccumulation{EmployeeID: rec.EmployeeID, Year: year, Week: wk, LateCount: len(late)}
	if len(late) >= threshold {
		acc.AbsenceGenerated = true
		acc.GeneratedOn = &late[threshold-1]
	}
	saved, err := d.anomalies.SaveLateAccumulation(ctx, acc)
	if err != nil {
		return nil, fmt.Errorf("failed to store late accumulation: %w", err)
	}
	return &saved, nil
}

func lateAccumulation(rec attendance.Record, acc anomaly.LateAccumulation, threshold int) anomaly.Anomaly {
	return anomaly.Anomaly{
		EmployeeID: rec.EmployeeID,
		WorkDate:   rec.WorkDate,
		Type:       anomaly.TypeLateAccumulation,
		Severity:   anomaly.SeverityCritical,
		Description: fmt.Sprintf("%d late arrivals in week %d of %d reached the absence threshold of %d.",
			acc.LateCount, acc.Week, acc.Year, threshold),
		ExpectedValue: ptr(strconv.Itoa(threshold)),
		ActualValue:   ptr(strconv.Itoa(acc.LateCount)),
		Status:        anomaly.StatusOpen,
		AutoDetected:  true,
	}
}

// weekStart returns the Monday of date's ISO week.
func weekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7
	return date.AddDate(0, 0, -offset)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func severityFor(minutes int) anomaly.Severity {
	if minutes > severeMinutes {
		return anomaly.SeverityWarning
	}
	return anomaly.SeverityInfo
}

func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 2, 64)
}

func clockString(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := t.In(loc).Format("15:04")
	return &s
}

func ptr[T any](v T) *T {
	return &v
}
