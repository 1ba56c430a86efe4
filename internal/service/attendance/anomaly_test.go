package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/authorization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// datedAuthz authorizes a kind for one employee on specific dates, keyed
// "employee|kind|date".
type datedAuthz map[string]bool

func (f datedAuthz) IsAuthorized(_ context.Context, employeeID string, date time.Time, kind authorization.Kind) (bool, error) {
	return f[employeeID+"|"+string(kind)+"|"+date.Format("2006-01-02")], nil
}

type brokenAuthz struct{}

func (brokenAuthz) IsAuthorized(context.Context, string, time.Time, authorization.Kind) (bool, error) {
	return false, errors.New("authorization store unavailable")
}

func TestAnomalyDetector_Evaluate(t *testing.T) {
	lunchSchedule := officeSchedule()
	lunchSchedule.BreakMinutes = 60
	day := DayContext{WorkDate: monday, Schedule: lunchSchedule}

	base := func(mod func(r *attendance.Record)) attendance.Record {
		in, out := at(monday, 9, 0), at(monday, 17, 0)
		r := attendance.Record{
			EmployeeID: "e1",
			WorkDate:   monday,
			Metrics: attendance.Metrics{
				CheckIn:      &in,
				CheckOut:     &out,
				WorkedHours:  7,
				RegularHours: 7,
				BreakMinutes: 60,
				Status:       attendance.StatusPresent,
			},
		}
		if mod != nil {
			mod(&r)
		}
		return r
	}

	tests := []struct {
		name     string
		rec      attendance.Record
		authz    datedAuthz
		want     map[anomaly.Type]anomaly.Severity
		deviated map[anomaly.Type]int
	}{
		{
			name: "clean day",
			rec:  base(nil),
			want: map[anomaly.Type]anomaly.Severity{},
		},
		{
			name: "check-in without check-out",
			rec: base(func(r *attendance.Record) {
				r.CheckOut = nil
				r.WorkedHours, r.BreakMinutes = 0, 0
				r.Status = attendance.StatusPartial
			}),
			want: map[anomaly.Type]anomaly.Severity{anomaly.TypeMissingCheckout: anomaly.SeverityWarning},
		},
		{
			name: "check-out without check-in",
			rec: base(func(r *attendance.Record) {
				r.CheckIn = nil
				r.WorkedHours, r.BreakMinutes = 0, 0
				r.Status = attendance.StatusPartial
			}),
			want: map[anomaly.Type]anomaly.Severity{anomaly.TypeMissingCheckin: anomaly.SeverityWarning},
		},
		{
			name: "unauthorized overtime",
			rec: base(func(r *attendance.Record) {
				r.WorkedHours, r.OvertimeHours = 9.5, 1.5
			}),
			want:     map[anomaly.Type]anomaly.Severity{anomaly.TypeUnauthorizedOvertime: anomaly.SeverityWarning},
			deviated: map[anomaly.Type]int{anomaly.TypeUnauthorizedOvertime: 90},
		},
		{
			name: "authorized overtime",
			rec: base(func(r *attendance.Record) {
				r.WorkedHours, r.OvertimeHours = 9.5, 1.5
			}),
			authz: datedAuthz{"e1|overtime|2024-03-04": true},
			want:  map[anomaly.Type]anomaly.Severity{},
		},
		{
			name: "manual designation clears overtime",
			rec: base(func(r *attendance.Record) {
				zero := 0.0
				r.WorkedHours, r.OvertimeHours = 9.5, 1.5
				r.ManualOvertimeHours = &zero
			}),
			want: map[anomaly.Type]anomaly.Severity{},
		},
		{
			name: "unauthorized night hours",
			rec: base(func(r *attendance.Record) {
				r.NightHours, r.IsNightShift = 2, true
			}),
			want: map[anomaly.Type]anomaly.Severity{anomaly.TypeUnauthorizedNightShift: anomaly.SeverityCritical},
		},
		{
			name:     "break beyond the allowance",
			rec:      base(func(r *attendance.Record) { r.BreakMinutes = 80 }),
			want:     map[anomaly.Type]anomaly.Severity{anomaly.TypeExcessiveBreak: anomaly.SeverityInfo},
			deviated: map[anomaly.Type]int{anomaly.TypeExcessiveBreak: 20},
		},
		{
			name: "break within the allowance",
			rec:  base(func(r *attendance.Record) { r.BreakMinutes = 75 }),
			want: map[anomaly.Type]anomaly.Severity{},
		},
		{
			name: "long day without a break",
			rec:  base(func(r *attendance.Record) { r.BreakMinutes, r.WorkedHours = 0, 8 }),
			want: map[anomaly.Type]anomaly.Severity{anomaly.TypeMissingLunch: anomaly.SeverityInfo},
		},
		{
			name: "late arrival",
			rec:  base(func(r *attendance.Record) { r.LateMinutes = 45 }),
			want: map[anomaly.Type]anomaly.Severity{anomaly.TypeLateArrival: anomaly.SeverityInfo},
		},
		{
			name: "very late arrival",
			rec:  base(func(r *attendance.Record) { r.LateMinutes = 61 }),
			want: map[anomaly.Type]anomaly.Severity{anomaly.TypeLateArrival: anomaly.SeverityWarning},
		},
		{
			name: "lateness inside the margin",
			rec:  base(func(r *attendance.Record) { r.LateMinutes = 30 }),
			want: map[anomaly.Type]anomaly.Severity{},
		},
		{
			name: "early departure",
			rec:  base(func(r *attendance.Record) { r.EarlyDepartureMinutes = 20 }),
			want: map[anomaly.Type]anomaly.Severity{anomaly.TypeEarlyDeparture: anomaly.SeverityInfo},
		},
		{
			name:  "early departure with exit permission",
			rec:   base(func(r *attendance.Record) { r.EarlyDepartureMinutes = 90 }),
			authz: datedAuthz{"e1|exit_permission|2024-03-04": true},
			want:  map[anomaly.Type]anomaly.Severity{},
		},
		{
			name: "arrival well before the schedule",
			rec: base(func(r *attendance.Record) {
				in := at(monday, 7, 30)
				r.CheckIn = &in
			}),
			want:     map[anomaly.Type]anomaly.Severity{anomaly.TypeScheduleDeviation: anomaly.SeverityInfo},
			deviated: map[anomaly.Type]int{anomaly.TypeScheduleDeviation: 90},
		},
		{
			name: "too many punches",
			rec: base(func(r *attendance.Record) {
				r.RawPunches = stored(punchesAt(monday,
					[2]int{9, 0}, [2]int{10, 0}, [2]int{11, 0}, [2]int{12, 0}, [2]int{13, 0},
					[2]int{14, 0}, [2]int{15, 0}, [2]int{16, 0}, [2]int{17, 0})...)
			}),
			want: map[anomaly.Type]anomaly.Severity{anomaly.TypeDuplicatePunches: anomaly.SeverityInfo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewAnomalyDetector(nil, nil, tt.authz, DefaultAnomalyRules())

			found, err := d.Evaluate(context.Background(), tt.rec, day)
			require.NoError(t, err)

			got := map[anomaly.Type]anomaly.Severity{}
			for _, a := range found {
				got[a.Type] = a.Severity
				assert.Equal(t, anomaly.StatusOpen, a.Status)
				assert.True(t, a.AutoDetected)
				assert.Equal(t, "e1", a.EmployeeID)
				if want, ok := tt.deviated[a.Type]; ok {
					require.NotNil(t, a.DeviationMinutes)
					assert.Equal(t, want, *a.DeviationMinutes)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnomalyDetector_EvaluateAuthorizationFailure(t *testing.T) {
	d := NewAnomalyDetector(nil, nil, brokenAuthz{}, DefaultAnomalyRules())
	rec := attendance.Record{EmployeeID: "e1", WorkDate: monday, Metrics: attendance.Metrics{OvertimeHours: 1}}

	_, err := d.Evaluate(context.Background(), rec, DayContext{WorkDate: monday, Schedule: officeSchedule()})
	assert.ErrorContains(t, err, "authorization store unavailable")
}

func TestAnomalyDetector_LateAccumulation(t *testing.T) {
	ctx := context.Background()
	records := newFakeRecords()
	store := newFakeAnomalies(records)
	rules := DefaultAnomalyRules()
	rules.LateToAbsence = 3
	authz := datedAuthz{"e2|entry_permission|2024-03-05": true}
	b := newTestBuilder(records, officeResolver("e1", "e2"), fakeDesignations{})
	b.WithDetector(NewAnomalyDetector(store, records, authz, rules))

	// 09:25 is late by 15 minutes after tolerance: counted, but not an anomaly of its own.
	for d := 0; d < 5; d++ {
		day := monday.AddDate(0, 0, d)
		for _, e := range []string{"e1", "e2"} {
			res := b.ReconcileDay(ctx, e, day, stored(at(day, 9, 25), at(day, 17, 0)))
			require.True(t, res.IsOk())
		}
	}
	wednesday, thursday := monday.AddDate(0, 0, 2), monday.AddDate(0, 0, 3)

	acc := store.week("e1", monday)
	assert.Equal(t, 5, acc.LateCount)
	assert.True(t, acc.AbsenceGenerated)
	require.NotNil(t, acc.GeneratedOn)
	assert.True(t, sameDate(wednesday, *acc.GeneratedOn))
	assert.Equal(t, map[anomaly.Type]anomaly.Status{anomaly.TypeLateAccumulation: anomaly.StatusOpen}, store.types("e1", wednesday))
	assert.Empty(t, store.types("e1", thursday))
	assert.Equal(t, 1, records.get("e1", wednesday).AnomalyCount)

	// Tuesday's entry permission pushes e2's threshold to Thursday.
	other := store.week("e2", monday)
	assert.Equal(t, 4, other.LateCount)
	require.NotNil(t, other.GeneratedOn)
	assert.True(t, sameDate(thursday, *other.GeneratedOn))
	assert.Contains(t, store.types("e2", thursday), anomaly.TypeLateAccumulation)
	assert.Empty(t, store.types("e2", wednesday))
}

func TestAnomalyDetector_LateAccumulationIsSticky(t *testing.T) {
	ctx := context.Background()
	records := newFakeRecords()
	store := newFakeAnomalies(records)
	rules := DefaultAnomalyRules()
	rules.LateToAbsence = 2
	resolver := officeResolver("e1")
	b := newTestBuilder(records, resolver, fakeDesignations{})
	b.WithDetector(NewAnomalyDetector(store, records, fakeAuthz{}, rules))

	tuesday := monday.AddDate(0, 0, 1)
	b.ReconcileDay(ctx, "e1", monday, stored(at(monday, 9, 25), at(monday, 17, 0)))
	b.ReconcileDay(ctx, "e1", tuesday, stored(at(tuesday, 9, 25), at(tuesday, 17, 0)))
	require.True(t, store.week("e1", monday).AbsenceGenerated)

	// A later tolerance change removes the lateness; the generated absence stays.
	relaxed := officeSchedule()
	relaxed.ToleranceMinutes = 30
	resolver.byEmployee["e1"] = relaxed
	res := b.Recalculate(ctx, records.get("e1", tuesday))
	require.True(t, res.IsOk())

	acc := store.week("e1", monday)
	assert.Equal(t, 1, acc.LateCount)
	assert.True(t, acc.AbsenceGenerated)
	assert.Contains(t, store.types("e1", tuesday), anomaly.TypeLateAccumulation)
}

func TestAnomalyDetector_KeepsClosedAnomalies(t *testing.T) {
	ctx := context.Background()
	records := newFakeRecords()
	store := newFakeAnomalies(records)
	b := newTestBuilder(records, officeResolver("e1"), fakeDesignations{})
	b.WithDetector(NewAnomalyDetector(store, records, fakeAuthz{}, DefaultAnomalyRules()))
	punches := stored(at(monday, 9, 50), at(monday, 17, 0))

	res := b.ReconcileDay(ctx, "e1", monday, punches)
	require.Equal(t, 1, res.Anomalies)
	_, err := store.Close(ctx, "e1|2024-03-04-late_arrival", anomaly.StatusDismissed, nil, nil)
	require.NoError(t, err)

	again := b.Recalculate(ctx, records.get("e1", monday))
	require.True(t, again.IsOk())
	assert.Zero(t, again.Anomalies)
	assert.Equal(t, 0, again.Record.AnomalyCount)
	assert.Equal(t, map[anomaly.Type]anomaly.Status{anomaly.TypeLateArrival: anomaly.StatusDismissed}, store.types("e1", monday))
}

func TestWeekStart(t *testing.T) {
	sunday := monday.AddDate(0, 0, 6)
	assert.Equal(t, monday, weekStart(monday))
	assert.Equal(t, monday, weekStart(sunday))
	assert.Equal(t, monday, weekStart(monday.AddDate(0, 0, 3)))
	assert.Equal(t, monday.AddDate(0, 0, 7), weekStart(sunday.AddDate(0, 0, 1)))
}
