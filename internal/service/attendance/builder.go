package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/designation"
	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
	"github.com/pinky-hr/attendance-engine/internal/pkg/metrics"
)

const DefaultChunkSize = 100

// Builder writes attendance records. It is the only writer of computed
// record fields.
type Builder struct {
	records      attendance.AttendanceRepository
	schedules    schedule.Resolver
	designations designation.Lookup
	detector     Detector
	policy       Policy
	metrics      *metrics.SyncMetrics
	now          func() time.Time
}

// Detector flags anomalies on a record the builder has just produced.
type Detector interface {
	Detect(ctx context.Context, rec attendance.Record, day DayContext) (anomaly.SyncResult, error)
}

func NewBuilder(
	records attendance.AttendanceRepository,
	schedules schedule.Resolver,
	designations designation.Lookup,
	policy Policy,
	m *metrics.SyncMetrics,
) *Builder {
	return &Builder{
		records:      records,
		schedules:    schedules,
		designations: designations,
		policy:       policy,
		metrics:      m,
		now:          time.Now,
	}
}

// WithDetector runs d after every record the builder keeps. A nil detector
// disables anomaly detection.
func (b *Builder) WithDetector(d Detector) *Builder {
	b.detector = d
	return b
}

func (b *Builder) Policy() Policy {
	return b.policy
}

// ReconcileDay runs deduplication, segmentation and classification over the
// punches of one work date and upserts the result. An empty punch list on a
// working day yields an absence.
func (b *Builder) ReconcileDay(ctx context.Context, employeeID string, workDate time.Time, punches []attendance.StoredPunch) attendance.Result {
	return b.reconcile(ctx, employeeID, workDate, punches, false)
}

func (b *Builder) reconcile(ctx context.Context, employeeID string, workDate time.Time, punches []attendance.StoredPunch, fresh bool) attendance.Result {
	workDate = CivilDate(workDate, b.policy.Zone())
	day, rerr := b.dayContext(ctx, employeeID, workDate, fresh)
	if rerr != nil {
		return b.observe(attendance.Failed(*rerr))
	}
	marked := MarkDuplicates(punches, b.policy.DuplicateWindow)
	return b.observe(b.detect(ctx, b.build(ctx, employeeID, workDate, marked, day), day))
}

// Recalculate classifies the record's stored punches again against the
// current schedule and designations. The stored duplicate marks are reused
// and the schedule is read past the resolver cache.
func (b *Builder) Recalculate(ctx context.Context, rec attendance.Record) attendance.Result {
	workDate := CivilDate(rec.WorkDate, b.policy.Zone())
	day, rerr := b.dayContext(ctx, rec.EmployeeID, workDate, true)
	if rerr != nil {
		return b.observe(attendance.Failed(*rerr))
	}
	punches := slices.Clone(rec.RawPunches)
	slices.SortStableFunc(punches, func(a, c attendance.StoredPunch) int {
		return a.Timestamp.Compare(c.Timestamp)
	})
	return b.observe(b.detect(ctx, b.build(ctx, rec.EmployeeID, workDate, punches, day), day))
}

// Reprocess re-runs the full chain, duplicate detection included, from the
// record's stored punches against the current schedule.
func (b *Builder) Reprocess(ctx context.Context, rec attendance.Record) attendance.Result {
	return b.reconcile(ctx, rec.EmployeeID, rec.WorkDate, rec.RawPunches, true)
}

// dayContext loads the schedule and designation of a work date. With fresh
// set the schedule bypasses the resolver cache when the resolver allows it.
func (b *Builder) dayContext(ctx context.Context, employeeID string, workDate time.Time, fresh bool) (DayContext, *attendance.RecordError) {
	dateKey := workDate.Format("2006-01-02")

	resolve := b.schedules.Resolve
	if fr, ok := b.schedules.(schedule.FreshResolver); ok && fresh {
		resolve = fr.ResolveFresh
	}
	resolved, err := resolve(ctx, employeeID, workDate)
	if err != nil {
		kind := attendance.ErrorKindLookupFailed
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			kind = attendance.ErrorKindMissingSchedule
		}
		return DayContext{}, &attendance.RecordError{EmployeeID: employeeID, WorkDate: dateKey, Kind: kind, Message: err.Error()}
	}

	des, err := b.designations.Find(ctx, employeeID, workDate)
	if err != nil {
		return DayContext{}, &attendance.RecordError{
			EmployeeID: employeeID,
			WorkDate:   dateKey,
			Kind:       attendance.ErrorKindLookupFailed,
			Message:    fmt.Sprintf("designation lookup: %v", err),
		}
	}

	return DayContext{WorkDate: workDate, Schedule: resolved, Designation: des}, nil
}

func (b *Builder) build(ctx context.Context, employeeID string, workDate time.Time, punches []attendance.StoredPunch, day DayContext) attendance.Result {
	dateKey := workDate.Format("2006-01-02")
	fail := func(kind string, err error) attendance.Result {
		return attendance.Failed(attendance.RecordError{EmployeeID: employeeID, WorkDate: dateKey, Kind: kind, Message: err.Error()})
	}

	existing, err := b.records.Get(ctx, employeeID, workDate)
	if err != nil {
		return fail(attendance.ErrorKindLookupFailed, err)
	}
	// A record computed from punches is never replaced by an empty one.
	if len(punches) == 0 && existing != nil && len(existing.RawPunches) > 0 {
		return attendance.Ok(*existing, attendance.OutcomeUnchanged)
	}

	// A rest day without punches or designation has no record. One left over
	// from an earlier schedule or designation is removed.
	if len(punches) == 0 && day.Designation == nil && !day.Schedule.IsWorkingDay {
		if existing == nil {
			return attendance.Skipped()
		}
		if err := b.records.Delete(ctx, employeeID, workDate); err != nil {
			return fail(attendance.ErrorKindWriteFailed, err)
		}
		slog.Info("Removed attendance record of a rest day",
			"employee_id", employeeID, "work_date", dateKey, "status", existing.Status)
		return attendance.Removed()
	}

	kept := make([]time.Time, 0, len(punches))
	for _, p := range punches {
		if p.Kept {
			kept = append(kept, p.Timestamp)
		}
	}
	seg := Segment(kept, b.policy.LunchThreshold, workDate.AddDate(0, 0, 1))

	now := b.now()
	rec := attendance.Record{
		EmployeeID:       employeeID,
		WorkDate:         workDate,
		Metrics:          Classify(seg, day, b.policy),
		RawPunches:       punches,
		PunchFingerprint: Fingerprint(punches),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if existing != nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.AnomalyCount = existing.AnomalyCount
		if existing.ManualFingerprint != nil && *existing.ManualFingerprint == rec.PunchFingerprint {
			rec.ManualOvertimeHours = existing.ManualOvertimeHours
			rec.ManualNightShift = existing.ManualNightShift
			rec.ManualFingerprint = existing.ManualFingerprint
			rec.ManualReason = existing.ManualReason
		} else if existing.HasManualDesignation() {
			slog.Info("Clearing manual designation after punch change",
				"employee_id", employeeID, "work_date", dateKey)
		}
		if sameRecord(*existing, rec) {
			return attendance.Ok(*existing, attendance.OutcomeUnchanged)
		}
	}

	created, err := b.records.Upsert(ctx, rec)
	if err != nil {
		return fail(attendance.ErrorKindWriteFailed, err)
	}
	if created {
		return attendance.Ok(rec, attendance.OutcomeCreated)
	}
	return attendance.Ok(rec, attendance.OutcomeUpdated)
}

// detect runs the detector over a kept record. The record stays written
// when detection fails; the next run retries it.
func (b *Builder) detect(ctx context.Context, res attendance.Result, day DayContext) attendance.Result {
	if b.detector == nil || res.Record == nil || !res.IsOk() {
		return res
	}
	rec := res.Record
	found, err := b.detector.Detect(ctx, *rec, day)
	if err != nil {
		return attendance.Failed(attendance.RecordError{
			EmployeeID: rec.EmployeeID,
			WorkDate:   rec.WorkDate.Format("2006-01-02"),
			Kind:       attendance.ErrorKindAnomalyFailed,
			Message:    err.Error(),
		})
	}
	rec.AnomalyCount = found.Open
	res.Anomalies = found.Created
	b.metrics.AddAnomalies(found.Created)
	return res
}

func (b *Builder) observe(res attendance.Result) attendance.Result {
	b.metrics.ObserveRecord(string(res.Outcome))
	if res.Err != nil {
		slog.Warn("Attendance record failed",
			"employee_id", res.Err.EmployeeID, "work_date", res.Err.WorkDate,
			"kind", res.Err.Kind, "error", res.Err.Message)
	}
	return res
}

func sameRecord(a, b attendance.Record) bool {
	if !a.Metrics.Equal(b.Metrics) || a.PunchFingerprint != b.PunchFingerprint {
		return false
	}
	if len(a.RawPunches) != len(b.RawPunches) {
		return false
	}
	for i := range a.RawPunches {
		if a.RawPunches[i].Kept != b.RawPunches[i].Kept || !a.RawPunches[i].Timestamp.Equal(b.RawPunches[i].Timestamp) {
			return false
		}
	}
	return floatPtrEqual(a.ManualOvertimeHours, b.ManualOvertimeHours) &&
		boolPtrEqual(a.ManualNightShift, b.ManualNightShift)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// RangeQuery selects the stored records a bulk run revisits.
type RangeQuery struct {
	From       time.Time
	To         time.Time
	EmployeeID *string
	Reprocess  bool
	ChunkSize  int
}

// RecalculateRange walks stored records in chunks and recalculates or
// reprocesses each one. Per-record failures are collected in the report;
// only a listing failure or cancellation stops the walk.
func (b *Builder) RecalculateRange(ctx context.Context, q RangeQuery, progress func(done, total int)) (attendance.BatchReport, error) {
	var report attendance.BatchReport

	total, err := b.records.Count(ctx, q.From, q.To, q.EmployeeID)
	if err != nil {
		return report, fmt.Errorf("failed to count attendance records: %w", err)
	}

	chunk := q.ChunkSize
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	cq := attendance.ChunkQuery{From: q.From, To: q.To, EmployeeID: q.EmployeeID, Limit: chunk}

	done := 0
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		recs, err := b.records.ListChunk(ctx, cq)
		if err != nil {
			return report, fmt.Errorf("failed to list attendance records: %w", err)
		}
		for _, rec := range recs {
			if q.Reprocess {
				report.Add(b.Reprocess(ctx, rec))
			} else {
				report.Add(b.Recalculate(ctx, rec))
			}
			done++
		}
		if progress != nil {
			progress(done, int(total))
		}
		if len(recs) < chunk {
			break
		}
		last := recs[len(recs)-1]
		cq.AfterDate = &last.WorkDate
		cq.AfterEmployeeID = last.EmployeeID
	}

	slog.Info("Attendance recalculation finished",
		"from", q.From.Format("2006-01-02"), "to", q.To.Format("2006-01-02"),
		"reprocess", q.Reprocess, "total", report.Total, "failed", report.Failed)
	return report, nil
}
