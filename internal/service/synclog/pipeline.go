package synclog

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/employee"
	"github.com/pinky-hr/attendance-engine/internal/domain/punch"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	attendancesvc "github.com/pinky-hr/attendance-engine/internal/service/attendance"
	"golang.org/x/sync/errgroup"
)

// employeeWork is the slice of a run owned by one worker: one employee and
// the dates to reconcile, in order.
type employeeWork struct {
	employeeID string
	days       []attendancesvc.DayPunches
}

// execute runs the reconciliation pipeline for a running job and returns
// its outcome. Source failures abort before any attendance write.
func (s *SyncServiceImpl) execute(ctx context.Context, log synclog.SyncLog, counters synclog.Counters, entries []synclog.ErrorEntry) synclog.Outcome {
	if s.opts.RunDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunDeadline)
		defer cancel()
	}
	defer s.metrics.RunStarted()()

	fail := func(err error) synclog.Outcome {
		slog.Error("Sync aborted", "sync_log_id", log.ID, "error", err)
		return synclog.Outcome{
			Status:   synclog.StatusFailed,
			Counters: counters,
			Errors:   append(entries, synclog.ErrorEntry{Kind: synclog.ErrorKindSourceUnavailable, Message: err.Error()}),
		}
	}

	loc := s.policy.Zone()
	from := attendancesvc.CivilDate(log.FromDate, loc)
	to := attendancesvc.CivilDate(log.ToDate, loc)

	users, err := s.punches.ListDeviceUsers(ctx)
	if err != nil {
		return fail(fmt.Errorf("%w: listing device users: %v", synclog.ErrSourceUnavailable, err))
	}
	roster, err := s.importRoster(ctx, users)
	if err != nil {
		return fail(err)
	}
	counters.EmployeesImported = roster.imported
	counters.EmployeesUpdated = roster.updated
	counters.EmployeesMarkedInactive = roster.inactive
	entries = append(entries, roster.errors...)

	// One extra day on each side lets night shifts cross the range edges.
	raw, err := s.punches.ListBetween(ctx, from.AddDate(0, 0, -1), to.AddDate(0, 0, 2))
	if err != nil {
		return fail(fmt.Errorf("%w: listing punches: %v", synclog.ErrSourceUnavailable, err))
	}
	counters.RecordsFetched = len(raw)

	employees, err := s.employees.ListLinked(ctx)
	if err != nil {
		return fail(fmt.Errorf("%w: listing employees: %v", synclog.ErrSourceUnavailable, err))
	}

	work, unknown := s.plan(raw, employees, from, to)
	for _, userID := range unknown {
		entries = append(entries, synclog.ErrorEntry{
			Kind:       attendance.ErrorKindUnknownEmployee,
			EmployeeID: userID,
			Message:    "device user is not linked to an employee",
		})
	}

	report := s.reconcile(ctx, work)
	counters.RecordsProcessed = report.Processed()
	counters.RecordsCreated = report.Created
	counters.RecordsUpdated = report.Updated
	counters.RecordsFailed = report.Failed
	counters.AnomaliesDetected = report.Anomalies
	for _, e := range report.Errors {
		entries = append(entries, synclog.ErrorEntry{Kind: e.Kind, EmployeeID: e.EmployeeID, WorkDate: e.WorkDate, Message: e.Message})
	}

	if err := ctx.Err(); err != nil {
		msg := "sync canceled before all records were processed"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("sync exceeded its %s deadline before all records were processed", s.opts.RunDeadline)
		}
		return synclog.Outcome{
			Status:   synclog.StatusFailed,
			Counters: counters,
			Errors:   append(entries, synclog.ErrorEntry{Kind: synclog.ErrorKindTimeout, Message: msg}),
		}
	}

	return synclog.Outcome{Status: synclog.StatusCompleted, Counters: counters, Errors: entries}
}

// plan groups punches per employee and work date within [from, to], and
// adds absence dates for active employees on every date before today.
func (s *SyncServiceImpl) plan(raw []punch.RawPunch, employees []employee.Employee, from, to time.Time) ([]employeeWork, []string) {
	byDevice := make(map[string]employee.Employee, len(employees))
	for _, e := range employees {
		byDevice[e.DeviceUserID] = e
	}

	perEmployee := make(map[string][]attendance.StoredPunch)
	unknownSet := make(map[string]struct{})
	for _, p := range raw {
		e, ok := byDevice[p.DeviceUserID]
		if !ok {
			unknownSet[p.DeviceUserID] = struct{}{}
			continue
		}
		sp := attendance.StoredPunch{Timestamp: p.Timestamp, DeviceID: p.DeviceID, Method: p.Method, Kept: true}
		if p.Kind != nil {
			sp.Kind = *p.Kind
		}
		perEmployee[e.ID] = append(perEmployee[e.ID], sp)
	}

	today := attendancesvc.DateOf(s.now(), s.policy.Zone())
	var work []employeeWork
	for _, e := range employees {
		punches, hasPunches := perEmployee[e.ID]
		if !hasPunches && e.Status != employee.StatusActive {
			continue
		}

		byDate := make(map[time.Time]attendancesvc.DayPunches)
		for _, d := range attendancesvc.GroupByWorkDate(punches, s.policy) {
			if d.WorkDate.Before(from) || d.WorkDate.After(to) {
				continue
			}
			byDate[d.WorkDate] = d
		}
		if e.Status == employee.StatusActive {
			for _, d := range attendancesvc.DatesBetween(from, to) {
				if _, ok := byDate[d]; !ok && d.Before(today) {
					byDate[d] = attendancesvc.DayPunches{WorkDate: d}
				}
			}
		}
		if len(byDate) == 0 {
			continue
		}

		days := make([]attendancesvc.DayPunches, 0, len(byDate))
		for _, d := range byDate {
			days = append(days, d)
		}
		slices.SortFunc(days, func(a, b attendancesvc.DayPunches) int { return a.WorkDate.Compare(b.WorkDate) })
		work = append(work, employeeWork{employeeID: e.ID, days: days})
	}

	unknown := make([]string, 0, len(unknownSet))
	for id := range unknownSet {
		unknown = append(unknown, id)
	}
	slices.Sort(unknown)
	return work, unknown
}

// reconcile processes employees in parallel, bounded by the worker limit.
// Each employee's dates are written sequentially by a single worker.
func (s *SyncServiceImpl) reconcile(ctx context.Context, work []employeeWork) attendance.BatchReport {
	var (
		mu     sync.Mutex
		report attendance.BatchReport
	)

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for _, w := range work {
		g.Go(func() error {
			var local attendance.BatchReport
			for _, d := range w.days {
				if ctx.Err() != nil {
					break
				}
				local.Add(s.reconciler.ReconcileDay(ctx, w.employeeID, d.WorkDate, d.Punches))
			}
			mu.Lock()
			report.Merge(local)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(report.Errors, func(a, b attendance.RecordError) int {
		return cmp.Or(cmp.Compare(a.EmployeeID, b.EmployeeID), cmp.Compare(a.WorkDate, b.WorkDate))
	})
	return report
}

// finish writes the terminal state. A job the janitor already failed is
// left as the janitor wrote it.
func (s *SyncServiceImpl) finish(ctx context.Context, log synclog.SyncLog, out synclog.Outcome) (synclog.SyncLog, error) {
	ctx = context.WithoutCancel(ctx)
	finished, err := s.logs.Finish(ctx, log.ID, out, s.now())
	if err != nil {
		if errors.Is(err, synclog.ErrStaleJobClaim) {
			slog.Warn("Sync finished after being swept", "sync_log_id", log.ID)
			return s.logs.GetByID(ctx, log.ID)
		}
		return synclog.SyncLog{}, fmt.Errorf("failed to finish sync log: %w", err)
	}

	s.metrics.ObserveRun(string(finished.Status), string(finished.Trigger), finished.Duration())
	slog.Info("Sync finished",
		"sync_log_id", finished.ID,
		"status", finished.Status,
		"records_fetched", finished.RecordsFetched,
		"records_processed", finished.RecordsProcessed,
		"records_created", finished.RecordsCreated,
		"records_failed", finished.RecordsFailed,
		"anomalies_detected", finished.AnomaliesDetected,
		"errors", len(finished.Errors),
		"duration", finished.Duration().String())
	s.publish(synclog.EventFinished, synclog.NewSyncLogResponse(finished))
	return finished, nil
}
