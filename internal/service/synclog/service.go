package synclog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/employee"
	"github.com/pinky-hr/attendance-engine/internal/domain/punch"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	"github.com/pinky-hr/attendance-engine/internal/pkg/metrics"
	"github.com/pinky-hr/attendance-engine/internal/pkg/sse"
	attendancesvc "github.com/pinky-hr/attendance-engine/internal/service/attendance"
)

type Options struct {
	DefaultDays    int
	RunDeadline    time.Duration
	Workers        int
	HeartbeatTTL   time.Duration
	InactivityDays int
}

type SyncServiceImpl struct {
	logs       synclog.SyncLogRepository
	punches    punch.PunchRepository
	employees  employee.EmployeeRepository
	reconciler attendance.Reconciler
	policy     attendancesvc.Policy
	opts       Options
	heartbeats *cache.Cache
	metrics    *metrics.SyncMetrics
	events     *sse.Hub
	now        func() time.Time
}

func NewSyncService(
	logs synclog.SyncLogRepository,
	punches punch.PunchRepository,
	employees employee.EmployeeRepository,
	reconciler attendance.Reconciler,
	policy attendancesvc.Policy,
	opts Options,
	m *metrics.SyncMetrics,
	events *sse.Hub,
) *SyncServiceImpl {
	if opts.DefaultDays <= 0 {
		opts.DefaultDays = 7
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.HeartbeatTTL <= 0 {
		opts.HeartbeatTTL = 10 * time.Minute
	}
	if opts.InactivityDays <= 0 {
		opts.InactivityDays = 60
	}
	if events == nil {
		events = sse.NewHub()
	}
	return &SyncServiceImpl{
		logs:       logs,
		punches:    punches,
		employees:  employees,
		reconciler: reconciler,
		policy:     policy,
		opts:       opts,
		heartbeats: cache.New(opts.HeartbeatTTL, opts.HeartbeatTTL),
		metrics:    m,
		events:     events,
		now:        time.Now,
	}
}

var _ synclog.SyncService = (*SyncServiceImpl)(nil)

// Subscribe implements synclog.SyncService.
func (s *SyncServiceImpl) Subscribe(ctx context.Context) (<-chan sse.Event, func()) {
	return s.events.Subscribe(synclog.EventTopic)
}

func (s *SyncServiceImpl) publish(event string, data any) {
	s.events.Publish(sse.Event{Topic: synclog.EventTopic, Event: event, Data: data})
}

// window returns the date range covering the last days up to today.
func (s *SyncServiceImpl) window(days int) (time.Time, time.Time) {
	today := attendancesvc.DateOf(s.now(), s.policy.Zone())
	return today.AddDate(0, 0, -days), today
}

// RequestSync implements synclog.SyncService. A job that is already queued
// is returned instead of queueing another.
func (s *SyncServiceImpl) RequestSync(ctx context.Context, req synclog.RequestSyncRequest, trigger synclog.Trigger) (synclog.SyncLogResponse, error) {
	if err := req.Validate(s.opts.DefaultDays); err != nil {
		return synclog.SyncLogResponse{}, err
	}

	pending, err := s.logs.OldestPending(ctx)
	if err != nil {
		return synclog.SyncLogResponse{}, fmt.Errorf("failed to check pending sync: %w", err)
	}
	if pending != nil {
		return synclog.NewSyncLogResponse(*pending), nil
	}

	from, to := s.window(req.Days)
	created, err := s.logs.Create(ctx, synclog.SyncLog{
		Status:      synclog.StatusPending,
		Trigger:     trigger,
		RequestedBy: req.RequestedBy,
		FromDate:    from,
		ToDate:      to,
		Days:        req.Days,
	})
	if err != nil {
		return synclog.SyncLogResponse{}, fmt.Errorf("failed to create sync log: %w", err)
	}

	slog.Info("Sync requested", "sync_log_id", created.ID, "trigger", trigger, "days", req.Days)
	resp := synclog.NewSyncLogResponse(created)
	s.publish(synclog.EventRequested, resp)
	return resp, nil
}

// GetSyncLog implements synclog.SyncService.
func (s *SyncServiceImpl) GetSyncLog(ctx context.Context, id string) (synclog.SyncLogResponse, error) {
	log, err := s.logs.GetByID(ctx, id)
	if err != nil {
		return synclog.SyncLogResponse{}, err
	}
	return synclog.NewSyncLogResponse(log), nil
}

// ListSyncLogs implements synclog.SyncService.
func (s *SyncServiceImpl) ListSyncLogs(ctx context.Context, filter synclog.SyncLogFilter) (synclog.ListSyncLogResponse, error) {
	if err := filter.Validate(); err != nil {
		return synclog.ListSyncLogResponse{}, err
	}

	logs, total, err := s.logs.List(ctx, filter)
	if err != nil {
		return synclog.ListSyncLogResponse{}, fmt.Errorf("failed to list sync logs: %w", err)
	}

	responses := make([]synclog.SyncLogResponse, 0, len(logs))
	for _, l := range logs {
		responses = append(responses, synclog.NewSyncLogResponse(l))
	}
	return synclog.ListSyncLogResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Logs:       responses,
	}, nil
}

// RunLocal implements synclog.SyncService. It fails with
// synclog.ErrSyncInProgress, without side effects, while another run holds
// the running slot.
func (s *SyncServiceImpl) RunLocal(ctx context.Context, days int, trigger synclog.Trigger) (synclog.SyncLogResponse, error) {
	req := synclog.RequestSyncRequest{Days: days}
	if err := req.Validate(s.opts.DefaultDays); err != nil {
		return synclog.SyncLogResponse{}, err
	}
	days = req.Days
	from, to := s.window(days)
	now := s.now()

	log, err := s.logs.CreateRunning(ctx, synclog.SyncLog{
		Status:    synclog.StatusRunning,
		Trigger:   trigger,
		FromDate:  from,
		ToDate:    to,
		Days:      days,
		StartedAt: &now,
	})
	if err != nil {
		if errors.Is(err, synclog.ErrSyncInProgress) {
			return synclog.SyncLogResponse{}, err
		}
		return synclog.SyncLogResponse{}, fmt.Errorf("failed to create sync log: %w", err)
	}

	slog.Info("Local sync started", "sync_log_id", log.ID, "days", days, "trigger", trigger)
	s.publish(synclog.EventStarted, synclog.NewSyncLogResponse(log))
	finished, err := s.finish(ctx, log, s.execute(ctx, log, synclog.Counters{}, nil))
	if err != nil {
		return synclog.SyncLogResponse{}, err
	}
	return synclog.NewSyncLogResponse(finished), nil
}

// Sweep implements synclog.SyncService.
func (s *SyncServiceImpl) Sweep(ctx context.Context, threshold time.Duration) ([]string, error) {
	now := s.now()
	ids, err := s.logs.SweepStuck(ctx, now.Add(-threshold), now, synclog.ErrorEntry{
		Kind:    synclog.ErrorKindTimeout,
		Message: fmt.Sprintf("sync did not complete within %s and was marked failed", threshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to sweep stuck syncs: %w", err)
	}

	s.metrics.AddSwept(len(ids))
	for _, id := range ids {
		slog.Warn("Stuck sync marked failed", "sync_log_id", id, "threshold", threshold.String())
		s.publish(synclog.EventSwept, synclog.SweptEvent{ID: id, Threshold: threshold.String()})
	}
	return ids, nil
}
