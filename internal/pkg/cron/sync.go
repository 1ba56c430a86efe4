package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
)

type SyncJobsConfig struct {
	JanitorInterval  time.Duration
	StuckThreshold   time.Duration
	AutoRequestEvery time.Duration
	AutoRequestDays  int
}

// SyncJobs holds the periodic maintenance of sync runs.
type SyncJobs struct {
	syncService synclog.SyncService
	cfg         SyncJobsConfig
}

func NewSyncJobs(syncService synclog.SyncService, cfg SyncJobsConfig) *SyncJobs {
	return &SyncJobs{syncService: syncService, cfg: cfg}
}

// RegisterJobs adds the janitor sweep and, when an interval is configured,
// the scheduled sync request.
func (j *SyncJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:     "janitor_sweep",
		Interval: j.cfg.JanitorInterval,
		Timeout:  time.Minute,
		Fn:       j.SweepStuckRuns,
	})
	if j.cfg.AutoRequestEvery > 0 {
		scheduler.AddJob(Job{
			Name:     "auto_request_sync",
			Interval: j.cfg.AutoRequestEvery,
			Timeout:  time.Minute,
			Fn:       j.RequestScheduledSync,
		})
	}
}

// SweepStuckRuns fails running jobs that exceeded the stuck threshold.
func (j *SyncJobs) SweepStuckRuns(ctx context.Context) error {
	ids, err := j.syncService.Sweep(ctx, j.cfg.StuckThreshold)
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		slog.Warn("Cron: Swept stuck sync runs", "count", len(ids), "sync_log_ids", ids)
	}
	return nil
}

// RequestScheduledSync queues a pending job for the agent. An already pending
// job is reused by the service.
func (j *SyncJobs) RequestScheduledSync(ctx context.Context) error {
	resp, err := j.syncService.RequestSync(ctx, synclog.RequestSyncRequest{Days: j.cfg.AutoRequestDays}, synclog.TriggerSchedule)
	if err != nil {
		return err
	}
	slog.Info("Cron: Sync requested", "sync_log_id", resp.ID, "days", resp.Days)
	return nil
}
