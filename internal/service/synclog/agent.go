package synclog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/punch"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	"github.com/pinky-hr/attendance-engine/internal/pkg/validator"
)

const heartbeatKey = "agent"

type agentInfo struct {
	AgentID  string
	Version  *string
	Hostname *string
	Devices  int
	LastSeen time.Time
}

// Poll implements synclog.SyncService.
func (s *SyncServiceImpl) Poll(ctx context.Context) (synclog.PollResponse, error) {
	pending, err := s.logs.OldestPending(ctx)
	if err != nil {
		return synclog.PollResponse{}, fmt.Errorf("failed to poll pending sync: %w", err)
	}
	if pending == nil {
		return synclog.PollResponse{Pending: false}, nil
	}
	return synclog.PollResponse{
		Pending: true,
		SyncID:  &pending.ID,
		Days:    pending.Days,
		From:    pending.FromDate.Format("2006-01-02"),
		To:      pending.ToDate.Format("2006-01-02"),
	}, nil
}

// Start implements synclog.SyncService. Claiming a job that is not pending
// fails with synclog.ErrStaleJobClaim; claiming while another job runs is a
// no-op reported with Started false.
func (s *SyncServiceImpl) Start(ctx context.Context, id string) (synclog.StartResponse, error) {
	log, err := s.logs.MarkRunning(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, synclog.ErrSyncInProgress) {
			slog.Info("Sync start refused, another sync is running", "sync_log_id", id)
			return synclog.StartResponse{SyncID: id, Started: false, Reason: "another sync is running"}, nil
		}
		return synclog.StartResponse{}, err
	}

	slog.Info("Sync started by agent", "sync_log_id", log.ID)
	s.publish(synclog.EventStarted, synclog.NewSyncLogResponse(log))
	return synclog.StartResponse{SyncID: log.ID, Started: true}, nil
}

// Done implements synclog.SyncService. It stores what the agent delivered,
// runs reconciliation and moves the job to its terminal state.
func (s *SyncServiceImpl) Done(ctx context.Context, req synclog.DoneRequest) (synclog.SyncLogResponse, error) {
	if err := req.Validate(); err != nil {
		return synclog.SyncLogResponse{}, err
	}

	log, err := s.logs.GetByID(ctx, req.SyncID)
	if err != nil {
		return synclog.SyncLogResponse{}, err
	}
	if log.Status != synclog.StatusRunning {
		return synclog.SyncLogResponse{}, fmt.Errorf("sync %s is %s: %w", log.ID, log.Status, synclog.ErrStaleJobClaim)
	}

	counters := synclog.Counters{
		DevicesSynced: req.DevicesSynced,
		DevicesFailed: req.DevicesFailed,
		TotalUsers:    req.TotalUsers,
	}

	// The run outlives the agent's request.
	runCtx := context.WithoutCancel(ctx)

	reported := req.AgentEntries()

	if !*req.Success {
		if req.Error == nil || validator.IsEmpty(*req.Error) {
			reported = append([]synclog.ErrorEntry{{Kind: synclog.ErrorKindAgent, Message: "agent reported failure"}}, reported...)
		}
		finished, err := s.finish(runCtx, log, synclog.Outcome{
			Status:   synclog.StatusFailed,
			Counters: counters,
			Errors:   reported,
		})
		if err != nil {
			return synclog.SyncLogResponse{}, err
		}
		return synclog.NewSyncLogResponse(finished), nil
	}

	entries, err := s.ingest(runCtx, req)
	entries = append(reported, entries...)
	if err != nil {
		finished, ferr := s.finish(runCtx, log, synclog.Outcome{
			Status:   synclog.StatusFailed,
			Counters: counters,
			Errors: append(entries, synclog.ErrorEntry{
				Kind:    synclog.ErrorKindSourceUnavailable,
				Message: err.Error(),
			}),
		})
		if ferr != nil {
			return synclog.SyncLogResponse{}, ferr
		}
		return synclog.NewSyncLogResponse(finished), nil
	}

	finished, err := s.finish(runCtx, log, s.execute(runCtx, log, counters, entries))
	if err != nil {
		return synclog.SyncLogResponse{}, err
	}
	return synclog.NewSyncLogResponse(finished), nil
}

// ingest stores the users and punches carried by a done report. Malformed
// punches are reported and skipped.
func (s *SyncServiceImpl) ingest(ctx context.Context, req synclog.DoneRequest) ([]synclog.ErrorEntry, error) {
	var entries []synclog.ErrorEntry
	loc := s.policy.Zone()

	if len(req.Users) > 0 {
		users := make([]punch.DeviceUser, 0, len(req.Users))
		for _, u := range req.Users {
			users = append(users, punch.DeviceUser{UserID: u.UserID, Name: u.Name})
		}
		if err := s.punches.UpsertDeviceUsers(ctx, users); err != nil {
			return entries, fmt.Errorf("%w: storing device users: %v", synclog.ErrSourceUnavailable, err)
		}
	}

	if len(req.Punches) == 0 {
		return entries, nil
	}
	raw := make([]punch.RawPunch, 0, len(req.Punches))
	for _, p := range req.Punches {
		rp, err := p.ToRawPunch(loc)
		if err != nil {
			entries = append(entries, synclog.ErrorEntry{Kind: attendance.ErrorKindBadData, EmployeeID: p.UserID, Message: err.Error()})
			continue
		}
		raw = append(raw, rp)
	}
	inserted, err := s.punches.InsertBatch(ctx, raw)
	if err != nil {
		return entries, fmt.Errorf("%w: storing punches: %v", synclog.ErrSourceUnavailable, err)
	}
	s.metrics.AddPunches(inserted)
	slog.Info("Stored agent punches", "sync_id", req.SyncID, "received", len(req.Punches), "inserted", inserted)
	return entries, nil
}

// Heartbeat implements synclog.SyncService.
func (s *SyncServiceImpl) Heartbeat(_ context.Context, req synclog.HeartbeatRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	now := s.now()
	s.heartbeats.SetDefault(heartbeatKey, agentInfo{
		AgentID:  req.AgentID,
		Version:  req.Version,
		Hostname: req.Hostname,
		Devices:  req.Devices,
		LastSeen: now,
	})
	s.metrics.ObserveHeartbeat(now)
	return nil
}

// AgentStatus implements synclog.SyncService. The agent is online while its
// last heartbeat has not expired.
func (s *SyncServiceImpl) AgentStatus(_ context.Context) synclog.AgentStatusResponse {
	v, ok := s.heartbeats.Get(heartbeatKey)
	if !ok {
		return synclog.AgentStatusResponse{Online: false}
	}
	info := v.(agentInfo)
	seen := info.LastSeen.Format(time.RFC3339)
	return synclog.AgentStatusResponse{
		Online:   true,
		AgentID:  info.AgentID,
		Version:  info.Version,
		Hostname: info.Hostname,
		Devices:  info.Devices,
		LastSeen: &seen,
	}
}
