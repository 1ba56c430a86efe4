package synclog

import (
	"context"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/pkg/sse"
)

// SyncService drives sync jobs through pending, running and a terminal state.
type SyncService interface {
	RequestSync(ctx context.Context, req RequestSyncRequest, trigger Trigger) (SyncLogResponse, error)
	Poll(ctx context.Context) (PollResponse, error)
	Start(ctx context.Context, id string) (StartResponse, error)
	Done(ctx context.Context, req DoneRequest) (SyncLogResponse, error)
	Heartbeat(ctx context.Context, req HeartbeatRequest) error
	AgentStatus(ctx context.Context) AgentStatusResponse

	// RunLocal executes a sync over the last days against stored punches
	// without going through an agent.
	RunLocal(ctx context.Context, days int, trigger Trigger) (SyncLogResponse, error)

	// Sweep fails running jobs older than the threshold.
	Sweep(ctx context.Context, threshold time.Duration) ([]string, error)

	// Subscribe streams lifecycle events until cleanup is called.
	Subscribe(ctx context.Context) (<-chan sse.Event, func())

	GetSyncLog(ctx context.Context, id string) (SyncLogResponse, error)
	ListSyncLogs(ctx context.Context, filter SyncLogFilter) (ListSyncLogResponse, error)
}
