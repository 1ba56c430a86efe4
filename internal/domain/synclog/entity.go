package synclog

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type Trigger string

const (
	TriggerAgent    Trigger = "agent"
	TriggerCommand  Trigger = "command"
	TriggerSchedule Trigger = "schedule"
	TriggerOperator Trigger = "operator"
)

// Error entry kinds written by the orchestrator in addition to per-record kinds.
const (
	ErrorKindAgent             = "agent_error"
	ErrorKindSourceUnavailable = "source_unavailable"
	ErrorKindTimeout           = "timeout"
	ErrorKindRoster            = "roster_failed"
)

// Lifecycle events published on EventTopic.
const (
	EventTopic     = "sync"
	EventRequested = "sync.requested"
	EventStarted   = "sync.started"
	EventFinished  = "sync.finished"
	EventSwept     = "sync.swept"
)

// SweptEvent is the payload of EventSwept.
type SweptEvent struct {
	ID        string `json:"sync_log_id"`
	Threshold string `json:"threshold"`
}

// SyncLog is one sync job. Only one job may be running at a time.
type SyncLog struct {
	ID          string
	Status      Status
	Trigger     Trigger
	RequestedBy *string
	FromDate    time.Time
	ToDate      time.Time
	Days        int

	StartedAt   *time.Time
	CompletedAt *time.Time

	Counters
	Errors []ErrorEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

type ErrorEntry struct {
	Kind       string `json:"kind"`
	EmployeeID string `json:"employee_id,omitempty"`
	WorkDate   string `json:"work_date,omitempty"`
	Message    string `json:"message"`
}

// Duration is the wall time between start and completion, zero if either is unset.
func (s SyncLog) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}
	return s.CompletedAt.Sub(*s.StartedAt)
}

// Counters are the run totals reported by the agent and the pipeline.
type Counters struct {
	DevicesSynced           int `json:"devices_synced"`
	DevicesFailed           int `json:"devices_failed"`
	TotalUsers              int `json:"total_users"`
	RecordsFetched          int `json:"records_fetched"`
	RecordsProcessed        int `json:"records_processed"`
	RecordsCreated          int `json:"records_created"`
	RecordsUpdated          int `json:"records_updated"`
	RecordsFailed           int `json:"records_failed"`
	EmployeesImported       int `json:"employees_imported"`
	EmployeesUpdated        int `json:"employees_updated"`
	EmployeesMarkedInactive int `json:"employees_marked_inactive"`
	AnomaliesDetected       int `json:"anomalies_detected"`
}

// Outcome is the terminal state written by Finish.
type Outcome struct {
	Status Status
	Counters
	Errors []ErrorEntry
}
