package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	"github.com/pinky-hr/attendance-engine/internal/handler/http/middleware"
	"github.com/pinky-hr/attendance-engine/internal/pkg/jwt"
	"github.com/pinky-hr/attendance-engine/internal/pkg/sse"
)

const testAgentKey = "agent-secret"

type fakeSyncService struct {
	startResp   synclog.StartResponse
	startErr    error
	doneReq     *synclog.DoneRequest
	requestedBy *string
	heartbeats  int
	hub         *sse.Hub
}

func (f *fakeSyncService) Subscribe(context.Context) (<-chan sse.Event, func()) {
	return f.hub.Subscribe(synclog.EventTopic)
}

func (f *fakeSyncService) RequestSync(_ context.Context, req synclog.RequestSyncRequest, trigger synclog.Trigger) (synclog.SyncLogResponse, error) {
	if err := req.Validate(7); err != nil {
		return synclog.SyncLogResponse{}, err
	}
	f.requestedBy = req.RequestedBy
	return synclog.SyncLogResponse{ID: "sync-1", Status: "pending", Trigger: string(trigger), Days: req.Days}, nil
}

func (f *fakeSyncService) Poll(context.Context) (synclog.PollResponse, error) {
	return synclog.PollResponse{Pending: false}, nil
}

func (f *fakeSyncService) Start(_ context.Context, id string) (synclog.StartResponse, error) {
	if f.startErr != nil {
		return synclog.StartResponse{}, f.startErr
	}
	resp := f.startResp
	resp.SyncID = id
	return resp, nil
}

func (f *fakeSyncService) Done(_ context.Context, req synclog.DoneRequest) (synclog.SyncLogResponse, error) {
	if err := req.Validate(); err != nil {
		return synclog.SyncLogResponse{}, err
	}
	f.doneReq = &req
	return synclog.SyncLogResponse{ID: req.SyncID, Status: "completed"}, nil
}

func (f *fakeSyncService) Heartbeat(_ context.Context, req synclog.HeartbeatRequest) error {
	f.heartbeats++
	return req.Validate()
}

func (f *fakeSyncService) AgentStatus(context.Context) synclog.AgentStatusResponse {
	return synclog.AgentStatusResponse{Online: f.heartbeats > 0}
}

func (f *fakeSyncService) RunLocal(context.Context, int, synclog.Trigger) (synclog.SyncLogResponse, error) {
	return synclog.SyncLogResponse{}, nil
}

func (f *fakeSyncService) Sweep(context.Context, time.Duration) ([]string, error) {
	return nil, nil
}

func (f *fakeSyncService) GetSyncLog(_ context.Context, id string) (synclog.SyncLogResponse, error) {
	if id != "sync-1" {
		return synclog.SyncLogResponse{}, fmt.Errorf("sync log %s: %w", id, synclog.ErrSyncLogNotFound)
	}
	return synclog.SyncLogResponse{ID: id, Status: "completed"}, nil
}

func (f *fakeSyncService) ListSyncLogs(_ context.Context, filter synclog.SyncLogFilter) (synclog.ListSyncLogResponse, error) {
	if err := filter.Validate(); err != nil {
		return synclog.ListSyncLogResponse{}, err
	}
	return synclog.ListSyncLogResponse{TotalCount: 1, Page: filter.Page, Limit: filter.Limit, TotalPages: 1,
		Logs: []synclog.SyncLogResponse{{ID: "sync-1"}}}, nil
}

type fakeAttendanceService struct {
	designation *attendance.DesignationRequest
}

func (f *fakeAttendanceService) ListAttendance(context.Context, attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	return attendance.ListAttendanceResponse{Page: 1, Limit: 20}, nil
}

func (f *fakeAttendanceService) Recalculate(_ context.Context, req attendance.RecalculateRequest, _ func(int, int)) (attendance.RecalculateResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecalculateResponse{}, err
	}
	return attendance.RecalculateResponse{From: req.From, To: req.To}, nil
}

func (f *fakeAttendanceService) SetDesignation(_ context.Context, req attendance.DesignationRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	f.designation = &req
	return attendance.AttendanceResponse{EmployeeID: req.EmployeeID}, nil
}

type fakeAnomalyService struct {
	closeReq *anomaly.CloseRequest
}

func (f *fakeAnomalyService) ListAnomalies(_ context.Context, filter anomaly.AnomalyFilter) (anomaly.ListAnomalyResponse, error) {
	if err := filter.Validate(); err != nil {
		return anomaly.ListAnomalyResponse{}, err
	}
	return anomaly.ListAnomalyResponse{TotalCount: 1, Page: filter.Page, Limit: filter.Limit, TotalPages: 1,
		Anomalies: []anomaly.AnomalyResponse{{ID: "an-1", Type: "late_arrival"}}}, nil
}

func (f *fakeAnomalyService) CloseAnomaly(_ context.Context, req anomaly.CloseRequest) (anomaly.AnomalyResponse, error) {
	if err := req.Validate(); err != nil {
		return anomaly.AnomalyResponse{}, err
	}
	if req.ID == "closed" {
		return anomaly.AnomalyResponse{}, fmt.Errorf("anomaly %s: %w", req.ID, anomaly.ErrAlreadyClosed)
	}
	f.closeReq = &req
	return anomaly.AnomalyResponse{ID: req.ID, Status: req.Status}, nil
}

// testDoneLimit keeps the done body limit small enough to exceed in a test.
const testDoneLimit = 4096

type testServer struct {
	router http.Handler
	sync   *fakeSyncService
	att    *fakeAttendanceService
	anom   *fakeAnomalyService
	jwt    jwt.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{
		sync: &fakeSyncService{startResp: synclog.StartResponse{Started: true}, hub: sse.NewHub()},
		att:  &fakeAttendanceService{},
		anom: &fakeAnomalyService{},
		jwt:  jwt.NewJWTService("test-secret", time.Hour),
	}
	s.router = NewRouter(RouterConfig{
		AppName:        "attendance-engine-test",
		AllowedOrigins: []string{"*"},
		AgentKey:       testAgentKey,
		AgentBurst:     100,
		AgentRateLimit: 100,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = io.WriteString(w, "# metrics\n") }),
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, s.jwt, NewSyncAgentHandler(s.sync, testDoneLimit), NewSyncHandler(s.sync), NewAttendanceHandler(s.att), NewAnomalyHandler(s.anom))
	return s
}

func (s *testServer) token(t *testing.T, admin bool) string {
	t.Helper()
	token, _, err := s.jwt.GenerateAccessToken("ops@example.com", admin)
	require.NoError(t, err)
	return token
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, body string, headers map[string]string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

func agentHeaders() map[string]string {
	return map[string]string{middleware.AgentKeyHeader: testAgentKey}
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestAgentEndpoints(t *testing.T) {
	s := newTestServer(t)

	t.Run("rejects missing key", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/sync-agent/poll", "", nil)
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.False(t, env.Success)
	})

	t.Run("poll", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/sync-agent/poll", "", agentHeaders())
		require.Equal(t, http.StatusOK, code)
		var poll synclog.PollResponse
		require.NoError(t, json.Unmarshal(env.Data, &poll))
		assert.False(t, poll.Pending)
	})

	t.Run("start stale claim is a conflict", func(t *testing.T) {
		s.sync.startErr = synclog.ErrStaleJobClaim
		defer func() { s.sync.startErr = nil }()

		code, env := s.do(t, http.MethodPost, "/api/sync-agent/abc/start", "", agentHeaders())
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "CONFLICT", env.Error.Code)
	})

	t.Run("start while another runs is a no-op", func(t *testing.T) {
		s.sync.startResp = synclog.StartResponse{Started: false, Reason: "another sync is running"}
		defer func() { s.sync.startResp = synclog.StartResponse{Started: true} }()

		code, env := s.do(t, http.MethodPost, "/api/sync-agent/abc/start", "", agentHeaders())
		require.Equal(t, http.StatusOK, code)
		var start synclog.StartResponse
		require.NoError(t, json.Unmarshal(env.Data, &start))
		assert.False(t, start.Started)
		assert.Equal(t, "abc", start.SyncID)
	})

	t.Run("done", func(t *testing.T) {
		body := `{"success": true, "devices_synced": 2, "punches": [{"user_id": "7", "timestamp": "2024-03-04T09:00:00Z"}]}`
		code, _ := s.do(t, http.MethodPost, "/api/sync-agent/abc/done", body, agentHeaders())
		require.Equal(t, http.StatusOK, code)
		require.NotNil(t, s.sync.doneReq)
		assert.Equal(t, "abc", s.sync.doneReq.SyncID)
		assert.Equal(t, 2, s.sync.doneReq.DevicesSynced)
		assert.Len(t, s.sync.doneReq.Punches, 1)
	})

	t.Run("done without success flag", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/sync-agent/abc/done", `{"devices_synced": 1}`, agentHeaders())
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, env.Error.Details, "success")
	})

	t.Run("done with per-device errors", func(t *testing.T) {
		body := `{"success": true, "errors": ["device 10.0.0.5 unreachable"]}`
		code, _ := s.do(t, http.MethodPost, "/api/sync-agent/abc/done", body, agentHeaders())
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, []string{"device 10.0.0.5 unreachable"}, s.sync.doneReq.Errors)
	})

	t.Run("done body over limit", func(t *testing.T) {
		s.sync.doneReq = nil
		body := `{"success": true, "error": "` + strings.Repeat("x", testDoneLimit) + `"}`
		code, env := s.do(t, http.MethodPost, "/api/sync-agent/abc/done", body, agentHeaders())
		assert.Equal(t, http.StatusRequestEntityTooLarge, code)
		assert.Equal(t, "PAYLOAD_TOO_LARGE", env.Error.Code)
		assert.Nil(t, s.sync.doneReq)
	})

	t.Run("done with malformed body", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPost, "/api/sync-agent/abc/done", `{`, agentHeaders())
		assert.Equal(t, http.StatusBadRequest, code)
	})

	t.Run("heartbeat without body", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPost, "/api/sync-agent/heartbeat", "", agentHeaders())
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, 1, s.sync.heartbeats)
	})
}

func TestOperatorEndpoints(t *testing.T) {
	s := newTestServer(t)

	t.Run("requires a token", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/v1/sync", "", nil)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("list sync logs", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/sync?page=1&limit=5", "", bearer(s.token(t, false)))
		require.Equal(t, http.StatusOK, code)
		var logs []synclog.SyncLogResponse
		require.NoError(t, json.Unmarshal(env.Data, &logs))
		assert.Len(t, logs, 1)
	})

	t.Run("invalid status filter", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/v1/sync?status=bogus", "", bearer(s.token(t, false)))
		assert.Equal(t, http.StatusUnprocessableEntity, code)
	})

	t.Run("unknown sync log", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/v1/sync/nope", "", bearer(s.token(t, false)))
		assert.Equal(t, http.StatusNotFound, code)
	})

	t.Run("agent status", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/v1/sync/agent", "", bearer(s.token(t, false)))
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("request sync needs admin", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPost, "/api/v1/sync", `{"days": 3}`, bearer(s.token(t, false)))
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("request sync", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/sync", `{"days": 3}`, bearer(s.token(t, true)))
		require.Equal(t, http.StatusCreated, code)
		var created synclog.SyncLogResponse
		require.NoError(t, json.Unmarshal(env.Data, &created))
		assert.Equal(t, "operator", created.Trigger)
		require.NotNil(t, s.sync.requestedBy)
		assert.Equal(t, "ops@example.com", *s.sync.requestedBy)
	})

	t.Run("recalculate validation", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/attendance/recalculate", `{"from": "2024-03-10", "to": "2024-03-01"}`, bearer(s.token(t, true)))
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, env.Error.Details, "to")
	})

	t.Run("set designation", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPut, "/api/v1/attendance/emp-1/2024-03-04/designation", `{"overtime_hours": 2}`, bearer(s.token(t, true)))
		require.Equal(t, http.StatusOK, code)
		require.NotNil(t, s.att.designation)
		assert.Equal(t, "emp-1", s.att.designation.EmployeeID)
		assert.Equal(t, "2024-03-04", s.att.designation.Date)
	})

	t.Run("list attendance", func(t *testing.T) {
		code, _ := s.do(t, http.MethodGet, "/api/v1/attendance?from=2024-03-01", "", bearer(s.token(t, false)))
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("list anomalies", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/anomalies?status=open&type=late_arrival", "", bearer(s.token(t, false)))
		require.Equal(t, http.StatusOK, code)
		var found []anomaly.AnomalyResponse
		require.NoError(t, json.Unmarshal(env.Data, &found))
		assert.Len(t, found, 1)
	})

	t.Run("list anomalies with unknown type", func(t *testing.T) {
		code, env := s.do(t, http.MethodGet, "/api/v1/anomalies?type=bogus", "", bearer(s.token(t, false)))
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Contains(t, env.Error.Details, "type")
	})

	t.Run("close anomaly needs admin", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPatch, "/api/v1/anomalies/an-1", `{"status": "resolved"}`, bearer(s.token(t, false)))
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("close anomaly", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPatch, "/api/v1/anomalies/an-1", `{"status": "dismissed", "resolution_notes": "device clock drift"}`, bearer(s.token(t, true)))
		require.Equal(t, http.StatusOK, code)
		require.NotNil(t, s.anom.closeReq)
		assert.Equal(t, "an-1", s.anom.closeReq.ID)
		require.NotNil(t, s.anom.closeReq.ClosedBy)
		assert.Equal(t, "ops@example.com", *s.anom.closeReq.ClosedBy)
	})

	t.Run("close anomaly twice", func(t *testing.T) {
		code, _ := s.do(t, http.MethodPatch, "/api/v1/anomalies/closed", `{"status": "resolved"}`, bearer(s.token(t, true)))
		assert.Equal(t, http.StatusConflict, code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestSyncEventStream(t *testing.T) {
	s := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sync/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+s.token(t, false))
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.router.ServeHTTP(rec, req)
	}()

	require.Eventually(t, func() bool { return s.sync.hub.SubscriberCount(synclog.EventTopic) == 1 }, time.Second, 5*time.Millisecond)
	s.sync.hub.Publish(sse.Event{
		Topic: synclog.EventTopic,
		Event: synclog.EventFinished,
		Data:  synclog.SyncLogResponse{ID: "sync-1", Status: "completed"},
	})
	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: connected")
	assert.Contains(t, body, "event: sync.finished")
	assert.Contains(t, body, `"id":"sync-1"`)
	assert.Zero(t, s.sync.hub.SubscriberCount(synclog.EventTopic))
}
