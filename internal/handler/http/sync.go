package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	"github.com/pinky-hr/attendance-engine/internal/handler/http/middleware"
	"github.com/pinky-hr/attendance-engine/internal/handler/http/response"
)

// SyncHandler serves the operator side of sync jobs.
type SyncHandler interface {
	Request(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	AgentStatus(w http.ResponseWriter, r *http.Request)
	Events(w http.ResponseWriter, r *http.Request)
}

type syncHandlerImpl struct {
	syncService synclog.SyncService
}

func NewSyncHandler(syncService synclog.SyncService) SyncHandler {
	return &syncHandlerImpl{syncService: syncService}
}

// Request implements SyncHandler.
func (h *syncHandlerImpl) Request(w http.ResponseWriter, r *http.Request) {
	var req synclog.RequestSyncRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}
	req.RequestedBy = middleware.Subject(r)

	resp, err := h.syncService.RequestSync(r.Context(), req, synclog.TriggerOperator)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Sync requested", resp)
}

// List implements SyncHandler.
func (h *syncHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	filter := synclog.SyncLogFilter{}
	query := r.URL.Query()

	if status := query.Get("status"); status != "" {
		filter.Status = &status
	}
	if p := query.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil {
			filter.Page = page
		}
	}
	if l := query.Get("limit"); l != "" {
		if limit, err := strconv.Atoi(l); err == nil {
			filter.Limit = limit
		}
	}

	resp, err := h.syncService.ListSyncLogs(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMeta(w, resp.Logs, &response.Meta{
		Page:       resp.Page,
		Limit:      resp.Limit,
		TotalItems: resp.TotalCount,
		TotalPages: resp.TotalPages,
	})
}

// Get implements SyncHandler.
func (h *syncHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.syncService.GetSyncLog(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, resp)
}

// AgentStatus implements SyncHandler.
func (h *syncHandlerImpl) AgentStatus(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.syncService.AgentStatus(r.Context()))
}

// Events implements SyncHandler. It streams sync lifecycle events as SSE.
func (h *syncHandlerImpl) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	// Streams outlive the server write timeout.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	events, cleanup := h.syncService.Subscribe(r.Context())
	defer cleanup()

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
