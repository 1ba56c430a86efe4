package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	"github.com/pinky-hr/attendance-engine/internal/handler/http/response"
)

// SyncAgentHandler serves the collector agent's polling protocol.
type SyncAgentHandler interface {
	Poll(w http.ResponseWriter, r *http.Request)
	Start(w http.ResponseWriter, r *http.Request)
	Done(w http.ResponseWriter, r *http.Request)
	Heartbeat(w http.ResponseWriter, r *http.Request)
}

// DefaultMaxDoneBytes caps a done report when no limit is configured.
const DefaultMaxDoneBytes int64 = 32 << 20

type syncAgentHandlerImpl struct {
	syncService  synclog.SyncService
	maxDoneBytes int64
}

func NewSyncAgentHandler(syncService synclog.SyncService, maxDoneBytes int64) SyncAgentHandler {
	if maxDoneBytes <= 0 {
		maxDoneBytes = DefaultMaxDoneBytes
	}
	return &syncAgentHandlerImpl{syncService: syncService, maxDoneBytes: maxDoneBytes}
}

// Poll implements SyncAgentHandler.
func (h *syncAgentHandlerImpl) Poll(w http.ResponseWriter, r *http.Request) {
	resp, err := h.syncService.Poll(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, resp)
}

// Start implements SyncAgentHandler.
func (h *syncAgentHandlerImpl) Start(w http.ResponseWriter, r *http.Request) {
	resp, err := h.syncService.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if !resp.Started {
		response.SuccessWithMessage(w, resp.Reason, resp)
		return
	}
	response.SuccessWithMessage(w, "Sync started", resp)
}

// Done implements SyncAgentHandler.
func (h *syncAgentHandlerImpl) Done(w http.ResponseWriter, r *http.Request) {
	var req synclog.DoneRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.maxDoneBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Warn("Done report exceeds body limit", "sync_id", chi.URLParam(r, "id"), "limit", tooLarge.Limit)
			response.PayloadTooLarge(w, tooLarge.Limit)
			return
		}
		slog.Warn("Failed to decode done report", "error", err)
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.SyncID = chi.URLParam(r, "id")

	resp, err := h.syncService.Done(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Sync "+resp.Status, resp)
}

// Heartbeat implements SyncAgentHandler.
func (h *syncAgentHandlerImpl) Heartbeat(w http.ResponseWriter, r *http.Request) {
	var req synclog.HeartbeatRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "Invalid request body", nil)
			return
		}
	}

	if err := h.syncService.Heartbeat(r.Context(), req); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "ok", nil)
}
