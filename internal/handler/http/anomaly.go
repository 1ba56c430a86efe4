package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
	"github.com/pinky-hr/attendance-engine/internal/handler/http/middleware"
	"github.com/pinky-hr/attendance-engine/internal/handler/http/response"
)

type AnomalyHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	Close(w http.ResponseWriter, r *http.Request)
}

type anomalyHandlerImpl struct {
	anomalyService anomaly.AnomalyService
}

func NewAnomalyHandler(anomalyService anomaly.AnomalyService) AnomalyHandler {
	return &anomalyHandlerImpl{
		anomalyService: anomalyService,
	}
}

// List implements AnomalyHandler.
func (h *anomalyHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := anomaly.AnomalyFilter{}

	if employeeID := query.Get("employee_id"); employeeID != "" {
		filter.EmployeeID = &employeeID
	}
	if from := query.Get("from"); from != "" {
		filter.From = &from
	}
	if to := query.Get("to"); to != "" {
		filter.To = &to
	}
	if typ := query.Get("type"); typ != "" {
		filter.Type = &typ
	}
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

	resp, err := h.anomalyService.ListAnomalies(r.Context(), filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMeta(w, resp.Anomalies, &response.Meta{
		Page:       resp.Page,
		Limit:      resp.Limit,
		TotalItems: resp.TotalCount,
		TotalPages: resp.TotalPages,
	})
}

// Close implements AnomalyHandler.
func (h *anomalyHandlerImpl) Close(w http.ResponseWriter, r *http.Request) {
	var req anomaly.CloseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body", nil)
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.ClosedBy = middleware.Subject(r)

	resp, err := h.anomalyService.CloseAnomaly(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Anomaly closed", resp)
}
