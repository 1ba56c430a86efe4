package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
)

type AnomalyServiceImpl struct {
	anomalies anomaly.AnomalyRepository
}

func NewAnomalyService(anomalies anomaly.AnomalyRepository) anomaly.AnomalyService {
	return &AnomalyServiceImpl{anomalies: anomalies}
}

// ListAnomalies implements anomaly.AnomalyService.
func (s *AnomalyServiceImpl) ListAnomalies(ctx context.Context, filter anomaly.AnomalyFilter) (anomaly.ListAnomalyResponse, error) {
	if err := filter.Validate(); err != nil {
		return anomaly.ListAnomalyResponse{}, err
	}

	found, total, err := s.anomalies.List(ctx, filter)
	if err != nil {
		return anomaly.ListAnomalyResponse{}, fmt.Errorf("failed to list anomalies: %w", err)
	}

	responses := make([]anomaly.AnomalyResponse, 0, len(found))
	for _, a := range found {
		responses = append(responses, anomaly.NewAnomalyResponse(a))
	}

	return anomaly.ListAnomalyResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.Limit))),
		Anomalies:  responses,
	}, nil
}

// CloseAnomaly implements anomaly.AnomalyService.
func (s *AnomalyServiceImpl) CloseAnomaly(ctx context.Context, req anomaly.CloseRequest) (anomaly.AnomalyResponse, error) {
	if err := req.Validate(); err != nil {
		return anomaly.AnomalyResponse{}, err
	}

	closed, err := s.anomalies.Close(ctx, req.ID, anomaly.Status(req.Status), req.ClosedBy, req.Notes)
	if err != nil {
		return anomaly.AnomalyResponse{}, err
	}

	slog.Info("Anomaly closed",
		"anomaly_id", closed.ID,
		"employee_id", closed.EmployeeID,
		"work_date", closed.WorkDate.Format("2006-01-02"),
		"type", closed.Type,
		"status", closed.Status,
	)
	return anomaly.NewAnomalyResponse(closed), nil
}
