package anomaly

import (
	"context"
)

// AnomalyService exposes detected anomalies to operators.
type AnomalyService interface {
	ListAnomalies(ctx context.Context, filter AnomalyFilter) (ListAnomalyResponse, error)
	CloseAnomaly(ctx context.Context, req CloseRequest) (AnomalyResponse, error)
}
