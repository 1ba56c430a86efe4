package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/auth"
	"github.com/pinky-hr/attendance-engine/internal/domain/employee"
	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
	"github.com/pinky-hr/attendance-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or missing token")
	case errors.Is(err, auth.ErrInvalidAgentKey):
		Unauthorized(w, "Invalid agent key")
	case errors.Is(err, auth.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")

	// Sync errors
	case errors.Is(err, synclog.ErrSyncLogNotFound):
		NotFound(w, "Sync log not found")
	case errors.Is(err, synclog.ErrStaleJobClaim):
		Conflict(w, err.Error())
	case errors.Is(err, synclog.ErrSyncInProgress):
		Conflict(w, "Another sync is already running")
	case errors.Is(err, synclog.ErrInvalidRange):
		BadRequest(w, err.Error(), nil)

	// Attendance errors
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, schedule.ErrScheduleNotFound):
		NotFound(w, "No active schedule for employee")

	// Anomaly errors
	case errors.Is(err, anomaly.ErrAnomalyNotFound):
		NotFound(w, "Anomaly not found")
	case errors.Is(err, anomaly.ErrAlreadyClosed):
		Conflict(w, "Anomaly is already closed")

	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
