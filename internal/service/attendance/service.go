package attendance

import (
	"context"
	"fmt"
	"math"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/authorization"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	authz   authorization.Lookup
	builder *Builder
}

// ListAttendance implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) ListAttendance(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := a.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	responses := make([]attendance.AttendanceResponse, 0, len(records))
	for _, rec := range records {
		v, err := a.visibility(ctx, rec)
		if err != nil {
			return attendance.ListAttendanceResponse{}, err
		}
		responses = append(responses, attendance.NewAttendanceResponse(rec, v))
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  int(math.Ceil(float64(total) / float64(filter.Limit))),
		Attendances: responses,
	}, nil
}

// Recalculate implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) Recalculate(ctx context.Context, req attendance.RecalculateRequest, progress func(done, total int)) (attendance.RecalculateResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.RecalculateResponse{}, err
	}

	loc := a.builder.Policy().Zone()
	report, err := a.builder.RecalculateRange(ctx, RangeQuery{
		From:       CivilDate(req.FromDate, loc),
		To:         CivilDate(req.ToDate, loc),
		EmployeeID: req.EmployeeID,
		Reprocess:  req.Reprocess,
	}, progress)
	if err != nil {
		return attendance.RecalculateResponse{}, err
	}

	return attendance.RecalculateResponse{
		From:      req.From,
		To:        req.To,
		Reprocess: req.Reprocess,
		Report:    report,
	}, nil
}

// SetDesignation implements attendance.AttendanceService.
func (a *AttendanceServiceImpl) SetDesignation(ctx context.Context, req attendance.DesignationRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	rec, err := a.AttendanceRepository.SetManualDesignation(ctx, req.EmployeeID, req.WorkDate, req.OvertimeHours, req.NightShift, req.Reason)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	v, err := a.visibility(ctx, rec)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(rec, v), nil
}

// visibility asks the authorization collaborator at read time, since
// approvals can change after the record was written.
func (a *AttendanceServiceImpl) visibility(ctx context.Context, rec attendance.Record) (attendance.Visibility, error) {
	var v attendance.Visibility
	var err error

	if v.Overtime, err = a.authz.IsAuthorized(ctx, rec.EmployeeID, rec.WorkDate, authorization.KindOvertime); err != nil {
		return v, fmt.Errorf("failed to check overtime authorization: %w", err)
	}
	if v.NightShift, err = a.authz.IsAuthorized(ctx, rec.EmployeeID, rec.WorkDate, authorization.KindNightShift); err != nil {
		return v, fmt.Errorf("failed to check night shift authorization: %w", err)
	}
	return v, nil
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	authz authorization.Lookup,
	builder *Builder,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		authz:                authz,
		builder:              builder,
	}
}

var _ attendance.Reconciler = (*Builder)(nil)

