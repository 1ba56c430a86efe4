package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
)

// ResolverImpl resolves schedules from the HR store, caching each
// employee's schedule per date for a short TTL. A sync run resolves the
// same employee once per date it covers.
type ResolverImpl struct {
	repo     schedule.ScheduleRepository
	fallback *schedule.Schedule
	cache    *cache.Cache
}

// NewResolver returns a schedule.Resolver. When fallback is non-nil it is
// used for employees without an active schedule instead of failing.
func NewResolver(repo schedule.ScheduleRepository, fallback *schedule.Schedule, ttl time.Duration) *ResolverImpl {
	return &ResolverImpl{
		repo:     repo,
		fallback: fallback,
		cache:    cache.New(ttl, 2*ttl),
	}
}

// Resolve implements schedule.Resolver.
func (r *ResolverImpl) Resolve(ctx context.Context, employeeID string, date time.Time) (schedule.Resolved, error) {
	if v, ok := r.cache.Get(cacheKey(employeeID, date)); ok {
		return v.(schedule.Resolved), nil
	}
	return r.ResolveFresh(ctx, employeeID, date)
}

// ResolveFresh implements schedule.FreshResolver.
func (r *ResolverImpl) ResolveFresh(ctx context.Context, employeeID string, date time.Time) (schedule.Resolved, error) {
	s, err := r.repo.GetActiveForEmployee(ctx, employeeID, date)
	if err != nil {
		if !errors.Is(err, schedule.ErrScheduleNotFound) {
			return schedule.Resolved{}, fmt.Errorf("failed to get schedule for employee %s: %w", employeeID, err)
		}
		if r.fallback == nil {
			return schedule.Resolved{}, fmt.Errorf("employee %s on %s: %w", employeeID, date.Format("2006-01-02"), err)
		}
		s = *r.fallback
	}

	resolved := s.ResolveFor(date)
	r.cache.SetDefault(cacheKey(employeeID, date), resolved)
	return resolved, nil
}

var _ schedule.FreshResolver = (*ResolverImpl)(nil)

func cacheKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

// DefaultSchedule is the company-wide schedule used when an employee has
// none: Monday to Friday 07:00-17:00 with a one hour break.
func DefaultSchedule() schedule.Schedule {
	return schedule.Schedule{
		ID:                   "default",
		Code:                 "DEFAULT",
		Name:                 "Default",
		EntryTime:            schedule.MustClockTime("07:00"),
		ExitTime:             schedule.MustClockTime("17:00"),
		BreakMinutes:         60,
		LateToleranceMinutes: 10,
		DailyWorkHours:       9,
		WorkingDays:          []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		IsActive:             true,
	}
}
