package synclog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pinky-hr/attendance-engine/internal/domain/employee"
	"github.com/pinky-hr/attendance-engine/internal/domain/punch"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
)

type rosterResult struct {
	imported int
	updated  int
	inactive int
	errors   []synclog.ErrorEntry
}

// importRoster brings the employee store in line with the device users.
// Unknown users are created, placeholder names are replaced once the device
// has a real one, and activity in the inactivity window decides the status.
// Terminated employees are never reactivated.
func (s *SyncServiceImpl) importRoster(ctx context.Context, users []punch.DeviceUser) (rosterResult, error) {
	var res rosterResult
	if len(users) == 0 {
		return res, nil
	}

	since := s.now().AddDate(0, 0, -s.opts.InactivityDays)
	recentIDs, err := s.punches.ActiveUsersSince(ctx, since)
	if err != nil {
		return res, fmt.Errorf("%w: listing recent punchers: %v", synclog.ErrSourceUnavailable, err)
	}
	recent := make(map[string]bool, len(recentIDs))
	for _, id := range recentIDs {
		recent[id] = true
	}

	linked, err := s.employees.ListLinked(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: listing employees: %v", synclog.ErrSourceUnavailable, err)
	}
	byDevice := make(map[string]employee.Employee, len(linked))
	for _, e := range linked {
		byDevice[e.DeviceUserID] = e
	}

	seen := make([]string, 0, len(users))
	for _, u := range users {
		userID := strings.TrimSpace(u.UserID)
		if userID == "" {
			continue
		}
		seen = append(seen, userID)

		status := employee.StatusInactive
		if recent[userID] {
			status = employee.StatusActive
		}

		existing, ok := byDevice[userID]
		if !ok {
			name := employee.ParseName(u.Name, userID)
			_, err := s.employees.Create(ctx, employee.Employee{
				DeviceUserID: userID,
				EmployeeCode: employeeCode(userID),
				FirstName:    name.FirstName,
				LastName:     name.LastName,
				FullName:     name.FullName,
				Status:       status,
			})
			if err != nil {
				res.errors = append(res.errors, synclog.ErrorEntry{Kind: synclog.ErrorKindRoster, EmployeeID: userID, Message: err.Error()})
				continue
			}
			res.imported++
			slog.Info("Imported employee from device", "device_user_id", userID, "name", name.FullName, "status", status)
			continue
		}

		changed := false
		if existing.Status != status && existing.Status != employee.StatusTerminated {
			existing.Status = status
			changed = true
		}
		if existing.HasPlaceholderName() && !employee.IsDevicePlaceholder(u.Name) {
			name := employee.ParseName(u.Name, userID)
			existing.FirstName, existing.LastName, existing.FullName = name.FirstName, name.LastName, name.FullName
			changed = true
		}
		if !changed {
			continue
		}
		if err := s.employees.Update(ctx, existing); err != nil {
			res.errors = append(res.errors, synclog.ErrorEntry{Kind: synclog.ErrorKindRoster, EmployeeID: userID, Message: err.Error()})
			continue
		}
		res.updated++
	}

	res.inactive, err = s.employees.MarkMissingInactive(ctx, seen)
	if err != nil {
		res.errors = append(res.errors, synclog.ErrorEntry{Kind: synclog.ErrorKindRoster, Message: err.Error()})
	}
	if res.inactive > 0 {
		slog.Info("Marked employees missing from devices inactive", "count", res.inactive)
	}
	return res, nil
}

// employeeCode pads numeric device ids to four digits: "7" becomes "EMP-0007".
func employeeCode(userID string) string {
	if n := 4 - len(userID); n > 0 {
		userID = strings.Repeat("0", n) + userID
	}
	return "EMP-" + userID
}
