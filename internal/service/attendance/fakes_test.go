package attendance

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/anomaly"
	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/authorization"
	"github.com/pinky-hr/attendance-engine/internal/domain/designation"
	"github.com/pinky-hr/attendance-engine/internal/domain/schedule"
)

func recordKey(employeeID string, date time.Time) string {
	return employeeID + "|" + date.Format("2006-01-02")
}

type fakeRecords struct {
	mu        sync.Mutex
	rows      map[string]attendance.Record
	upserts   int
	deletes   int
	failWrite map[string]bool
	nextID    int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{rows: map[string]attendance.Record{}, failWrite: map[string]bool{}}
}

func (f *fakeRecords) Get(_ context.Context, employeeID string, workDate time.Time) (*attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.rows[recordKey(employeeID, workDate)]
	if !ok {
		return nil, nil
	}
	rec.RawPunches = slices.Clone(rec.RawPunches)
	return &rec, nil
}

func (f *fakeRecords) Upsert(_ context.Context, rec attendance.Record) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite[rec.EmployeeID] {
		return false, errors.New("write refused")
	}
	f.upserts++
	key := recordKey(rec.EmployeeID, rec.WorkDate)
	_, exists := f.rows[key]
	if rec.ID == "" {
		f.nextID++
		rec.ID = fmt.Sprintf("rec-%d", f.nextID)
	}
	rec.RawPunches = slices.Clone(rec.RawPunches)
	rec.AnomalyCount = f.rows[key].AnomalyCount
	f.rows[key] = rec
	return !exists, nil
}

func (f *fakeRecords) Delete(_ context.Context, employeeID string, workDate time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.rows, recordKey(employeeID, workDate))
	return nil
}

func (f *fakeRecords) sorted(from, to time.Time, employeeID *string) []attendance.Record {
	var out []attendance.Record
	for _, r := range f.rows {
		if r.WorkDate.Before(from) || r.WorkDate.After(to) {
			continue
		}
		if employeeID != nil && r.EmployeeID != *employeeID {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b attendance.Record) int {
		if c := a.WorkDate.Compare(b.WorkDate); c != 0 {
			return c
		}
		if a.EmployeeID < b.EmployeeID {
			return -1
		}
		if a.EmployeeID > b.EmployeeID {
			return 1
		}
		return 0
	})
	return out
}

func (f *fakeRecords) ListChunk(_ context.Context, q attendance.ChunkQuery) ([]attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []attendance.Record
	for _, r := range f.sorted(q.From, q.To, q.EmployeeID) {
		if q.AfterDate != nil {
			c := r.WorkDate.Compare(*q.AfterDate)
			if c < 0 || (c == 0 && r.EmployeeID <= q.AfterEmployeeID) {
				continue
			}
		}
		out = append(out, r)
		if len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRecords) Count(_ context.Context, from, to time.Time, employeeID *string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.sorted(from, to, employeeID))), nil
}

func (f *fakeRecords) List(_ context.Context, filter attendance.AttendanceFilter) ([]attendance.Record, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := f.sorted(time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC), filter.EmployeeID)
	return all, int64(len(all)), nil
}

func (f *fakeRecords) SetManualDesignation(_ context.Context, employeeID string, workDate time.Time, overtime *float64, night *bool, reason *string) (attendance.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := recordKey(employeeID, workDate)
	rec, ok := f.rows[key]
	if !ok {
		return attendance.Record{}, attendance.ErrAttendanceNotFound
	}
	fp := rec.PunchFingerprint
	rec.ManualOvertimeHours, rec.ManualNightShift, rec.ManualReason, rec.ManualFingerprint = overtime, night, reason, &fp
	f.rows[key] = rec
	return rec, nil
}

func (f *fakeRecords) get(employeeID string, date time.Time) attendance.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[recordKey(employeeID, date)]
}

type fakeResolver struct {
	byEmployee map[string]schedule.Resolved
	weekend    bool
}

func (f fakeResolver) Resolve(_ context.Context, employeeID string, date time.Time) (schedule.Resolved, error) {
	r, ok := f.byEmployee[employeeID]
	if !ok {
		return schedule.Resolved{}, fmt.Errorf("employee %s: %w", employeeID, schedule.ErrScheduleNotFound)
	}
	if f.weekend && (date.Weekday() == time.Saturday || date.Weekday() == time.Sunday) {
		r.IsWorkingDay = false
	}
	return r, nil
}

type fakeDesignations map[string]designation.Kind

func (f fakeDesignations) Find(_ context.Context, employeeID string, date time.Time) (*designation.Designation, error) {
	kind, ok := f[recordKey(employeeID, date)]
	if !ok {
		return nil, nil
	}
	return &designation.Designation{EmployeeID: &employeeID, Date: date, Kind: kind}, nil
}

type fakeAuthz map[authorization.Kind]bool

func (f fakeAuthz) IsAuthorized(_ context.Context, _ string, _ time.Time, kind authorization.Kind) (bool, error) {
	return f[kind], nil
}

// fakeAnomalies keeps anomalies per record key with the store's sync rules
// and writes the open count back to the record.
type fakeAnomalies struct {
	mu      sync.Mutex
	records *fakeRecords
	rows    map[string][]anomaly.Anomaly
	weeks   map[string]anomaly.LateAccumulation
	syncErr error
}

func newFakeAnomalies(records *fakeRecords) *fakeAnomalies {
	return &fakeAnomalies{records: records, rows: map[string][]anomaly.Anomaly{}, weeks: map[string]anomaly.LateAccumulation{}}
}

func (f *fakeAnomalies) Sync(_ context.Context, employeeID string, workDate time.Time, detected []anomaly.Anomaly) (anomaly.SyncResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return anomaly.SyncResult{}, f.syncErr
	}
	key := recordKey(employeeID, workDate)
	wanted := map[anomaly.Type]anomaly.Anomaly{}
	for _, a := range detected {
		wanted[a.Type] = a
	}

	var res anomaly.SyncResult
	var kept []anomaly.Anomaly
	for _, a := range f.rows[key] {
		d, still := wanted[a.Type]
		delete(wanted, a.Type)
		switch {
		case a.Status != anomaly.StatusOpen:
			kept = append(kept, a)
		case still:
			d.ID = a.ID
			kept = append(kept, d)
		case a.AutoDetected:
			res.Removed++
		default:
			kept = append(kept, a)
		}
	}
	for _, t := range anomaly.TypeValues {
		if a, ok := wanted[anomaly.Type(t)]; ok {
			a.ID = fmt.Sprintf("%s-%s", key, t)
			kept = append(kept, a)
			res.Created++
		}
	}
	for _, a := range kept {
		if a.Status == anomaly.StatusOpen {
			res.Open++
		}
	}
	f.rows[key] = kept

	f.records.mu.Lock()
	if rec, ok := f.records.rows[key]; ok {
		rec.AnomalyCount = res.Open
		f.records.rows[key] = rec
	}
	f.records.mu.Unlock()
	return res, nil
}

func (f *fakeAnomalies) List(_ context.Context, _ anomaly.AnomalyFilter) ([]anomaly.Anomaly, int64, error) {
	return nil, 0, errors.New("not used")
}

func (f *fakeAnomalies) Close(_ context.Context, id string, status anomaly.Status, by *string, notes *string) (anomaly.Anomaly, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, list := range f.rows {
		for i, a := range list {
			if a.ID == id {
				list[i].Status = status
				list[i].ResolvedBy = by
				list[i].ResolutionNotes = notes
				f.rows[key] = list
				return list[i], nil
			}
		}
	}
	return anomaly.Anomaly{}, anomaly.ErrAnomalyNotFound
}

func (f *fakeAnomalies) SaveLateAccumulation(_ context.Context, acc anomaly.LateAccumulation) (anomaly.LateAccumulation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := fmt.Sprintf("%s|%d-%d", acc.EmployeeID, acc.Year, acc.Week)
	if prev, ok := f.weeks[key]; ok && prev.AbsenceGenerated {
		acc.AbsenceGenerated = true
		acc.GeneratedOn = prev.GeneratedOn
	}
	f.weeks[key] = acc
	return acc, nil
}

func (f *fakeAnomalies) ListLateAccumulations(_ context.Context, _ *string, _, _ time.Time) ([]anomaly.LateAccumulation, error) {
	return nil, errors.New("not used")
}

func (f *fakeAnomalies) types(employeeID string, date time.Time) map[anomaly.Type]anomaly.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[anomaly.Type]anomaly.Status{}
	for _, a := range f.rows[recordKey(employeeID, date)] {
		out[a.Type] = a.Status
	}
	return out
}

func (f *fakeAnomalies) week(employeeID string, date time.Time) anomaly.LateAccumulation {
	f.mu.Lock()
	defer f.mu.Unlock()
	year, wk := date.ISOWeek()
	return f.weeks[fmt.Sprintf("%s|%d-%d", employeeID, year, wk)]
}

// fakeScheduleStore backs a real resolver in builder tests.
type fakeScheduleStore struct {
	mu         sync.Mutex
	byEmployee map[string]schedule.Schedule
}

func (f *fakeScheduleStore) GetActiveForEmployee(_ context.Context, employeeID string, _ time.Time) (schedule.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byEmployee[employeeID]
	if !ok {
		return schedule.Schedule{}, schedule.ErrScheduleNotFound
	}
	return s, nil
}

func (f *fakeScheduleStore) set(employeeID string, s schedule.Schedule) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byEmployee[employeeID] = s
}
