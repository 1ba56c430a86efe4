package synclog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/pinky-hr/attendance-engine/internal/domain/attendance"
	"github.com/pinky-hr/attendance-engine/internal/domain/employee"
	"github.com/pinky-hr/attendance-engine/internal/domain/punch"
	"github.com/pinky-hr/attendance-engine/internal/domain/synclog"
)

type fakeLogs struct {
	mu     sync.Mutex
	rows   map[string]synclog.SyncLog
	nextID int
	clock  func() time.Time
}

func newFakeLogs(clock func() time.Time) *fakeLogs {
	return &fakeLogs{rows: map[string]synclog.SyncLog{}, clock: clock}
}

func (f *fakeLogs) insert(l synclog.SyncLog) synclog.SyncLog {
	f.nextID++
	l.ID = fmt.Sprintf("sync-%02d", f.nextID)
	l.CreatedAt = f.clock().Add(time.Duration(f.nextID) * time.Millisecond)
	l.UpdatedAt = l.CreatedAt
	f.rows[l.ID] = l
	return l
}

func (f *fakeLogs) hasRunning() bool {
	for _, l := range f.rows {
		if l.Status == synclog.StatusRunning {
			return true
		}
	}
	return false
}

func (f *fakeLogs) Create(_ context.Context, l synclog.SyncLog) (synclog.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(l), nil
}

func (f *fakeLogs) GetByID(_ context.Context, id string) (synclog.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[id]
	if !ok {
		return synclog.SyncLog{}, synclog.ErrSyncLogNotFound
	}
	return l, nil
}

func (f *fakeLogs) OldestPending(_ context.Context) (*synclog.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var oldest *synclog.SyncLog
	for _, l := range f.rows {
		if l.Status != synclog.StatusPending {
			continue
		}
		if oldest == nil || l.CreatedAt.Before(oldest.CreatedAt) {
			c := l
			oldest = &c
		}
	}
	return oldest, nil
}

func (f *fakeLogs) List(_ context.Context, _ synclog.SyncLogFilter) ([]synclog.SyncLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]synclog.SyncLog, 0, len(f.rows))
	for _, l := range f.rows {
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b synclog.SyncLog) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, int64(len(out)), nil
}

func (f *fakeLogs) MarkRunning(_ context.Context, id string, startedAt time.Time) (synclog.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[id]
	if !ok {
		return synclog.SyncLog{}, synclog.ErrSyncLogNotFound
	}
	if l.Status != synclog.StatusPending {
		return synclog.SyncLog{}, synclog.ErrStaleJobClaim
	}
	if f.hasRunning() {
		return synclog.SyncLog{}, synclog.ErrSyncInProgress
	}
	l.Status = synclog.StatusRunning
	l.StartedAt = &startedAt
	f.rows[id] = l
	return l, nil
}

func (f *fakeLogs) CreateRunning(_ context.Context, l synclog.SyncLog) (synclog.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasRunning() {
		return synclog.SyncLog{}, synclog.ErrSyncInProgress
	}
	return f.insert(l), nil
}

func (f *fakeLogs) Finish(_ context.Context, id string, out synclog.Outcome, completedAt time.Time) (synclog.SyncLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[id]
	if !ok {
		return synclog.SyncLog{}, synclog.ErrSyncLogNotFound
	}
	if l.Status != synclog.StatusRunning {
		return synclog.SyncLog{}, synclog.ErrStaleJobClaim
	}
	l.Status = out.Status
	l.Counters = out.Counters
	l.Errors = out.Errors
	l.CompletedAt = &completedAt
	f.rows[id] = l
	return l, nil
}

func (f *fakeLogs) SweepStuck(_ context.Context, startedBefore, now time.Time, entry synclog.ErrorEntry) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, l := range f.rows {
		if l.Status != synclog.StatusRunning || l.StartedAt == nil || !l.StartedAt.Before(startedBefore) {
			continue
		}
		l.Status = synclog.StatusFailed
		l.CompletedAt = &now
		l.Errors = append(l.Errors, entry)
		f.rows[id] = l
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (f *fakeLogs) HasRunning(_ context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasRunning(), nil
}

func (f *fakeLogs) countStatus(status synclog.Status) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.rows {
		if l.Status == status {
			n++
		}
	}
	return n
}

type fakePunches struct {
	mu       sync.Mutex
	punches  []punch.RawPunch
	users    []punch.DeviceUser
	listErr  error
	writeErr error
}

func (f *fakePunches) InsertBatch(_ context.Context, ps []punch.RawPunch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.punches = append(f.punches, ps...)
	return int64(len(ps)), nil
}

func (f *fakePunches) ListBetween(_ context.Context, from, to time.Time) ([]punch.RawPunch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []punch.RawPunch
	for _, p := range f.punches {
		if !p.Timestamp.Before(from) && p.Timestamp.Before(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePunches) ActiveUsersSince(_ context.Context, since time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.punches {
		if !p.Timestamp.Before(since) && !slices.Contains(out, p.DeviceUserID) {
			out = append(out, p.DeviceUserID)
		}
	}
	return out, nil
}

func (f *fakePunches) UpsertDeviceUsers(_ context.Context, users []punch.DeviceUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	for _, u := range users {
		i := slices.IndexFunc(f.users, func(x punch.DeviceUser) bool { return x.UserID == u.UserID })
		if i >= 0 {
			f.users[i] = u
		} else {
			f.users = append(f.users, u)
		}
	}
	return nil
}

func (f *fakePunches) ListDeviceUsers(_ context.Context) ([]punch.DeviceUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slices.Clone(f.users), nil
}

type fakeEmployees struct {
	mu   sync.Mutex
	rows []employee.Employee
}

func (f *fakeEmployees) ListLinked(_ context.Context) ([]employee.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.rows), nil
}

func (f *fakeEmployees) ListActive(_ context.Context) ([]employee.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []employee.Employee
	for _, e := range f.rows {
		if e.Status == employee.StatusActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEmployees) Create(_ context.Context, e employee.Employee) (employee.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = "emp-" + e.DeviceUserID
	f.rows = append(f.rows, e)
	return e, nil
}

func (f *fakeEmployees) Update(_ context.Context, e employee.Employee) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == e.ID {
			f.rows[i] = e
			return nil
		}
	}
	return errors.New("employee not found")
}

func (f *fakeEmployees) MarkMissingInactive(_ context.Context, seen []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := range f.rows {
		if f.rows[i].Status == employee.StatusActive && !slices.Contains(seen, f.rows[i].DeviceUserID) {
			f.rows[i].Status = employee.StatusInactive
			n++
		}
	}
	return n, nil
}

func (f *fakeEmployees) byDevice(id string) employee.Employee {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.rows {
		if e.DeviceUserID == id {
			return e
		}
	}
	return employee.Employee{}
}

type reconcileCall struct {
	employeeID string
	workDate   time.Time
	punches    int
}

// fakeReconciler records calls and fails when two calls for one employee
// overlap.
type fakeReconciler struct {
	mu       sync.Mutex
	calls    []reconcileCall
	inFlight map[string]bool
	overlap  bool
	block    bool
	failFor  map[string]bool

	// anomalies is reported on every successful result.
	anomalies int
}

func newFakeReconciler() *fakeReconciler {
	return &fakeReconciler{inFlight: map[string]bool{}, failFor: map[string]bool{}}
}

func (f *fakeReconciler) ReconcileDay(ctx context.Context, employeeID string, workDate time.Time, punches []attendance.StoredPunch) attendance.Result {
	f.mu.Lock()
	if f.inFlight[employeeID] {
		f.overlap = true
	}
	f.inFlight[employeeID] = true
	f.calls = append(f.calls, reconcileCall{employeeID: employeeID, workDate: workDate, punches: len(punches)})
	block, fail, anomalies := f.block, f.failFor[employeeID], f.anomalies
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight[employeeID] = false
		f.mu.Unlock()
	}()

	if block {
		<-ctx.Done()
		return attendance.Failed(attendance.RecordError{EmployeeID: employeeID, Kind: attendance.ErrorKindCanceled, Message: ctx.Err().Error()})
	}
	if fail {
		return attendance.Failed(attendance.RecordError{
			EmployeeID: employeeID,
			WorkDate:   workDate.Format("2006-01-02"),
			Kind:       attendance.ErrorKindMissingSchedule,
			Message:    "no active schedule",
		})
	}
	res := attendance.Ok(attendance.Record{EmployeeID: employeeID, WorkDate: workDate}, attendance.OutcomeCreated)
	res.Anomalies = anomalies
	return res
}

func (f *fakeReconciler) callsFor(employeeID string) []reconcileCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []reconcileCall
	for _, c := range f.calls {
		if c.employeeID == employeeID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b reconcileCall) int { return a.workDate.Compare(b.workDate) })
	return out
}
