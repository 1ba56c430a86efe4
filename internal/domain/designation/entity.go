package designation

import "time"

// Kind is an externally supplied non-work designation for a day.
type Kind string

const (
	KindHoliday    Kind = "holiday"
	KindVacation   Kind = "vacation"
	KindSickLeave  Kind = "sick_leave"
	KindPermission Kind = "permission"
)

// Designation marks a date as a non-work day for one employee, or for
// everybody when EmployeeID is nil (public holidays).
type Designation struct {
	EmployeeID *string
	Date       time.Time
	Kind       Kind
	Note       *string
}

// precedence orders kinds when several designations apply to the same day.
// A personal leave outranks a public holiday.
var precedence = map[Kind]int{
	KindSickLeave:  4,
	KindVacation:   3,
	KindPermission: 2,
	KindHoliday:    1,
}

// Pick returns the designation that wins for a day, or nil for an empty list.
func Pick(ds []Designation) *Designation {
	var best *Designation
	for i := range ds {
		if best == nil || precedence[ds[i].Kind] > precedence[best.Kind] {
			best = &ds[i]
		}
	}
	return best
}
