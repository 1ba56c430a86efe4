package employee

import (
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/pinky-hr/attendance-engine/internal/pkg/validator"
)

type Employee struct {
	ID           string
	DeviceUserID string
	EmployeeCode string
	FirstName    string
	LastName     string
	FullName     string
	ScheduleID   *string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Status string

const (
	StatusActive     Status = "active"
	StatusInactive   Status = "inactive"
	StatusTerminated Status = "terminated"
)

// Name is a parsed employee name.
type Name struct {
	FirstName string
	LastName  string
	FullName  string
}

var (
	devicePlaceholderRegex = regexp.MustCompile(`^NN-\d+$`)
	placeholderNameRegex   = regexp.MustCompile(`^Empleado \d+$`)
)

// IsDevicePlaceholder reports whether a device-side name carries no real name.
func IsDevicePlaceholder(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || devicePlaceholderRegex.MatchString(name) || validator.IsNumeric(name)
}

// HasPlaceholderName reports whether the employee still carries the generated name.
func (e Employee) HasPlaceholderName() bool {
	return placeholderNameRegex.MatchString(e.FullName)
}

// ParseName splits a device name into first and last name. Names with four or
// more words use two given names.
func ParseName(name, userID string) Name {
	if IsDevicePlaceholder(name) {
		return Name{
			FirstName: "Empleado",
			LastName:  userID,
			FullName:  "Empleado " + userID,
		}
	}

	parts := strings.Fields(titleCase(strings.TrimSpace(name)))
	var first, last string
	switch {
	case len(parts) >= 4:
		first = parts[0] + " " + parts[1]
		last = strings.Join(parts[2:], " ")
	case len(parts) >= 2:
		first = parts[0]
		last = strings.Join(parts[1:], " ")
	default:
		first = strings.Join(parts, " ")
	}
	return Name{
		FirstName: first,
		LastName:  last,
		FullName:  strings.TrimSpace(first + " " + last),
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
