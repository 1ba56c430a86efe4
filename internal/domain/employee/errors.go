package employee

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrDeviceUserExists = errors.New("device user already linked to an employee")
)
