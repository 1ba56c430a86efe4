package anomaly

import "errors"

var (
	ErrAnomalyNotFound = errors.New("anomaly not found")
	ErrAlreadyClosed   = errors.New("anomaly is already resolved or dismissed")
	ErrRecordNotFound  = errors.New("attendance record not found")
)
