package punch

import "errors"

var (
	ErrInvalidPunch = errors.New("invalid punch")
)
