package auth

import "errors"

var (
	ErrInvalidToken           = errors.New("invalid token")
	ErrInvalidAgentKey        = errors.New("invalid agent key")
	ErrAdminPrivilegeRequired = errors.New("admin privilege required")
)
