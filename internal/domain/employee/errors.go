package employee

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidUser      = errors.New("user is not an active employee of this company")
)
