package autoclock

import "errors"

var (
	ErrJobNotFound = errors.New("auto-attendance job not found")
)
