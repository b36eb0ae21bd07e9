package performance

import "errors"

var (
	ErrSnapshotNotFound = errors.New("performance snapshot not found")
)
