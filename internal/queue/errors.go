package queue

import (
	"errors"
	"strings"
)

// ErrDuplicateFolder indicates a folder is already tracked by the queue. The
// folder path column carries a UNIQUE constraint so the same gallery cannot
// be queued twice.
var ErrDuplicateFolder = errors.New("folder already queued")

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
