package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/promptsync/internal/workbook"
)

// ConfigurationError and RemoteQueryError originate in the workbook layer and
// are re-exported so callers only need this package for errors.As.
type (
	ConfigurationError = workbook.ConfigurationError
	RemoteQueryError   = workbook.RemoteQueryError
)

var (
	// ErrRunInProgress is returned when a run of the same path is still
	// active in this process.
	ErrRunInProgress = errors.New("export run already in progress")

	// ErrUnknownPath is returned for a path other than kv or bulk.
	ErrUnknownPath = errors.New("unknown export path")
)

// SinkWriteError reports a failed write of one group's record.
type SinkWriteError struct {
	Group string
	Err   error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("sink write %q: %v", e.Group, e.Err)
}

func (e *SinkWriteError) Unwrap() error { return e.Err }

// PartialBatchUpdateError lists rows a marker batch update did not apply.
// The archive write it follows stands.
type PartialBatchUpdateError struct {
	Table string
	Items []workbook.FailedItem
}

func (e *PartialBatchUpdateError) Error() string {
	ids := make([]string, 0, len(e.Items))
	for i, it := range e.Items {
		if i == 5 {
			ids = append(ids, fmt.Sprintf("and %d more", len(e.Items)-5))
			break
		}
		ids = append(ids, it.ID)
	}
	return fmt.Sprintf("batch update %q: %d row(s) not marked: %s", e.Table, len(e.Items), strings.Join(ids, ", "))
}
