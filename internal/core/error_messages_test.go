package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/JonMunkholm/promptsync/internal/workbook"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "deadline maps to timeout",
			err:      fmt.Errorf("query rows: %w", context.DeadlineExceeded),
			wantCode: "RUN001",
		},
		{
			name:     "cancel maps to cancelled",
			err:      context.Canceled,
			wantCode: "RUN004",
		},
		{
			name:     "run in progress",
			err:      ErrRunInProgress,
			wantCode: "RUN002",
		},
		{
			name:     "unknown path",
			err:      fmt.Errorf("%w: %q", ErrUnknownPath, "csv"),
			wantCode: "RUN003",
		},
		{
			name:     "configuration error",
			err:      &ConfigurationError{Table: "Messages", Detail: "column 4 is \"Kind\""},
			wantCode: "CFG001",
		},
		{
			name:     "throttling pattern beats remote error",
			err:      &RemoteQueryError{Op: "query rows", Table: "Messages", Err: errors.New("ThrottlingException: slow down")},
			wantCode: "SRC002",
		},
		{
			name:     "access denied",
			err:      errors.New("AccessDeniedException: not authorized"),
			wantCode: "SRC003",
		},
		{
			name:     "s3 put failure",
			err:      errors.New("s3 put s3://bucket/csv/faq-list.csv: connection reset"),
			wantCode: "SNK002",
		},
		{
			name:     "sink write error",
			err:      &SinkWriteError{Group: "Welcome", Err: errors.New("conditional check failed")},
			wantCode: "SNK001",
		},
		{
			name:     "joined sink errors",
			err:      errors.Join(&SinkWriteError{Group: "A", Err: errors.New("x")}, &SinkWriteError{Group: "B", Err: errors.New("y")}),
			wantCode: "SNK001",
		},
		{
			name:     "partial batch",
			err:      &PartialBatchUpdateError{Table: "FAQ", Items: []workbook.FailedItem{{ID: "r1"}}},
			wantCode: "BAT001",
		},
		{
			name:     "remote query error",
			err:      &RemoteQueryError{Op: "list tables", Err: errors.New("500 internal")},
			wantCode: "SRC001",
		},
		{
			name:     "unknown error returns default",
			err:      errors.New("some random internal error"),
			wantCode: "ERR000",
		},
		{
			name:     "case insensitive matching",
			err:      errors.New("THROTTLED by upstream"),
			wantCode: "SRC002",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError().Code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError().Message is empty")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	err := &SinkWriteError{Group: "Welcome", Err: errors.New("boom")}
	got := FormatUserError(err)
	want := "One or more prompt groups could not be saved (Code: SNK001). Check the key-value store and re-run the export"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"mapped", ErrRunInProgress, true},
		{"fallback", errors.New("mystery"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPartialBatchUpdateError(t *testing.T) {
	items := make([]workbook.FailedItem, 7)
	for i := range items {
		items[i] = workbook.FailedItem{ID: fmt.Sprintf("r%d", i)}
	}
	err := &PartialBatchUpdateError{Table: "FAQ", Items: items}

	msg := err.Error()
	for _, want := range []string{`"FAQ"`, "7 row(s)", "r0", "r4", "and 2 more"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
	if strings.Contains(msg, "r5") {
		t.Errorf("Error() = %q, should truncate after five ids", msg)
	}
}

func TestSinkWriteErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("run: %w", &SinkWriteError{Group: "G1", Err: cause})

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	var sw *SinkWriteError
	if !errors.As(err, &sw) || sw.Group != "G1" {
		t.Errorf("errors.As group = %v, want G1", sw)
	}
}
