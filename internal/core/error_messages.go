package core

// # Error Codes Reference
//
// Errors returned by export runs are mapped to a short message, an action
// and a code that operators can search the logs for.
//
// # Configuration (CFG)
//
//	CFG001 - Workbook layout does not match the configured tables or columns
//
// # Source (SRC)
//
//	SRC001 - The workbook API call failed
//	SRC002 - The workbook API throttled the request
//	SRC003 - The workbook API rejected the credentials
//
// # Sinks (SNK, BAT)
//
//	SNK001 - A prompt group could not be written to the key-value store
//	SNK002 - The archive object could not be written
//	BAT001 - Exported rows could not all be marked
//
// # Runs (RUN)
//
//	RUN001 - The run exceeded its time budget
//	RUN002 - A run of the same path is already active
//	RUN003 - Unknown export path
//	RUN004 - The run was cancelled
//
// # Default (ERR000)
//
// Typed errors are matched first with errors.Is / errors.As, in the order of
// the checks in MapError. Untyped errors fall back to case-insensitive
// substring patterns; the first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// UserMessage is the operator-facing description of an error.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var (
	msgConfiguration = UserMessage{
		Message: "Workbook layout does not match the configured tables or columns",
		Action:  "Check table and column names in the workbook against the configuration",
		Code:    "CFG001",
	}
	msgSource = UserMessage{
		Message: "The workbook could not be read",
		Action:  "Check workbook access and try again",
		Code:    "SRC001",
	}
	msgSinkWrite = UserMessage{
		Message: "One or more prompt groups could not be saved",
		Action:  "Check the key-value store and re-run the export",
		Code:    "SNK001",
	}
	msgPartialBatch = UserMessage{
		Message: "Some exported rows could not be marked as exported",
		Action:  "They will be exported again on the next run",
		Code:    "BAT001",
	}
	msgTimeout = UserMessage{
		Message: "Export run timed out",
		Action:  "Raise RUN_TIMEOUT or reduce the workbook size",
		Code:    "RUN001",
	}
	msgInProgress = UserMessage{
		Message: "An export of this kind is already running",
		Action:  "Wait for the current run to finish",
		Code:    "RUN002",
	}
	msgUnknownPath = UserMessage{
		Message: "Unknown export path",
		Action:  "Use kv or bulk",
		Code:    "RUN003",
	}
	msgCancelled = UserMessage{
		Message: "Export run was cancelled",
		Action:  "Start a new run when ready",
		Code:    "RUN004",
	}
	defaultMessage = UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Check the service logs for the run id",
		Code:    "ERR000",
	}
)

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "throttl",
		msg: UserMessage{
			Message: "The workbook API throttled the request",
			Action:  "Lower ASSEMBLE_CONCURRENCY or the schedule frequency",
			Code:    "SRC002",
		},
	},
	{
		pattern: "accessdenied",
		msg: UserMessage{
			Message: "Access to an AWS resource was denied",
			Action:  "Check the IAM permissions of the service credentials",
			Code:    "SRC003",
		},
	},
	{
		pattern: "unrecognizedclient",
		msg: UserMessage{
			Message: "The service credentials were rejected",
			Action:  "Check the AWS credentials configured for the service",
			Code:    "SRC003",
		},
	},
	{
		pattern: "s3 put",
		msg: UserMessage{
			Message: "The archive object could not be written",
			Action:  "Check the bucket name and permissions",
			Code:    "SNK002",
		},
	},
}

// MapError maps an error to its operator message. nil maps to the zero
// UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var cfgErr *ConfigurationError
	var sinkErr *SinkWriteError
	var batchErr *PartialBatchUpdateError
	var remoteErr *RemoteQueryError

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return msgTimeout
	case errors.Is(err, context.Canceled):
		return msgCancelled
	case errors.Is(err, ErrRunInProgress):
		return msgInProgress
	case errors.Is(err, ErrUnknownPath):
		return msgUnknownPath
	case errors.As(err, &cfgErr):
		return msgConfiguration
	}

	lower := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(lower, ep.pattern) {
			return ep.msg
		}
	}

	switch {
	case errors.As(err, &sinkErr):
		return msgSinkWrite
	case errors.As(err, &batchErr):
		return msgPartialBatch
	case errors.As(err, &remoteErr):
		return msgSource
	}
	return defaultMessage
}

// FormatUserError formats an error as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than the
// ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
