package report

// messages.go maps technical errors to messages users can act on. Each
// message carries a code that users can quote to support.
//
// # Script Errors (RPT001-RPT099)
//
//	RPT001 - Unknown script: the script name is not registered
//	         Patterns: "unknown script"
//	RPT002 - Missing argument: a required argument such as REGION is absent
//	         Patterns: "missing required argument"
//	RPT003 - Invalid argument: an argument has the wrong format
//	         Patterns: "must be a number"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: upload exceeds the configured limit
//	          Patterns: "file too large", "request body too large"
//	FILE002 - Invalid CSV: the file cannot be parsed
//	          Patterns: "invalid csv"
//	FILE003 - Encoding: the configured encoding is not supported
//	          Patterns: "unsupported encoding"
//	FILE004 - No file: INFILE or CUSTOMERS is missing
//	          Patterns: "no file provided", "input file not found"
//	FILE005 - Empty file: the file has no header row
//	          Patterns: "empty file"
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Cancelled: the run was cancelled
//	         Patterns: "context canceled"
//	RUN002 - Busy: all run slots are taken
//	         Patterns: "too many concurrent runs"
//	RUN003 - Timeout: the run exceeded its time limit
//	         Patterns: "context deadline exceeded"
//	RUN004 - Unknown run: the run ID is not in the history
//	         Patterns: "run not found", "result file not found"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused: run history database unreachable
//	        Patterns: "connection refused"
//
// # Default Error (ERR000)
//
// Patterns are matched case-insensitively with strings.Contains; the first
// match wins.

import (
	"fmt"
	"strings"
)

// UserMessage is a user-facing description of an error.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{"unknown script", UserMessage{
		Message: "This script does not exist",
		Action:  "Run 'ibreport list' to see all scripts",
		Code:    "RPT001",
	}},
	{"missing required argument", UserMessage{
		Message: "A required argument is missing",
		Action:  "Check the usage line of the script",
		Code:    "RPT002",
	}},
	{"must be a number", UserMessage{
		Message: "An argument has an invalid format",
		Action:  "Check the usage line of the script",
		Code:    "RPT003",
	}},
	{"file too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Run the script from the command line for large downloads",
		Code:    "FILE001",
	}},
	{"request body too large", UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Run the script from the command line for large downloads",
		Code:    "FILE001",
	}},
	{"invalid csv", UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Export the download as semicolon-separated CSV",
		Code:    "FILE002",
	}},
	{"unsupported encoding", UserMessage{
		Message: "The configured file encoding is not supported",
		Action:  "Use utf-8, windows-1252 or iso-8859-1",
		Code:    "FILE003",
	}},
	{"no file provided", UserMessage{
		Message: "No input file was given",
		Action:  "Select the download to analyse",
		Code:    "FILE004",
	}},
	{"input file not found", UserMessage{
		Message: "The input file does not exist",
		Action:  "Check the file path",
		Code:    "FILE004",
	}},
	{"empty file", UserMessage{
		Message: "The file is empty",
		Action:  "Provide a file with a header row and data",
		Code:    "FILE005",
	}},
	{"context canceled", UserMessage{
		Message: "The run was cancelled",
		Action:  "Start the run again",
		Code:    "RUN001",
	}},
	{"too many concurrent runs", UserMessage{
		Message: "Too many reports are running",
		Action:  "Please wait a moment and try again",
		Code:    "RUN002",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "The run took too long",
		Action:  "Split the download or raise RUN_TIMEOUT",
		Code:    "RUN003",
	}},
	{"run not found", UserMessage{
		Message: "This run is not in the history",
		Action:  "Check the run ID",
		Code:    "RUN004",
	}},
	{"result file not found", UserMessage{
		Message: "This run has no such result file",
		Action:  "Check the file name in the run's output list",
		Code:    "RUN004",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to the run history database",
		Action:  "Check DATABASE_URL or try again later",
		Code:    "DB001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or check the logs",
	Code:    "ERR000",
}

// MapError converts a technical error to a user message. Unknown errors map
// to ERR000; nil maps to the zero message.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

// FormatUserError renders err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
