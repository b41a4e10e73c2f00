package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/mashup/internal/mashup"
	"github.com/roach88/mashup/internal/selector"
	"github.com/roach88/mashup/internal/store"
)

// Error codes for CLI responses. Query errors reuse selector.ErrorCode values.
const (
	ErrCodeGeneric      = "ERROR"
	ErrCodeConfig       = "CONFIG_ERROR"
	ErrCodeStore        = "STORE_ERROR"
	ErrCodeIngest       = "INGEST_ERROR"
	ErrCodeUnknownRange = "UNKNOWN_RANGE"
	ErrCodeLegacySyntax = "LEGACY_SYNTAX"
	ErrCodeNotFound     = "NOT_FOUND"
)

// QueryErrorDetails is the details payload of a rejected prompt.
type QueryErrorDetails struct {
	Prompt   string   `json:"prompt,omitempty"`
	Location *int     `json:"location,omitempty"`
	Term     string   `json:"term,omitempty"`
	Known    []string `json:"known,omitempty"`
}

// reportCommandError outputs an environment failure (config, database, files).
// Exit code 2.
func reportCommandError(f *OutputFormatter, code, message string, err error) error {
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(ExitCommandError, message, err)
}

// reportPromptError outputs a rejected prompt. User mistakes exit with
// code 1; anything else is a command error. prompt is the string the
// selector parsed (after case folding); an empty prompt suppresses the caret
// under parse errors.
func reportPromptError(f *OutputFormatter, prompt string, err error) error {
	details := QueryErrorDetails{Prompt: prompt}

	if se, ok := selector.AsError(err); ok {
		if se.IsParseError() {
			loc := se.Location
			details.Location = &loc
		}
		details.Term = se.Term
		_ = f.Error(string(se.Code), se.Error(), details)
		if se.IsParseError() && f.Format != "json" && prompt != "" {
			writeCaret(f.Writer, prompt, se.Location)
		}
		return WrapExitError(ExitFailure, "invalid query", err)
	}

	var ure *mashup.UnknownRangeError
	if errors.As(err, &ure) {
		details.Known = ure.Known
		_ = f.Error(ErrCodeUnknownRange, ure.Error(), details)
		return WrapExitError(ExitFailure, "invalid query", err)
	}

	if errors.Is(err, mashup.ErrLegacySyntax) {
		_ = f.Error(ErrCodeLegacySyntax, err.Error(), details)
		return WrapExitError(ExitFailure, "invalid query", err)
	}

	if errors.Is(err, store.ErrNotFound) {
		_ = f.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitFailure, "not found", err)
	}

	return reportCommandError(f, ErrCodeGeneric, "mashup failed", err)
}

// writeCaret points at a rune offset in prompt.
func writeCaret(w io.Writer, prompt string, location int) {
	fmt.Fprintf(w, "  %s\n  %s^\n", prompt, strings.Repeat(" ", location))
}
