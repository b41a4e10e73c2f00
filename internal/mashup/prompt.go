package mashup

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLegacySyntax is returned for prompts using the retired comma-separated
// source list.
var ErrLegacySyntax = errors.New("comma-separated sources are no longer supported, combine them with | or &")

// ErrNoHistory is returned by Reroll when the service has no history store.
var ErrNoHistory = errors.New("generation history is not enabled")

// UnknownRangeError reports a bracketed range name that is not configured.
type UnknownRangeError struct {
	Name  string
	Known []string
}

// Error implements the error interface.
func (e *UnknownRangeError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown date range %q (no ranges configured)", e.Name)
	}
	return fmt.Sprintf("unknown date range %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}

// Prompt is a user request split into its query and optional range name.
type Prompt struct {
	Query string `json:"query"`
	Range string `json:"range,omitempty"`
}

// ParsePrompt splits "<query> [<range>]". The bracketed suffix is only
// recognised at the very end of the prompt; the query is returned untrimmed
// so selector error offsets still point into it.
func ParsePrompt(s string) (Prompt, error) {
	if strings.Contains(s, ",") {
		return Prompt{}, ErrLegacySyntax
	}

	trimmed := strings.TrimRightFunc(s, isSpace)
	if !strings.HasSuffix(trimmed, "]") {
		return Prompt{Query: s}, nil
	}
	inner := trimmed[:len(trimmed)-1]
	i := strings.LastIndex(inner, "[")
	if i < 0 {
		return Prompt{Query: s}, nil
	}
	return Prompt{
		Query: inner[:i],
		Range: strings.TrimSpace(inner[i+1:]),
	}, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
