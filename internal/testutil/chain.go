package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mashup/internal/chain"
	"github.com/roach88/mashup/internal/ingest"
)

// Text is one message pushed into a test chain.
type Text struct {
	Pattern string
	Body    string
	Date    chain.Datestamp
}

// Day is shorthand for a datestamp in tests.
func Day(year int16, day uint16) chain.Datestamp {
	return chain.Datestamp{Year: year, Day: day}
}

// BuildChain pushes each text as a message (newline-terminal) in order.
func BuildChain(t testing.TB, texts ...Text) *chain.Chain {
	t.Helper()
	c := chain.New()
	for _, tx := range texts {
		_, err := ingest.PushText(c, tx.Pattern, tx.Body, tx.Date, true)
		require.NoError(t, err)
	}
	require.NoError(t, c.Validate())
	return c
}
