package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/mashup/internal/testutil"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestGeneration creates a generation with minimal required fields.
func createTestGeneration(id, prompt string, at time.Time) Generation {
	return Generation{
		ID:        id,
		Prompt:    prompt,
		Text:      "text for " + prompt,
		CreatedAt: at,
	}
}

var day = testutil.Day
