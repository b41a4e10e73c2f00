package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/mashup/internal/ingest"
	"github.com/roach88/mashup/internal/mashup"
	"github.com/roach88/mashup/internal/store"
	"github.com/roach88/mashup/internal/testutil"
)

// rawResponse defers decoding of the payload to the test.
type rawResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *ResponseError  `json:"error"`
}

// testEnv is a config file and database in a temp directory.
type testEnv struct {
	dir    string
	config string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`database: %s
min_words: 1
max_words: 40
fallback: "nothing to say"
rate_limit: 0
names:
  sota: sol
  denko: angus
ranges:
  january:
    start: "2018-01-01"
    end: "2018-02-01"
  december:
    start: "2017-12-01"
    end: "2018-01-01"
`, filepath.Join(dir, "mashup.db"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return &testEnv{dir: dir, config: path}
}

// run executes the root command with the env config.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	return execute(cmd, append([]string{"--config", e.config}, args...)...)
}

func (e *testEnv) rootOptions(format string) *RootOptions {
	return &RootOptions{Format: format, ConfigFile: e.config}
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	out := &bytes.Buffer{}
	if args == nil {
		args = []string{} // nil makes cobra read os.Args
	}
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, out string) rawResponse {
	t.Helper()
	var resp rawResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	return resp
}

func decodeData[T any](t *testing.T, out string) T {
	t.Helper()
	resp := decode(t, out)
	require.Equal(t, "ok", resp.Status, "output: %s", out)
	var data T
	require.NoError(t, json.Unmarshal(resp.Data, &data))
	return data
}

func (e *testEnv) ingestPets(t *testing.T) {
	t.Helper()
	_, err := e.run(t, "ingest", "text", "--pattern", "pets", "--date", "2018-01-10", "testdata/pets.txt")
	require.NoError(t, err)
}

func (e *testEnv) ingestMessages(t *testing.T) {
	t.Helper()
	_, err := e.run(t, "ingest", "messages", "testdata/messages.html")
	require.NoError(t, err)
}

func TestIngestText(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "ingest", "text", "-p", "pets", "--date", "2018-010", "testdata/pets.txt")
	require.NoError(t, err)

	res := decodeData[IngestResult](t, out)
	assert.Equal(t, "testdata/pets.txt", res.File)
	assert.Equal(t, 17, res.Stats.Entries)
	assert.Equal(t, 1, res.Sources)
	assert.Equal(t, 11, res.Words)
}

func TestIngestText_DefaultsToToday(t *testing.T) {
	env := newTestEnv(t)
	opts := &IngestOptions{
		RootOptions: env.rootOptions("text"),
		Now:         func() time.Time { return testutil.Epoch },
	}

	out, err := execute(newIngestTextCommand(opts), "--pattern", "pets", "testdata/pets.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "17 entries")

	st, err := store.Open(filepath.Join(env.dir, "mashup.db"))
	require.NoError(t, err)
	defer st.Close()
	stats, err := st.SourceStats(t.Context())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, testutil.Day(2018, 21), stats[0].First)
}

func TestIngestText_InvalidDate(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "ingest", "text", "-p", "pets", "--date", "yesterday", "testdata/pets.txt")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeIngest, decode(t, out).Error.Code)
}

func TestIngestText_MissingFileSavesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.ingestPets(t)

	_, err := env.run(t, "ingest", "text", "-p", "other", "testdata/missing.txt")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := env.run(t, "--format", "json", "sources")
	require.NoError(t, err)
	res := decodeData[SourcesResult](t, out)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "pets", res.Sources[0].Pattern)
}

func TestIngestMessages(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "ingest", "messages", "testdata/messages.html")
	require.NoError(t, err)

	res := decodeData[IngestResult](t, out)
	assert.Equal(t, ingest.Stats{Messages: 5, Skipped: 2, Entries: 4}, res.Stats)
	assert.Equal(t, 2, res.Sources)
}

func TestSources(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)
	env.ingestPets(t)

	out, err := env.run(t, "--format", "json", "sources")
	require.NoError(t, err)
	res := decodeData[SourcesResult](t, out)

	require.Len(t, res.Sources, 3)
	assert.Equal(t, "sol", res.Sources[0].Pattern)
	assert.Equal(t, 3, res.Sources[0].Entries)
	assert.Equal(t, testutil.Day(2018, 21), res.Sources[0].First)
	assert.Equal(t, "angus", res.Sources[1].Pattern)
	assert.Equal(t, "pets", res.Sources[2].Pattern)
	assert.Equal(t, []string{"december", "january"}, res.Ranges)

	out, err = env.run(t, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "* sol (3 entries, 2018-021..2018-021)")
	assert.Contains(t, out, "ranges: december, january")
}

func TestSources_Empty(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "no sources yet")
}

func TestGenerate(t *testing.T) {
	env := newTestEnv(t)
	env.ingestPets(t)

	out, err := env.run(t, "--format", "json", "generate", "--seed", "7", "pets")
	require.NoError(t, err)

	res := decodeData[mashup.Result](t, out)
	assert.True(t, strings.HasPrefix(res.Text, "the cat "), res.Text)
	assert.True(t, strings.HasSuffix(res.Text, "."), res.Text)
	assert.False(t, res.Fallback)
	assert.Equal(t, []string{"pets"}, res.Sources)
	assert.Equal(t, "pets", res.Prompt)
	assert.NotEmpty(t, res.ID)
}

func TestGenerate_SeedIsReproducible(t *testing.T) {
	env := newTestEnv(t)
	env.ingestPets(t)

	first, err := env.run(t, "generate", "--seed", "42", "--no-history", "pets")
	require.NoError(t, err)
	second, err := env.run(t, "generate", "--seed", "42", "--no-history", "pets")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerate_ArgumentsJoinIntoPrompt(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	out, err := env.run(t, "--format", "json", "generate", "sol", "|", "angus", "[january]")
	require.NoError(t, err)

	res := decodeData[mashup.Result](t, out)
	assert.Equal(t, "sol | angus [january]", res.Prompt)
	assert.Equal(t, "january", res.Range)
	assert.Equal(t, []string{"sol", "angus"}, res.Sources)
	assert.False(t, res.Fallback)
}

func TestGenerate_EmptyRangeFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	out, err := env.run(t, "--format", "json", "generate", "sol [december]")
	require.NoError(t, err)

	res := decodeData[mashup.Result](t, out)
	assert.True(t, res.Fallback)
	assert.Equal(t, "nothing to say", res.Text)
}

func TestGenerate_QueryErrors(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	tests := []struct {
		name   string
		prompt string
		code   string
	}{
		{"unknown term", "sol | nobody", "UNKNOWN_TERM"},
		{"expected term", "sol |", "EXPECTED_TERM"},
		{"unbalanced", "(sol | angus", "UNBALANCED_PARENTHESES"},
		{"empty", "   ", "EMPTY_QUERY"},
		{"unknown range", "sol [march]", ErrCodeUnknownRange},
		{"legacy syntax", "sol, angus", ErrCodeLegacySyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(t, "--format", "json", "generate", tt.prompt)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.True(t, IsReported(err))

			resp := decode(t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestGenerate_UnknownTermDetails(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	out, err := env.run(t, "--format", "json", "generate", "sol | nobody")
	require.Error(t, err)

	resp := decode(t, out)
	require.NotNil(t, resp.Error)
	assert.Equal(t, map[string]any{"prompt": "sol | nobody", "term": "nobody"}, resp.Error.Details)
}

func TestGenerate_ParseErrorCaret(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	out, err := env.run(t, "generate", "sol | (angus")
	require.Error(t, err)
	assert.Contains(t, out, "error [UNBALANCED_PARENTHESES]")
	assert.Contains(t, out, "  sol | (angus\n        ^\n")
}

func TestGenerate_FoldCaseCaret(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	f, err := os.OpenFile(env.config, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("fold_case: true\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := env.run(t, "generate", "İ |")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	folded := cases.Lower(language.Und).String("İ |")
	caret := strings.Repeat(" ", 2+utf8.RuneCountInString(folded)) + "^\n"
	assert.Contains(t, out, "  "+folded+"\n"+caret)
}

func TestGenerate_MissingConfig(t *testing.T) {
	out, err := execute(NewRootCommand(), "--format", "json", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "generate", "sol")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeConfig, decode(t, out).Error.Code)
}

func TestGenerate_DatabaseOverride(t *testing.T) {
	env := newTestEnv(t)
	other := filepath.Join(t.TempDir(), "other.db")

	_, err := env.run(t, "--db", other, "ingest", "text", "-p", "pets", "testdata/pets.txt")
	require.NoError(t, err)

	_, err = env.run(t, "generate", "pets")
	require.Error(t, err, "default database has no pets source")

	_, err = env.run(t, "--db", other, "generate", "pets")
	require.NoError(t, err)
}

func TestHistoryAndReroll(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	clock := testutil.NewDeterministicClock()
	opts := &GenerateOptions{
		RootOptions: env.rootOptions("json"),
		IDGenerator: testutil.NewFixedIDGenerator("gen-1", "gen-2"),
		Now:         clock.Now,
	}
	out, err := execute(newGenerateCommand(opts), "angus")
	require.NoError(t, err)
	res := decodeData[mashup.Result](t, out)
	assert.Equal(t, "gen-1", res.ID)
	assert.Equal(t, "Ну и что", res.Text)

	out, err = env.run(t, "--format", "json", "history")
	require.NoError(t, err)
	hist := decodeData[HistoryResult](t, out)
	require.Len(t, hist.Generations, 1)
	assert.Equal(t, "gen-1", hist.Generations[0].ID)
	assert.Equal(t, "angus", hist.Generations[0].Prompt)
	assert.True(t, hist.Generations[0].CreatedAt.Equal(testutil.Epoch))

	out, err = execute(newRerollCommand(opts), "gen-1")
	require.NoError(t, err)
	rerolled := decodeData[mashup.Result](t, out)
	assert.Equal(t, "gen-2", rerolled.ID)
	assert.Equal(t, "angus", rerolled.Prompt)

	out, err = env.run(t, "history", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "gen-2")
	assert.NotContains(t, out, "gen-1")
}

func TestReroll_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "reroll", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, ErrCodeNotFound, decode(t, out).Error.Code)
}

func TestGenerate_NoHistory(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	_, err := env.run(t, "generate", "--no-history", "angus")
	require.NoError(t, err)

	out, err := env.run(t, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "no generations recorded")
}

func TestRepl(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	opts := &GenerateOptions{
		RootOptions: env.rootOptions("text"),
		NoHistory:   true,
	}
	cmd := newReplCommand(opts)
	cmd.SetIn(strings.NewReader("angus\n\nsol |\n:sources\n:ranges\n:quit\nangus\n"))

	out, err := execute(cmd)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "Ну и что"), "input after :quit is ignored")
	assert.Contains(t, out, "error [EXPECTED_TERM]")
	assert.Contains(t, out, "sol\nangus\n")
	assert.Contains(t, out, "december\njanuary\n")
}

func TestRepl_StopsAtEOF(t *testing.T) {
	env := newTestEnv(t)
	env.ingestMessages(t)

	cmd := newReplCommand(&GenerateOptions{RootOptions: env.rootOptions("json"), NoHistory: true})
	cmd.SetIn(strings.NewReader("angus\nangus [march]\n"))

	out, err := execute(cmd)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ok", decode(t, lines[0]).Status)
	assert.Equal(t, ErrCodeUnknownRange, decode(t, lines[1]).Error.Code)
}

func TestConfigShow(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "--format", "json", "config", "show")
	require.NoError(t, err)
	cfg := decodeData[map[string]any](t, out)
	assert.Equal(t, float64(1), cfg["min_words"])
	assert.Equal(t, map[string]any{"sota": "sol", "denko": "angus"}, cfg["names"])

	out, err = env.run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "min_words: 1")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	out, err := execute(NewRootCommand(), "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "min_words: 15")

	_, err = execute(NewRootCommand(), "--config", path, "config", "init")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestVersion(t *testing.T) {
	out, err := execute(NewRootCommand(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mashup dev")

	out, err = execute(NewRootCommand(), "--format", "json", "version")
	require.NoError(t, err)
	info := decodeData[VersionInfo](t, out)
	assert.Equal(t, "dev", info.Version)
}
