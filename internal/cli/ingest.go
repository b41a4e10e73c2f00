package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mashup/internal/chain"
	"github.com/roach88/mashup/internal/ingest"
)

// IngestOptions holds flags for the ingest commands.
type IngestOptions struct {
	*RootOptions
	Pattern string
	Date    string

	// Now overrides the clock used for the default datestamp (for testing).
	Now func() time.Time
}

// IngestResult is the output of an ingest command.
type IngestResult struct {
	File    string       `json:"file"`
	Stats   ingest.Stats `json:"stats"`
	Words   int          `json:"words"`
	Sources int          `json:"sources"`
}

// String renders the text output.
func (r IngestResult) String() string {
	return fmt.Sprintf("%s: %d entries from %d message(s), %d skipped (vocabulary %d words, %d sources)",
		r.File, r.Stats.Entries, r.Stats.Messages, r.Stats.Skipped, r.Words, r.Sources)
}

// NewIngestCommand creates the ingest command group.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Add text to the chain",
		Long: `Add text to the chain stored in the database.

The whole chain is loaded, extended and saved back as one snapshot.`,
	}

	cmd.AddCommand(newIngestTextCommand(&IngestOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newIngestMessagesCommand(&IngestOptions{RootOptions: rootOpts}))
	return cmd
}

func newIngestTextCommand(opts *IngestOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text <file>",
		Short: "Append a plain text file to one source",
		Long: `Append a plain text file to the source named by --pattern.

Newlines are ordinary word separators; sentences end at . ? or !.

Example:
  mashup ingest text --pattern 'sol' --date 2018-09-01 ./lyrics.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestText(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Pattern, "pattern", "p", "", "source pattern (required)")
	cmd.Flags().StringVar(&opts.Date, "date", "", "datestamp YYYY-MM-DD or YYYY-DDD (default today)")
	_ = cmd.MarkFlagRequired("pattern")

	return cmd
}

func newIngestMessagesCommand(opts *IngestOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages <file>",
		Short: "Append an exported chat history",
		Long: `Append an HTML chat export. Each top-level message is attributed
through the names map of the config (short name -> source pattern);
messages from unmapped authors and empty messages are skipped.

Example:
  mashup ingest messages ./export/messages.html`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestMessages(opts, args[0], cmd)
		},
	}

	return cmd
}

func runIngestText(opts *IngestOptions, file string, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	ds, err := opts.datestamp()
	if err != nil {
		return reportCommandError(f, ErrCodeIngest, "invalid --date", err)
	}

	return runIngest(opts, file, cmd, func(sess *session) (ingest.Stats, error) {
		return ingest.AppendText(sess.chain, file, opts.Pattern, ds)
	})
}

func runIngestMessages(opts *IngestOptions, file string, cmd *cobra.Command) error {
	return runIngest(opts, file, cmd, func(sess *session) (ingest.Stats, error) {
		if len(sess.cfg.Names) == 0 {
			slog.Warn("no names configured, every message will be skipped")
		}
		return ingest.AppendMessageStream(sess.chain, file, sess.cfg.Names)
	})
}

// runIngest loads the chain, applies fn and saves the chain back. Nothing
// is saved when fn fails.
func runIngest(opts *IngestOptions, file string, cmd *cobra.Command, fn func(*session) (ingest.Stats, error)) error {
	f := newFormatter(cmd, opts.RootOptions)
	ctx := commandContext(cmd)

	sess, err := openSession(ctx, f, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	stats, err := fn(sess)
	if err != nil {
		return reportCommandError(f, ErrCodeIngest, "ingestion failed", err)
	}

	if err := sess.store.SaveChain(ctx, sess.chain); err != nil {
		return reportCommandError(f, ErrCodeStore, "failed to save chain", err)
	}
	slog.Info("ingested", "file", file, "entries", stats.Entries, "skipped", stats.Skipped)

	return f.Success(IngestResult{
		File:    file,
		Stats:   stats,
		Words:   sess.chain.Words.Len(),
		Sources: len(sess.chain.Sources),
	})
}

func (o *IngestOptions) datestamp() (chain.Datestamp, error) {
	if o.Date != "" {
		return chain.ParseDatestamp(o.Date)
	}
	now := time.Now
	if o.Now != nil {
		now = o.Now
	}
	return chain.FromTime(now()), nil
}
