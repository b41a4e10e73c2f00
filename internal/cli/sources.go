package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mashup/internal/store"
)

// SourcesResult lists the known sources.
type SourcesResult struct {
	Sources []store.SourceStat `json:"sources"`
	Ranges  []string           `json:"ranges"`
}

// String renders the text output.
func (r SourcesResult) String() string {
	var b strings.Builder
	if len(r.Sources) == 0 {
		b.WriteString("no sources yet, add some with 'mashup ingest'\n")
	}
	for _, s := range r.Sources {
		if s.Entries == 0 {
			fmt.Fprintf(&b, "* %s (no entries)\n", s.Pattern)
			continue
		}
		fmt.Fprintf(&b, "* %s (%d entries, %s..%s)\n", s.Pattern, s.Entries, s.First, s.Last)
	}
	if len(r.Ranges) > 0 {
		fmt.Fprintf(&b, "ranges: %s\n", strings.Join(r.Ranges, ", "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewSourcesCommand creates the sources command.
func NewSourcesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List sources that can be named in queries",
		Long: `List every source pattern with its entry count and date span, plus the
date ranges configured for bracketed prompts.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSources(rootOpts, cmd)
		},
	}

	return cmd
}

func runSources(opts *RootOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts)
	ctx := commandContext(cmd)

	cfg, _, err := loadConfig(opts)
	if err != nil {
		return reportCommandError(f, ErrCodeConfig, "failed to load config", err)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return reportCommandError(f, ErrCodeStore, "failed to open database", err)
	}
	defer closeStore(st)

	stats, err := st.SourceStats(ctx)
	if err != nil {
		return reportCommandError(f, ErrCodeStore, "failed to read sources", err)
	}

	return f.Success(SourcesResult{Sources: stats, Ranges: cfg.RangeNames()})
}
