package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mashup/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// HistoryResult lists recorded generations, newest first.
type HistoryResult struct {
	Generations []store.Generation `json:"generations"`
}

// String renders the text output.
func (r HistoryResult) String() string {
	if len(r.Generations) == 0 {
		return "no generations recorded"
	}
	var b strings.Builder
	for i, g := range r.Generations {
		if i > 0 {
			b.WriteString("\n")
		}
		marker := ""
		if g.Fallback {
			marker = " (fallback)"
		}
		fmt.Fprintf(&b, "%s  %s  %s%s\n    %s", g.ID, g.CreatedAt.Format(time.DateTime), g.Prompt, marker, g.Text)
	}
	return b.String()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Show recorded generations",
		Long:          `Show recorded generations, newest first. Use an id with 'mashup reroll'.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "number of generations to show (0 for all)")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	cfg, _, err := loadConfig(opts.RootOptions)
	if err != nil {
		return reportCommandError(f, ErrCodeConfig, "failed to load config", err)
	}
	st, err := store.Open(cfg.Database)
	if err != nil {
		return reportCommandError(f, ErrCodeStore, "failed to open database", err)
	}
	defer closeStore(st)

	gens, err := st.ListGenerations(commandContext(cmd), opts.Limit)
	if err != nil {
		return reportCommandError(f, ErrCodeStore, "failed to read history", err)
	}
	return f.Success(HistoryResult{Generations: gens})
}
