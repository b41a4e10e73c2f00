package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/mashup/internal/chain"
	"github.com/roach88/mashup/internal/config"
	"github.com/roach88/mashup/internal/store"
)

// newFormatter builds the formatter for a command run.
func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// commandContext returns the command's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig reads the config file and applies the --db override.
func loadConfig(opts *RootOptions) (*config.Config, string, error) {
	cfg, used, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, "", err
	}
	if used != "" {
		slog.Debug("using config file", "path", used)
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	return cfg, used, nil
}

// session is the config, store and chain a command works on.
type session struct {
	cfg   *config.Config
	store *store.Store
	chain *chain.Chain
}

// openSession loads config, opens the store and loads the chain snapshot.
// Failures are reported through f and returned as exit errors.
func openSession(ctx context.Context, f *OutputFormatter, opts *RootOptions) (*session, error) {
	cfg, _, err := loadConfig(opts)
	if err != nil {
		return nil, reportCommandError(f, ErrCodeConfig, "failed to load config", err)
	}

	slog.Debug("opening database", "path", cfg.Database)
	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, reportCommandError(f, ErrCodeStore, "failed to open database", err)
	}

	c, err := st.LoadChain(ctx)
	if err != nil {
		closeStore(st)
		return nil, reportCommandError(f, ErrCodeStore, "failed to load chain", err)
	}
	slog.Debug("session ready", "db", st.Path(), "sources", len(c.Sources), "words", c.Words.Len())
	return &session{cfg: cfg, store: st, chain: c}, nil
}

func (s *session) Close() {
	closeStore(s.store)
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
