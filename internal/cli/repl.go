package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/roach88/mashup/internal/mashup"
)

// NewReplCommand creates the repl command.
func NewReplCommand(rootOpts *RootOptions) *cobra.Command {
	return newReplCommand(&GenerateOptions{RootOptions: rootOpts})
}

func newReplCommand(opts *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Answer prompts read line by line",
		Long: `Load the chain once and answer prompts read from standard input, one
per line. Prompts are throttled to rate_limit per second from the config.

Lines starting with ':' are commands:
  :sources   list source patterns
  :ranges    list date ranges
  :quit      exit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl(opts, cmd)
		},
	}

	addGenerateFlags(cmd, opts)
	return cmd
}

func runRepl(opts *GenerateOptions, cmd *cobra.Command) error {
	f := newFormatter(cmd, opts.RootOptions)

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	sess, err := openSession(ctx, f, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	svc, err := newService(cmd, opts, sess)
	if err != nil {
		return reportCommandError(f, ErrCodeConfig, "invalid config", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if sess.cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(sess.cfg.RateLimit), 1)
	}
	slog.Debug("repl ready", "sources", len(svc.Sources()), "rate_limit", sess.cfg.RateLimit)

	return repl(ctx, f, bufio.NewScanner(cmd.InOrStdin()), svc, limiter)
}

// repl answers prompts until EOF, :quit or cancellation. Query errors are
// reported and the loop continues.
func repl(ctx context.Context, f *OutputFormatter, in *bufio.Scanner, svc *mashup.Service, limiter *rate.Limiter) error {
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			return nil
		case line == ":sources":
			fmt.Fprintln(f.Writer, strings.Join(svc.Sources(), "\n"))
			continue
		case line == ":ranges":
			fmt.Fprintln(f.Writer, strings.Join(svc.Ranges(), "\n"))
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return reportCommandError(f, ErrCodeGeneric, "rate limiter", err)
		}

		res, err := svc.Mashup(ctx, line)
		if err != nil {
			perr := reportPromptError(f, svc.Normalize(line), err)
			if GetExitCode(perr) != ExitFailure {
				return perr
			}
			continue
		}
		if err := outputResult(f, res); err != nil {
			return err
		}
	}
	if err := in.Err(); err != nil {
		return reportCommandError(f, ErrCodeGeneric, "read input", err)
	}
	return nil
}
