package cli

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/mashup/internal/mashup"
)

// GenerateOptions holds flags for generate, reroll and repl.
type GenerateOptions struct {
	*RootOptions
	Seed      uint64
	NoHistory bool

	// IDGenerator overrides the UUIDv7 generation ids (for testing).
	IDGenerator mashup.IDGenerator

	// Now overrides the result timestamps (for testing).
	Now func() time.Time
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return newGenerateCommand(&GenerateOptions{RootOptions: rootOpts})
}

func newGenerateCommand(opts *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <query> [<range>]",
		Short: "Generate text from the selected sources",
		Long: `Generate text from the sources selected by a query.

Arguments are joined with spaces into one prompt. A bracketed suffix names a
date range from the config.

Example:
  mashup generate 'sol | angus'
  mashup generate '(sol | angus) & mix [autumn]'
  mashup generate --seed 42 sol`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, strings.Join(args, " "), cmd)
		},
	}

	addGenerateFlags(cmd, opts)
	return cmd
}

// NewRerollCommand creates the reroll command.
func NewRerollCommand(rootOpts *RootOptions) *cobra.Command {
	return newRerollCommand(&GenerateOptions{RootOptions: rootOpts})
}

func newRerollCommand(opts *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reroll <id>",
		Short: "Generate again from a recorded prompt",
		Long: `Generate again from the prompt of a recorded generation.

Example:
  mashup history
  mashup reroll 0190a5d2-7c1e-7b3a-9f0e-2d4c6b8a1e3f`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReroll(opts, args[0], cmd)
		},
	}

	addGenerateFlags(cmd, opts)
	return cmd
}

func addGenerateFlags(cmd *cobra.Command, opts *GenerateOptions) {
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (default random)")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "do not record the result")
}

// newService builds the mashup service for a session.
func newService(cmd *cobra.Command, opts *GenerateOptions, sess *session) (*mashup.Service, error) {
	svcOpts, err := mashup.OptionsFromConfig(sess.cfg)
	if err != nil {
		return nil, err
	}

	var options []mashup.ServiceOption
	if !opts.NoHistory {
		options = append(options, mashup.WithHistory(sess.store))
	}
	if cmd.Flags().Changed("seed") {
		options = append(options, mashup.WithRand(rand.New(rand.NewPCG(opts.Seed, opts.Seed))))
	}
	if opts.IDGenerator != nil {
		options = append(options, mashup.WithIDGenerator(opts.IDGenerator))
	}
	if opts.Now != nil {
		options = append(options, mashup.WithClock(opts.Now))
	}
	return mashup.New(sess.chain, svcOpts, options...), nil
}

func runGenerate(opts *GenerateOptions, prompt string, cmd *cobra.Command) error {
	return withService(opts, cmd, func(f *OutputFormatter, svc *mashup.Service) error {
		res, err := svc.Mashup(commandContext(cmd), prompt)
		if err != nil {
			return reportPromptError(f, svc.Normalize(prompt), err)
		}
		return outputResult(f, res)
	})
}

func runReroll(opts *GenerateOptions, id string, cmd *cobra.Command) error {
	return withService(opts, cmd, func(f *OutputFormatter, svc *mashup.Service) error {
		res, err := svc.Reroll(commandContext(cmd), id)
		if err != nil {
			// The recorded prompt is not known here.
			return reportPromptError(f, "", err)
		}
		return outputResult(f, res)
	})
}

func withService(opts *GenerateOptions, cmd *cobra.Command, fn func(*OutputFormatter, *mashup.Service) error) error {
	f := newFormatter(cmd, opts.RootOptions)

	sess, err := openSession(commandContext(cmd), f, opts.RootOptions)
	if err != nil {
		return err
	}
	defer sess.Close()

	svc, err := newService(cmd, opts, sess)
	if err != nil {
		return reportCommandError(f, ErrCodeConfig, "invalid config", err)
	}
	return fn(f, svc)
}

// outputResult prints the generated text, or the full result as JSON.
func outputResult(f *OutputFormatter, res mashup.Result) error {
	if f.Format == "json" {
		return f.Success(res)
	}
	fmt.Fprintln(f.Writer, res.Text)
	if res.ID != "" {
		f.VerboseLog("id=%s sources=%s fallback=%t", res.ID, strings.Join(res.Sources, ","), res.Fallback)
	}
	return nil
}
