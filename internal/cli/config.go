package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/mashup/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage mashup configuration",
		Long: `Manage mashup configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. --db flag (database only)
2. Environment variables (MASHUP_*)
3. Config file (~/.mashup/config.yaml or --config)
4. Defaults

Keys of the names and ranges maps are read in lower case. Author links
match names exactly first, then in lower case.`,
	}

	cmd.AddCommand(newConfigShowCommand(rootOpts))
	cmd.AddCommand(newConfigInitCommand(rootOpts))
	return cmd
}

func newConfigShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the effective configuration",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)

			cfg, used, err := loadConfig(rootOpts)
			if err != nil {
				return reportCommandError(f, ErrCodeConfig, "failed to load config", err)
			}
			if f.Format == "json" {
				return f.Success(cfg)
			}

			if used != "" {
				fmt.Fprintf(f.GetErrWriter(), "Configuration file: %s\n\n", used)
			} else {
				fmt.Fprintf(f.GetErrWriter(), "No configuration file found (using defaults)\n\n")
			}
			data, err := cfg.Marshal()
			if err != nil {
				return reportCommandError(f, ErrCodeConfig, "failed to render config", err)
			}
			_, err = f.Writer.Write(data)
			return err
		},
	}
}

func newConfigInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write the default configuration to --config, or to ~/.mashup/config.yaml.
An existing file is never overwritten.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)

			path := rootOpts.ConfigFile
			if path == "" {
				dir, err := config.Dir()
				if err != nil {
					return reportCommandError(f, ErrCodeConfig, "failed to locate config directory", err)
				}
				path = filepath.Join(dir, "config.yaml")
			}

			if err := config.WriteFile(path, config.Default()); err != nil {
				return reportCommandError(f, ErrCodeConfig, "failed to write config", err)
			}
			if f.Format == "json" {
				return f.Success(map[string]string{"path": path})
			}
			fmt.Fprintf(f.Writer, "✓ Created default configuration: %s\n", path)
			return nil
		},
	}
}
