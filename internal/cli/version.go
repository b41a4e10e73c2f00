package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/roach88/mashup/internal/cli.Version=...".
var Version = "dev"

// VersionInfo is the output of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(cmd, rootOpts)
			info := VersionInfo{Version: Version, GoVersion: runtime.Version()}
			if f.Format == "json" {
				return f.Success(info)
			}
			fmt.Fprintf(f.Writer, "mashup %s (%s)\n", info.Version, info.GoVersion)
			return nil
		},
	}
}
