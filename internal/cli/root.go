// Package cli wires the cobra command tree for the archdef binary. Every
// command resolves its configuration through the config package, logs
// through zerolog on stderr, and leaves stdout for the report itself.
package cli

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/config"
	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/logging"
)

// RootOptions holds the global flags shared by every subcommand.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Quiet      bool
	NoColor    bool

	// LogWriter receives log output; defaults to os.Stderr. Tests redirect it.
	LogWriter io.Writer
}

// NewRootCommand builds the archdef command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{LogWriter: os.Stderr}

	cmd := &cobra.Command{
		Use:   "archdef",
		Short: "Angular deflection analysis for arch specimens",
		Long: `archdef aggregates repeated deflection trials measured around full
rotations of arch specimens, fits a two-term harmonic model per specimen,
aligns every specimen to a common reference angle, and reports per-method
group statistics with optional plots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.NoColor {
				color.NoColor = true
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "config file (default searches ./archdef.yaml, $HOME/.config/archdef)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	pf.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress all log output below errors")
	pf.BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newAnalyzeCommand(opts))
	cmd.AddCommand(newSummaryCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		return apperrors.ExitCodeFor(err)
	}
	return apperrors.ExitSuccess
}

// logger builds the command logger from the global flags.
func (o *RootOptions) logger() zerolog.Logger {
	w := o.LogWriter
	if w == nil {
		w = os.Stderr
	}
	return logging.New(w, logging.Options{
		Verbose: o.Verbose,
		Quiet:   o.Quiet,
		NoColor: o.NoColor,
	})
}

// loadSettings resolves Settings from the configured sources.
func (o *RootOptions) loadSettings() (*config.Settings, error) {
	return config.Load(o.ConfigPath)
}
