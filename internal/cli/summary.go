package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/dataset"
	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/stats"
)

// summaryOptions holds the summary command flags layered over the globals.
type summaryOptions struct {
	*RootOptions

	Method   string
	CIMethod string
}

func newSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &summaryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary <data.csv>",
		Short: "Print per-angle trial statistics without fitting",
		Long: `Summary runs only the aggregation stage: for every (arch, method, angle)
triple it prints the trial count, mean, standard deviation, standard error
and confidence interval. Pairs with missing trials are flagged and the rest
are still printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Method, "method", "m", "", "restrict output to one measurement method")
	f.StringVar(&opts.CIMethod, "ci-method", "", "confidence interval quantile, t or normal (overrides analysis.ci_method)")

	return cmd
}

func runSummary(cmd *cobra.Command, opts *summaryOptions, dataPath string) error {
	settings, err := opts.loadSettings()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("ci-method") {
		settings.Analysis.CIMethod = opts.CIMethod
		if err := settings.Validate(); err != nil {
			return err
		}
	}
	log := opts.logger()

	ds, err := dataset.LoadCSV(dataPath, dataset.LoadOptions{
		Methods:      settings.Input.Methods,
		AngleStepDeg: settings.Input.AngleStepDeg,
	})
	if err != nil {
		return err
	}

	ci := stats.CIConfig{
		Level:  settings.Analysis.ConfidenceLevel,
		Method: settings.Analysis.CIMethod,
	}

	out := cmd.OutOrStdout()
	writeSummaryHeader(out, !opts.NoColor, settings.Analysis.ConfidenceLevel)

	var flagged []string
	for _, pair := range ds.Pairs() {
		if opts.Method != "" && pair.Method != opts.Method {
			continue
		}
		summaries, err := stats.Aggregate(ds, pair, settings.Input.TrialsPerAngle, ci)
		if err != nil {
			if apperrors.IsRecoverable(err) {
				log.Warn().Int("arch", pair.ArchID).Str("method", pair.Method).Err(err).Msg("pair flagged")
				flagged = append(flagged, err.Error())
				continue
			}
			return err
		}
		for _, s := range summaries {
			fmt.Fprintf(out, "  %4d  %-6s  %6.1f  %2d  %9.3f  %8.3f  %8.3f  [%9.3f, %9.3f]\n",
				s.ArchID, s.Method, s.AngleDeg, s.N, s.Mean, s.StdDev, s.SEM, s.CILow, s.CIHigh)
		}
	}

	if len(flagged) > 0 {
		fmt.Fprintln(out)
		for _, msg := range flagged {
			fmt.Fprintf(out, "  flagged: %s\n", msg)
		}
	}
	return nil
}

func writeSummaryHeader(w io.Writer, colorize bool, level float64) {
	heading := fmt.Sprint
	if colorize {
		heading = color.New(color.FgCyan, color.Bold).Sprint
	}
	fmt.Fprintln(w, heading("Per-Angle Trial Statistics"))
	fmt.Fprintf(w, "  arch  method  angle°   n       mean    stddev       sem  %.0f%% CI\n", level*100)
}
