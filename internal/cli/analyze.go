package cli

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/config"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/dataset"
	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/pipeline"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/report"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/store"
)

// analyzeOptions holds the analyze command flags layered over the globals.
type analyzeOptions struct {
	*RootOptions

	OutputDir      string
	Database       string
	Method         string
	ReferenceAngle float64
	CIMethod       string
	NoPlots        bool
}

func newAnalyzeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &analyzeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "analyze <data.csv>",
		Short: "Run the full deflection analysis pipeline",
		Long: `Analyze aggregates the repeated trials of every (arch, method) pair,
fits the harmonic deflection model, aligns each specimen's dominant peak
to the reference angle, and writes the group summary to stdout. Specimens
with missing trials or no clear directional pattern are flagged and
skipped; the rest of the batch continues.

Example:
  archdef analyze measurements.csv
  archdef analyze measurements.csv --method ASTM --reference-angle 90
  archdef analyze measurements.csv --db results.db --no-plots`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.OutputDir, "output-dir", "o", "", "directory for rendered plots (overrides output.dir)")
	f.StringVar(&opts.Database, "db", "", "SQLite file that receives run results (overrides output.database)")
	f.StringVarP(&opts.Method, "method", "m", "", "restrict the run to one measurement method")
	f.Float64VarP(&opts.ReferenceAngle, "reference-angle", "r", 0, "aligned peak position in degrees (overrides analysis.reference_angle_deg)")
	f.StringVar(&opts.CIMethod, "ci-method", "", "confidence interval quantile, t or normal (overrides analysis.ci_method)")
	f.BoolVar(&opts.NoPlots, "no-plots", false, "skip plot rendering")

	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions, dataPath string) error {
	settings, err := opts.resolveSettings(cmd)
	if err != nil {
		return err
	}
	log := opts.logger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("path", dataPath).Msg("loading dataset")
	ds, err := dataset.LoadCSV(dataPath, dataset.LoadOptions{
		Methods:      settings.Input.Methods,
		AngleStepDeg: settings.Input.AngleStepDeg,
	})
	if err != nil {
		return err
	}
	log.Info().Int("trials", ds.Len()).Int("pairs", len(ds.Pairs())).Msg("dataset loaded")

	var runnerOpts []pipeline.Option
	if opts.Method != "" {
		runnerOpts = append(runnerOpts, pipeline.WithMethodFilter(opts.Method))
	}

	stopSpinner := opts.startSpinner(" analyzing specimens...")
	res, err := pipeline.New(settings, log, runnerOpts...).Run(ds)
	stopSpinner()
	if err != nil {
		return err
	}

	sumOpts := report.SummaryOptions{
		ReferenceAngleDeg: settings.Analysis.ReferenceAngleDeg,
		Colorize:          !opts.NoColor,
	}
	if err := report.WriteSummary(cmd.OutOrStdout(), res, sumOpts); err != nil {
		return err
	}

	if settings.Output.Plots {
		paths, err := report.NewRenderer(settings, log).Render(res)
		if err != nil {
			return err
		}
		log.Info().Int("plots", len(paths)).Str("dir", settings.Output.Dir).Msg("plots rendered")
	}

	if settings.Output.Database != "" {
		if err := persistRun(ctx, log, settings, res); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// resolveSettings layers the analyze flags over the loaded configuration and
// revalidates, so a flag override obeys the same constraints as a file value.
func (o *analyzeOptions) resolveSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := o.loadSettings()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		settings.Output.Dir = o.OutputDir
	}
	if flags.Changed("db") {
		settings.Output.Database = o.Database
	}
	if flags.Changed("reference-angle") {
		settings.Analysis.ReferenceAngleDeg = o.ReferenceAngle
	}
	if flags.Changed("ci-method") {
		settings.Analysis.CIMethod = o.CIMethod
	}
	if o.NoPlots {
		settings.Output.Plots = false
	}
	if o.Method != "" && !slices.Contains(settings.Input.Methods, o.Method) {
		return nil, apperrors.NewConfigError("unknown method %q, configured methods are %v", o.Method, settings.Input.Methods)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// startSpinner shows a progress spinner on stderr while the pipeline runs,
// but only on an interactive terminal with logging and color enabled. The
// returned func stops it and is safe to call when nothing was started.
func (o *RootOptions) startSpinner(suffix string) func() {
	if o.Quiet || o.NoColor || !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	s.Start()
	return s.Stop
}

// persistRun writes the result to the configured SQLite file.
func persistRun(ctx context.Context, log zerolog.Logger, settings *config.Settings, res *pipeline.Result) error {
	st, err := store.Open(ctx, settings.Output.Database)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Error().Err(cerr).Msg("closing results database")
		}
	}()

	runID, err := st.SaveRun(ctx, settings, res)
	if err != nil {
		return err
	}
	log.Info().Str("run_id", runID).Str("db", settings.Output.Database).Msg("results persisted")
	return nil
}
