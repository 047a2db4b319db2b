package config

import (
	"errors"
	"math"
	"strings"

	"github.com/spf13/viper"

	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
)

// CI quantile methods accepted by analysis.ci_method.
const (
	CIMethodStudentT = "t"
	CIMethodNormal   = "normal"
)

// InputSettings describe the expected shape of the measurement dataset.
type InputSettings struct {
	// TrialsPerAngle is the number of repeated trials expected for every
	// (arch, method, angle) triple.
	TrialsPerAngle int `mapstructure:"trials_per_angle"`
	// AngleStepDeg is the angular grid spacing in degrees. The default 15°
	// step yields 24 positions over a full rotation.
	AngleStepDeg float64 `mapstructure:"angle_step_deg"`
	// Methods lists the measurement method labels present in the dataset.
	Methods []string `mapstructure:"methods"`
}

// AnalysisSettings control the statistical stages.
type AnalysisSettings struct {
	// ConfidenceLevel is the two-sided confidence level for trial CIs.
	ConfidenceLevel float64 `mapstructure:"confidence_level"`
	// CIMethod selects the CI quantile: Student's t ("t") or "normal".
	CIMethod string `mapstructure:"ci_method"`
	// ReferenceAngleDeg is where the dominant-harmonic peak lands after
	// alignment, in degrees within [0, 360).
	ReferenceAngleDeg float64 `mapstructure:"reference_angle_deg"`
	// AmplitudeEpsilon is the threshold below which both harmonic
	// amplitudes make a fit degenerate (phase undefined).
	AmplitudeEpsilon float64 `mapstructure:"amplitude_epsilon"`
}

// OutputSettings control reporting artifacts.
type OutputSettings struct {
	// Dir receives the rendered plot files.
	Dir string `mapstructure:"dir"`
	// Plots toggles plot rendering.
	Plots bool `mapstructure:"plots"`
	// PlotWidthCm and PlotHeightCm set the plot canvas size.
	PlotWidthCm  float64 `mapstructure:"plot_width_cm"`
	PlotHeightCm float64 `mapstructure:"plot_height_cm"`
	// Database is an optional SQLite file that receives run results.
	// Empty disables persistence.
	Database string `mapstructure:"database"`
}

// Settings is the validated configuration for one pipeline invocation.
// Values are resolved by viper in the usual priority order: explicit flag
// overrides, then ARCHDEF_* environment variables, then the config file,
// then defaults.
type Settings struct {
	Input    InputSettings    `mapstructure:"input"`
	Analysis AnalysisSettings `mapstructure:"analysis"`
	Output   OutputSettings   `mapstructure:"output"`
}

// AngleCount returns the number of grid positions implied by the angle step.
func (s *Settings) AngleCount() int {
	return int(math.Round(360 / s.Input.AngleStepDeg))
}

// setDefaults registers the default value for every key so viper can merge
// partial config files over a complete baseline.
func setDefaults(v *viper.Viper) {
	v.SetDefault("input.trials_per_angle", 5)
	v.SetDefault("input.angle_step_deg", 15.0)
	v.SetDefault("input.methods", []string{"AMO", "ASTM"})
	v.SetDefault("analysis.confidence_level", 0.95)
	v.SetDefault("analysis.ci_method", CIMethodStudentT)
	v.SetDefault("analysis.reference_angle_deg", 0.0)
	v.SetDefault("analysis.amplitude_epsilon", 1e-9)
	v.SetDefault("output.dir", "angle_deflection_plots")
	v.SetDefault("output.plots", true)
	v.SetDefault("output.plot_width_cm", 20.0)
	v.SetDefault("output.plot_height_cm", 15.0)
	v.SetDefault("output.database", "")
}

// Default returns the built-in settings, untouched by any config file or
// environment variable.
func Default() *Settings {
	v := viper.New()
	setDefaults(v)
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		panic(err)
	}
	return &s
}

// Load resolves Settings from the optional config file at path, ARCHDEF_*
// environment variables, and defaults. An empty path searches the working
// directory and $HOME/.config/archdef for archdef.yaml; a missing file is
// not an error, a malformed one is.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ARCHDEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, apperrors.WrapError(err, "read config %q", path)
		}
	} else {
		v.SetConfigName("archdef")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/archdef")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, apperrors.WrapError(err, "read config")
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, apperrors.WrapError(err, "parse config")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks cross-field constraints and rejects values the pipeline
// cannot work with.
func (s *Settings) Validate() error {
	if s.Input.TrialsPerAngle < 2 {
		return apperrors.NewConfigError("input.trials_per_angle must be at least 2 (CI undefined below that), got %d", s.Input.TrialsPerAngle)
	}
	if s.Input.AngleStepDeg <= 0 || s.Input.AngleStepDeg > 120 {
		return apperrors.NewConfigError("input.angle_step_deg must be in (0, 120], got %g", s.Input.AngleStepDeg)
	}
	if r := math.Mod(360, s.Input.AngleStepDeg); math.Abs(r) > 1e-9 {
		return apperrors.NewConfigError("input.angle_step_deg %g does not divide 360°", s.Input.AngleStepDeg)
	}
	if len(s.Input.Methods) == 0 {
		return apperrors.NewConfigError("input.methods must name at least one measurement method")
	}
	if s.Analysis.ConfidenceLevel <= 0 || s.Analysis.ConfidenceLevel >= 1 {
		return apperrors.NewConfigError("analysis.confidence_level must be in (0, 1), got %g", s.Analysis.ConfidenceLevel)
	}
	if s.Analysis.CIMethod != CIMethodStudentT && s.Analysis.CIMethod != CIMethodNormal {
		return apperrors.NewConfigError("analysis.ci_method must be %q or %q, got %q", CIMethodStudentT, CIMethodNormal, s.Analysis.CIMethod)
	}
	if s.Analysis.ReferenceAngleDeg < 0 || s.Analysis.ReferenceAngleDeg >= 360 {
		return apperrors.NewConfigError("analysis.reference_angle_deg must be in [0, 360), got %g", s.Analysis.ReferenceAngleDeg)
	}
	if s.Analysis.AmplitudeEpsilon <= 0 {
		return apperrors.NewConfigError("analysis.amplitude_epsilon must be positive, got %g", s.Analysis.AmplitudeEpsilon)
	}
	if s.Output.Plots && s.Output.Dir == "" {
		return apperrors.NewConfigError("output.dir must be set when plots are enabled")
	}
	if s.Output.PlotWidthCm <= 0 || s.Output.PlotHeightCm <= 0 {
		return apperrors.NewConfigError("plot dimensions must be positive, got %gx%g cm", s.Output.PlotWidthCm, s.Output.PlotHeightCm)
	}
	return nil
}
