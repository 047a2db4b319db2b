package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes define the standard exit statuses for the analysis
// pipeline. These codes are used to signal the outcome of the program
// execution to the OS.
const (
	ExitSuccess       = 0   // Indicates successful execution.
	ExitErrorGeneric  = 1   // Indicates a generic error.
	ExitErrorData     = 2   // Indicates malformed or incomplete input data.
	ExitErrorConfig   = 4   // Indicates a configuration error.
	ExitErrorCanceled = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// ConfigError represents a user configuration error, such as invalid flags
// or values. It indicates that the application cannot proceed due to
// incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// MissingTrialDataError reports an angle whose trial count makes the
// confidence interval undefined or the summary unreliable. It identifies the
// specimen and angle so the caller can flag that arch and continue.
type MissingTrialDataError struct {
	// ArchID is the specimen whose data is incomplete.
	ArchID int
	// Method is the measurement method label.
	Method string
	// AngleDeg is the angular position with too few trials.
	AngleDeg float64
	// Got is the number of trials found.
	Got int
	// Want is the number of trials expected.
	Want int
}

func (e MissingTrialDataError) Error() string {
	return fmt.Sprintf("arch %d %s: angle %.1f° has %d trials, want %d",
		e.ArchID, e.Method, e.AngleDeg, e.Got, e.Want)
}

// DegenerateFitError reports a harmonic fit whose first and second order
// amplitudes are both below the configured epsilon, leaving the phase
// undefined. The specimen shows no clear directional pattern and must not
// be assigned a spurious peak angle.
type DegenerateFitError struct {
	// ArchID is the specimen with the degenerate fit.
	ArchID int
	// Method is the measurement method label.
	Method string
	// H1 is the first-order harmonic amplitude.
	H1 float64
	// H2 is the second-order harmonic amplitude.
	H2 float64
}

func (e DegenerateFitError) Error() string {
	return fmt.Sprintf("arch %d %s: no clear directional pattern (H1=%.3g, H2=%.3g)",
		e.ArchID, e.Method, e.H1, e.H2)
}

// AlignmentError reports a phase-alignment inconsistency, such as a
// reference angle outside the fitted angular domain.
type AlignmentError struct {
	// ArchID is the specimen being aligned, 0 when the error is not
	// specific to one arch.
	ArchID int
	// Message explains the inconsistency.
	Message string
}

func (e AlignmentError) Error() string {
	if e.ArchID != 0 {
		return fmt.Sprintf("arch %d: alignment: %s", e.ArchID, e.Message)
	}
	return "alignment: " + e.Message
}

// DataFormatError reports a malformed input row. It carries the source line
// number for diagnostics. DataFormatError is fatal: the input file must be
// fixed, there is no per-specimen recovery from a file that cannot be read.
type DataFormatError struct {
	// Line is the 1-based line number in the input file.
	Line int
	// Message explains the format violation.
	Message string
}

func (e DataFormatError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w,
// so the wrapped error remains visible to errors.Is and errors.As.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// ExitCodeFor maps an error to the process exit code describing it.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ExitErrorCanceled
	}
	var confErr ConfigError
	if errors.As(err, &confErr) {
		return ExitErrorConfig
	}
	var dataErr DataFormatError
	if errors.As(err, &dataErr) || IsRecoverable(err) {
		return ExitErrorData
	}
	return ExitErrorGeneric
}

// IsRecoverable reports whether err belongs to the per-specimen taxonomy:
// the pipeline skips and flags that (arch, method) pair and continues with
// the rest of the batch. All other errors abort the run.
func IsRecoverable(err error) bool {
	var missing MissingTrialDataError
	var degenerate DegenerateFitError
	var alignment AlignmentError
	return errors.As(err, &missing) || errors.As(err, &degenerate) || errors.As(err, &alignment)
}
