package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingTrialDataError_Message(t *testing.T) {
	err := MissingTrialDataError{ArchID: 3, Method: "AMO", AngleDeg: 45, Got: 3, Want: 5}
	assert.Equal(t, "arch 3 AMO: angle 45.0° has 3 trials, want 5", err.Error())
}

func TestDegenerateFitError_Message(t *testing.T) {
	err := DegenerateFitError{ArchID: 7, Method: "ASTM", H1: 1e-10, H2: 2e-10}
	assert.Contains(t, err.Error(), "no clear directional pattern")
	assert.Contains(t, err.Error(), "arch 7 ASTM")
}

func TestAlignmentError_Message(t *testing.T) {
	withArch := AlignmentError{ArchID: 2, Message: "reference angle 400.0° outside [0, 360)"}
	assert.Equal(t, "arch 2: alignment: reference angle 400.0° outside [0, 360)", withArch.Error())

	global := AlignmentError{Message: "reference angle 400.0° outside [0, 360)"}
	assert.Equal(t, "alignment: reference angle 400.0° outside [0, 360)", global.Error())
}

func TestIsRecoverable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"missing trials", MissingTrialDataError{ArchID: 1}, true},
		{"degenerate fit", DegenerateFitError{ArchID: 1}, true},
		{"alignment", AlignmentError{Message: "x"}, true},
		{"wrapped missing trials", fmt.Errorf("stage: %w", MissingTrialDataError{ArchID: 1}), true},
		{"data format", DataFormatError{Line: 10, Message: "bad row"}, false},
		{"config", ConfigError{Message: "bad flag"}, false},
		{"plain", errors.New("boom"), false},
		{"nil", nil, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsRecoverable(tc.err))
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"config", ConfigError{Message: "bad flag"}, ExitErrorConfig},
		{"data format", DataFormatError{Line: 3, Message: "bad row"}, ExitErrorData},
		{"missing trials", MissingTrialDataError{ArchID: 1}, ExitErrorData},
		{"canceled", fmt.Errorf("run: %w", context.Canceled), ExitErrorCanceled},
		{"plain", errors.New("boom"), ExitErrorGeneric},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExitCodeFor(tc.err))
		})
	}
}

func TestWrapError(t *testing.T) {
	require.NoError(t, WrapError(nil, "context"))

	base := DataFormatError{Line: 4, Message: "too few columns"}
	wrapped := WrapError(base, "load %q", "deflection_long.csv")
	require.Error(t, wrapped)
	assert.Equal(t, `load "deflection_long.csv": line 4: too few columns`, wrapped.Error())

	var dfe DataFormatError
	require.True(t, errors.As(wrapped, &dfe))
	assert.Equal(t, 4, dfe.Line)
}
