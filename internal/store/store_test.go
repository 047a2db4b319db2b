package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/align"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/config"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/dataset"
	apperrors "github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/errors"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/harmonic"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/pipeline"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/stats"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fixtureResult() *pipeline.Result {
	fit := harmonic.Fit{
		ArchID: 1, Method: "AMO",
		A0: 450, A1: 10, B1: 2, A2: 0.5, B2: 0.1,
		ResidualRMS: 0.25,
	}
	arch := pipeline.ArchResult{
		Pair: dataset.Pair{ArchID: 1, Method: "AMO"},
		Summaries: []stats.AngleSummary{
			{ArchID: 1, Method: "AMO", AngleDeg: 0, N: 5, Mean: 460, StdDev: 0.2, SEM: 0.09, CILow: 459.75, CIHigh: 460.25},
			{ArchID: 1, Method: "AMO", AngleDeg: 15, N: 5, Mean: 459, StdDev: 0.2, SEM: 0.09, CILow: 458.75, CIHigh: 459.25},
		},
		Fit: fit,
		Aligned: align.Fit{
			Fit:            fit,
			PhaseOffsetDeg: -11.3,
			Dominance:      harmonic.Dominance{Order: 1, Amplitude: 10.2, PeakAngleDeg: 11.3},
		},
	}
	return &pipeline.Result{
		StartedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Arches:    []pipeline.ArchResult{arch},
		Groups: []pipeline.GroupSummary{{
			Method:  "AMO",
			ArchIDs: []int{1},
			Peaks:   []harmonic.Extremum{{AngleDeg: 0, Value: 460.6}, {AngleDeg: 181.2, Value: 448.7}},
			Valleys: []harmonic.Extremum{{AngleDeg: 90.6, Value: 439.4}},
		}},
		Skipped: []pipeline.Skip{{
			Pair:   dataset.Pair{ArchID: 4, Method: "ASTM"},
			Reason: apperrors.DegenerateFitError{ArchID: 4, Method: "ASTM", H1: 1e-12, H2: 2e-12},
		}},
	}
}

func TestSaveRun_PersistsAllTables(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	settings := config.Default()

	runID, err := s.SaveRun(ctx, settings, fixtureResult())
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	var startedAt, ciMethod string
	var level float64
	err = s.db.QueryRowContext(ctx,
		`SELECT started_at, ci_method, confidence_level FROM runs WHERE id = ?`, runID).
		Scan(&startedAt, &ciMethod, &level)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-14T09:30:00Z", startedAt)
	assert.Equal(t, config.CIMethodStudentT, ciMethod)
	assert.Equal(t, 0.95, level)

	assert.Equal(t, 2, countRows(t, s, "angle_summaries", runID))
	assert.Equal(t, 1, countRows(t, s, "fits", runID))
	assert.Equal(t, 3, countRows(t, s, "group_extremes", runID))
	assert.Equal(t, 1, countRows(t, s, "skipped", runID))
}

func TestSaveRun_FitRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveRun(ctx, config.Default(), fixtureResult())
	require.NoError(t, err)

	var a1, offset, peak float64
	var order int
	err = s.db.QueryRowContext(ctx,
		`SELECT a1, phase_offset_deg, peak_angle_deg, dominant_order
		 FROM fits WHERE run_id = ? AND arch_id = 1 AND method = 'AMO'`, runID).
		Scan(&a1, &offset, &peak, &order)
	require.NoError(t, err)
	assert.Equal(t, 10.0, a1)
	assert.Equal(t, -11.3, offset)
	assert.Equal(t, 11.3, peak)
	assert.Equal(t, 1, order)
}

func TestSaveRun_SeparateRunsDoNotCollide(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	settings := config.Default()

	first, err := s.SaveRun(ctx, settings, fixtureResult())
	require.NoError(t, err)
	second, err := s.SaveRun(ctx, settings, fixtureResult())
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	var runs int
	require.NoError(t, s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&runs))
	assert.Equal(t, 2, runs)
	assert.Equal(t, 1, countRows(t, s, "fits", first))
	assert.Equal(t, 1, countRows(t, s, "fits", second))
}

func TestOpen_CreatesSchemaOnFreshFile(t *testing.T) {
	s := openTestStore(t)

	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table'
		 AND name IN ('runs', 'angle_summaries', 'fits', 'group_extremes', 'skipped')`).
		Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func countRows(t *testing.T, s *Store, table, runID string) int {
	t.Helper()
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE run_id = ?`, runID).Scan(&n)
	require.NoError(t, err)
	return n
}
