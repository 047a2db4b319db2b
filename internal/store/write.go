package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/config"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/harmonic"
	"github.com/EuniceGu1103/Arch-Deflection-Analysis/internal/pipeline"
)

// execer is the subset of sql.Tx the insert helpers need.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveRun writes one complete pipeline result in a single transaction and
// returns the new run id. Re-running SaveRun with the same result produces
// a fresh run; rows within one run are inserted idempotently so a partially
// retried transaction cannot duplicate them.
func (s *Store) SaveRun(ctx context.Context, settings *config.Settings, res *pipeline.Result) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, reference_angle_deg, ci_method, confidence_level)
		 VALUES (?, ?, ?, ?, ?)`,
		runID,
		res.StartedAt.UTC().Format(time.RFC3339),
		settings.Analysis.ReferenceAngleDeg,
		settings.Analysis.CIMethod,
		settings.Analysis.ConfidenceLevel,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	for _, arch := range res.Arches {
		if err := insertArch(ctx, tx, runID, arch); err != nil {
			return "", err
		}
	}
	for _, g := range res.Groups {
		if err := insertGroup(ctx, tx, runID, g); err != nil {
			return "", err
		}
	}
	for _, skip := range res.Skipped {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO skipped (run_id, arch_id, method, reason)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			runID, skip.Pair.ArchID, skip.Pair.Method, skip.Reason.Error(),
		)
		if err != nil {
			return "", fmt.Errorf("insert skipped pair: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run %s: %w", runID, err)
	}
	return runID, nil
}

func insertArch(ctx context.Context, tx execer, runID string, arch pipeline.ArchResult) error {
	for _, sum := range arch.Summaries {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO angle_summaries
			 (run_id, arch_id, method, angle_deg, n, mean, std_dev, sem, ci_low, ci_high)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			runID, sum.ArchID, sum.Method, sum.AngleDeg,
			sum.N, sum.Mean, sum.StdDev, sum.SEM, sum.CILow, sum.CIHigh,
		)
		if err != nil {
			return fmt.Errorf("insert summary arch %d angle %.1f: %w", sum.ArchID, sum.AngleDeg, err)
		}
	}

	f := arch.Fit
	_, err := tx.ExecContext(ctx,
		`INSERT INTO fits
		 (run_id, arch_id, method, a0, a1, b1, a2, b2, residual_rms,
		  dominant_order, dominant_amplitude, peak_angle_deg, phase_offset_deg)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		runID, f.ArchID, f.Method, f.A0, f.A1, f.B1, f.A2, f.B2, f.ResidualRMS,
		arch.Aligned.Dominance.Order,
		arch.Aligned.Dominance.Amplitude,
		arch.Aligned.Dominance.PeakAngleDeg,
		arch.Aligned.PhaseOffsetDeg,
	)
	if err != nil {
		return fmt.Errorf("insert fit arch %d: %w", f.ArchID, err)
	}
	return nil
}

func insertGroup(ctx context.Context, tx execer, runID string, g pipeline.GroupSummary) error {
	if err := insertExtremes(ctx, tx, runID, g.Method, "peak", g.Peaks); err != nil {
		return err
	}
	return insertExtremes(ctx, tx, runID, g.Method, "valley", g.Valleys)
}

func insertExtremes(ctx context.Context, tx execer, runID, method, kind string, ex []harmonic.Extremum) error {
	for i, e := range ex {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO group_extremes (run_id, method, kind, rank, angle_deg, value)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT DO NOTHING`,
			runID, method, kind, i+1, e.AngleDeg, e.Value,
		)
		if err != nil {
			return fmt.Errorf("insert %s %d for method %s: %w", kind, i+1, method, err)
		}
	}
	return nil
}
