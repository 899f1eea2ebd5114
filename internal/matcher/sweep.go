package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/example/ride-dispatch/internal/models"
)

type SweepPoint struct {
	Weight   float64 `json:"weight"`
	Makespan float64 `json:"makespan_seconds"`
}

// Sweep runs one assignment pass per weight i/steps for i in [0, steps) and
// reports the longest resulting route for each. All passes share the same
// clock reading so they differ only in weight.
func (e *Engine) Sweep(ctx context.Context, snap models.Snapshot, pool []models.Reservation, steps int, now time.Time) ([]SweepPoint, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("sweep steps must be > 0, got %d", steps)
	}
	out := make([]SweepPoint, 0, steps)
	for i := 0; i < steps; i++ {
		w := float64(i) / float64(steps)
		run := *e
		run.Score = Weighted(w)
		run.Clock = func() time.Time { return now }
		next, _, err := run.Assign(ctx, snap, pool)
		if err != nil {
			return nil, fmt.Errorf("weight %.2f: %w", w, err)
		}
		out = append(out, SweepPoint{Weight: w, Makespan: next.Makespan()})
	}
	return out, nil
}
