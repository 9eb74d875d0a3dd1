package tsne

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/bhtsne/internal/parallel"
)

// Config holds the hyperparameters of a single Run.
type Config struct {
	// Dims is the output dimensionality (required, > 0).
	Dims int

	// Perplexity controls the effective neighborhood size (default: 50).
	Perplexity float64

	// Theta is the Barnes-Hut accuracy/speed trade-off in [0, 1] (default: 0.5).
	// 0 selects the exact O(N²) algorithm, as does Dims > MaxTreeDims.
	Theta float64

	// RandomSeed seeds the initial embedding. 0 = time-based seed.
	RandomSeed int64

	// SkipRandomInit keeps the contents of the output buffer as the starting embedding.
	SkipRandomInit bool

	// MaxIter is the exact number of gradient descent iterations (default: 1000).
	MaxIter int

	// Schedule
	StopLyingIter   int     // Iteration at which early exaggeration ends (default: 250).
	MomSwitchIter   int     // Iteration at which momentum switches (default: 250).
	Exaggeration    float64 // Early exaggeration factor applied to P (default: 12).
	LearningRate    float64 // Step size η (default: 200).
	InitialMomentum float64 // Momentum before MomSwitchIter (default: 0.5).
	FinalMomentum   float64 // Momentum from MomSwitchIter on (default: 0.8).

	// ReportEvery is the number of iterations between cost evaluations.
	// 0 disables progress evaluation.
	ReportEvery int

	// Logger receives progress messages. nil = discard.
	Logger *slog.Logger

	// Parallel fans out per-point work. The zero value runs sequentially.
	// Results are identical for any worker count.
	Parallel parallel.Config
}

// DefaultConfig returns the reference hyperparameters.
// Dims is left at 0 and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		Perplexity:      50,
		Theta:           0.5,
		MaxIter:         1000,
		StopLyingIter:   250,
		MomSwitchIter:   250,
		Exaggeration:    12,
		LearningRate:    200,
		InitialMomentum: 0.5,
		FinalMomentum:   0.8,
		ReportEvery:     50,
	}
}

// Validate checks the configuration independently of the data size.
func (c *Config) Validate() error {
	switch {
	case c.Dims <= 0:
		return fmt.Errorf("%w: dims must be > 0, got %d", ErrInvalidConfig, c.Dims)
	case !(c.Perplexity > 0):
		return fmt.Errorf("%w: perplexity must be > 0, got %g", ErrInvalidConfig, c.Perplexity)
	case !(c.Theta >= 0 && c.Theta <= 1):
		return fmt.Errorf("%w: theta must be in [0, 1], got %g", ErrInvalidConfig, c.Theta)
	case c.MaxIter <= 0:
		return fmt.Errorf("%w: max_iter must be > 0, got %d", ErrInvalidConfig, c.MaxIter)
	case c.StopLyingIter < 0 || c.MomSwitchIter < 0:
		return fmt.Errorf("%w: schedule iterations must be >= 0", ErrInvalidConfig)
	case !(c.Exaggeration > 0):
		return fmt.Errorf("%w: exaggeration must be > 0, got %g", ErrInvalidConfig, c.Exaggeration)
	case !(c.LearningRate > 0):
		return fmt.Errorf("%w: learning rate must be > 0, got %g", ErrInvalidConfig, c.LearningRate)
	case c.ReportEvery < 0:
		return fmt.Errorf("%w: report interval must be >= 0, got %d", ErrInvalidConfig, c.ReportEvery)
	}
	return nil
}

// MaxTreeDims is the largest output dimensionality handled by the Barnes-Hut
// tree. Every split allocates 2^Dims cells, so larger embeddings always use
// the exact algorithm.
const MaxTreeDims = 8

// exact reports whether the exact O(N²) algorithm is selected.
func (c *Config) exact() bool {
	return c.Theta == 0 || c.Dims > MaxTreeDims
}

// neighbors returns the number of nearest neighbors used per point.
func (c *Config) neighbors() int {
	return max(1, int(3*c.Perplexity))
}

// checkSize rejects perplexities the data set cannot support.
func (c *Config) checkSize(n int) error {
	if float64(n-1) < 3*c.Perplexity {
		return fmt.Errorf("%w: %w: n=%d, perplexity=%g (need n-1 >= 3*perplexity)",
			ErrInvalidConfig, ErrPerplexityTooLarge, n, c.Perplexity)
	}
	return nil
}
