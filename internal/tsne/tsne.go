package tsne

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"gonum.org/v1/gonum/floats"
)

const (
	// Adaptive gain schedule.
	gainIncrement = 0.2
	gainDecay     = 0.8
	minGain       = 0.01

	// Standard deviation of the random initial embedding.
	initScale = 1e-4
)

// Phase is the state of the optimizer schedule.
type Phase int

// Optimizer phases. Transitions depend only on the iteration count.
const (
	PhaseInitializing Phase = iota
	PhaseEarlyExaggeration
	PhaseNormal
	PhaseTerminated
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseEarlyExaggeration:
		return "early-exaggeration"
	case PhaseNormal:
		return "normal"
	case PhaseTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Run embeds the n×d row-major matrix x into the n×cfg.Dims row-major buffer y.
//
// x is not modified. If cfg.SkipRandomInit is set, y holds the starting
// embedding; otherwise it is overwritten with small Gaussian noise drawn from
// a generator seeded with cfg.RandomSeed (0 = time-based).
//
// Run performs exactly cfg.MaxIter iterations. Numerical problems such as
// NaN propagation from ill-conditioned inputs are not detected.
func Run(x []float64, n, d int, y []float64, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("tsne: %w", err)
	}
	if n <= 0 || d <= 0 {
		return fmt.Errorf("tsne: %w: n and d must be > 0, got n=%d d=%d", ErrInvalidConfig, n, d)
	}
	if len(x) != n*d {
		return fmt.Errorf("tsne: %w: input has %d values, want %d×%d", ErrShapeMismatch, len(x), n, d)
	}
	if len(y) != n*cfg.Dims {
		return fmt.Errorf("tsne: %w: output has %d values, want %d×%d", ErrShapeMismatch, len(y), n, cfg.Dims)
	}
	if err := cfg.checkSize(n); err != nil {
		return fmt.Errorf("tsne: %w", err)
	}

	o := newOptimizer(x, n, d, y, cfg)
	o.computeAffinities()
	o.initEmbedding()
	o.run()
	return nil
}

// optimizer owns all state of a single Run.
type optimizer struct {
	cfg  Config
	log  *slog.Logger
	rng  *rand.Rand
	x    []float64
	n, d int
	dims int

	y     []float64
	dY    []float64
	uY    []float64
	gains []float64

	sparseP *csr
	denseP  []float64
	ws      *gradientWorkspace

	momentum float64
	phase    Phase
}

func newOptimizer(x []float64, n, d int, y []float64, cfg Config) *optimizer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	gains := make([]float64, n*cfg.Dims)
	for i := range gains {
		gains[i] = 1
	}

	xs := slices.Clone(x)
	normalizeInput(xs, n, d)

	return &optimizer{
		cfg:      cfg,
		log:      logger,
		rng:      rand.New(rand.NewSource(seed)), //nolint:gosec // Deterministic seed for reproducible embeddings.
		x:        xs,
		n:        n,
		d:        d,
		dims:     cfg.Dims,
		y:        y,
		dY:       make([]float64, n*cfg.Dims),
		uY:       make([]float64, n*cfg.Dims),
		gains:    gains,
		momentum: cfg.InitialMomentum,
		phase:    PhaseInitializing,
	}
}

// computeAffinities builds P and applies early exaggeration.
func (o *optimizer) computeAffinities() {
	start := time.Now()
	o.log.Info("computing input similarities",
		"n", o.n, "d", o.d, "perplexity", o.cfg.Perplexity, "theta", o.cfg.Theta)

	if o.cfg.Theta > 0 && o.cfg.exact() {
		o.log.Warn("output dimensionality too large for the Barnes-Hut tree, using exact gradients",
			"dims", o.dims, "max_tree_dims", MaxTreeDims)
	}

	var unconverged int
	if o.cfg.exact() {
		o.denseP, unconverged = denseAffinities(o.x, o.n, o.d, o.cfg.Perplexity, o.cfg.Parallel)
	} else {
		o.sparseP, unconverged = sparseAffinities(o.x, o.n, o.d, o.cfg.Perplexity,
			o.cfg.neighbors(), o.rng, o.cfg.Parallel)
		o.ws = newGradientWorkspace(o.n, o.dims)
	}

	attrs := []any{"elapsed", time.Since(start)}
	if o.sparseP != nil {
		attrs = append(attrs, "nnz", len(o.sparseP.vals),
			"density", float64(len(o.sparseP.vals))/(float64(o.n)*float64(o.n)))
	}
	if unconverged > 0 {
		attrs = append(attrs, "unconverged_rows", unconverged)
	}
	o.log.Info("input similarities computed", attrs...)

	if o.cfg.StopLyingIter > 0 {
		o.scaleP(o.cfg.Exaggeration)
		o.phase = PhaseEarlyExaggeration
	} else {
		o.phase = PhaseNormal
	}
}

// scaleP multiplies every affinity by f.
func (o *optimizer) scaleP(f float64) {
	if o.sparseP != nil {
		o.sparseP.scale(f)
		return
	}
	floats.Scale(f, o.denseP)
}

// initEmbedding draws the starting embedding, or jitters a supplied one whose
// points all coincide (its gradient would be identically zero).
func (o *optimizer) initEmbedding() {
	if !o.cfg.SkipRandomInit {
		for i := range o.y {
			o.y[i] = o.rng.NormFloat64() * initScale
		}
		return
	}

	if o.degenerate() {
		o.log.Warn("initial embedding has no spread, adding jitter")
		for i := range o.y {
			o.y[i] += o.rng.NormFloat64() * initScale
		}
	}
}

// degenerate reports whether every row of the embedding is identical.
func (o *optimizer) degenerate() bool {
	first := o.y[:o.dims]
	for i := 1; i < o.n; i++ {
		if !samePoint(first, o.y[i*o.dims:(i+1)*o.dims]) {
			return false
		}
	}
	return true
}

// run executes the full iteration schedule.
func (o *optimizer) run() {
	o.log.Info("learning embedding", "max_iter", o.cfg.MaxIter, "phase", o.phase.String())
	start := time.Now()
	lap := start

	for iter := 0; iter < o.cfg.MaxIter; iter++ {
		o.step(iter)

		if o.reportDue(iter) {
			o.log.Info("iteration",
				"iter", iter,
				"phase", o.phase.String(),
				"error", o.cost(),
				"elapsed", time.Since(lap))
			lap = time.Now()
		}
	}

	o.phase = PhaseTerminated
	o.log.Info("fitting performed", "elapsed", time.Since(start))
}

func (o *optimizer) reportDue(iter int) bool {
	every := o.cfg.ReportEvery
	if every <= 0 || !o.log.Enabled(context.Background(), slog.LevelInfo) {
		return false
	}
	return (iter > 0 && iter%every == 0) || iter == o.cfg.MaxIter-1
}

// step performs one gradient descent iteration.
func (o *optimizer) step(iter int) {
	o.gradient()

	// Gains grow while the descent direction (−dY) agrees with the velocity.
	for i := range o.gains {
		if sign(o.dY[i]) != sign(o.uY[i]) {
			o.gains[i] += gainIncrement
		} else {
			o.gains[i] *= gainDecay
		}
		if o.gains[i] < minGain {
			o.gains[i] = minGain
		}
	}

	eta := o.cfg.LearningRate
	for i := range o.uY {
		o.uY[i] = o.momentum*o.uY[i] - eta*o.gains[i]*o.dY[i]
	}
	floats.Add(o.y, o.uY)

	centerColumns(o.y, o.n, o.dims)

	if iter == o.cfg.StopLyingIter && o.phase == PhaseEarlyExaggeration {
		o.scaleP(1 / o.cfg.Exaggeration)
		o.phase = PhaseNormal
		o.log.Debug("early exaggeration ended", "iter", iter)
	}
	if iter == o.cfg.MomSwitchIter {
		o.momentum = o.cfg.FinalMomentum
	}
}

// gradient computes dC/dY into dY.
func (o *optimizer) gradient() {
	if o.cfg.exact() {
		exactGradient(o.denseP, o.y, o.n, o.dims, o.dY)
		return
	}
	o.ws.approxGradient(o.sparseP, o.y, o.n, o.dims, o.cfg.Theta, o.dY, o.cfg.Parallel)
}

// cost returns the current KL divergence.
func (o *optimizer) cost() float64 {
	if o.cfg.exact() {
		return exactCost(o.denseP, o.y, o.n, o.dims)
	}
	return o.ws.approxCost(o.sparseP, o.y, o.n, o.dims, o.cfg.Theta)
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
