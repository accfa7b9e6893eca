package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/matzehuels/opensurgery/pkg/cache"
	"github.com/matzehuels/opensurgery/pkg/estimate"
	"github.com/matzehuels/opensurgery/pkg/observability"
)

// Sweep kinds.
const (
	SweepTCount    = "tcount"
	SweepErrorRate = "error-rate"
	SweepTradeoff  = "tradeoff"
	SweepDistance  = "distance-bins"
)

// ValidSweeps is the set of supported sweep kinds.
var ValidSweeps = map[string]bool{
	SweepTCount:    true,
	SweepErrorRate: true,
	SweepTradeoff:  true,
	SweepDistance:  true,
}

// DefaultSweepPoints is the number of samples per sweep axis.
const DefaultSweepPoints = 20

// SweepOptions configures a parameter sweep.
type SweepOptions struct {
	Kind       string              `json:"kind"`
	Params     estimate.Params     `json:"params"`
	Experiment estimate.Experiment `json:"experiment"`
	Points     int                 `json:"points,omitempty"`

	// TCount sweeps span 10^MinExp .. 10^MaxExp; ErrorRate sweeps span the
	// same exponents over the physical error rate.
	MinExp float64 `json:"min_exp,omitempty"`
	MaxExp float64 `json:"max_exp,omitempty"`
}

// SetDefaults fills zero fields with the ranges of the classic experiments.
func (o *SweepOptions) SetDefaults() {
	o.Params.SetDefaults()
	if o.Points == 0 {
		o.Points = DefaultSweepPoints
	}
	if o.MinExp == 0 && o.MaxExp == 0 {
		switch o.Kind {
		case SweepErrorRate:
			o.MinExp, o.MaxExp = -5, -2
		default:
			o.MinExp, o.MaxExp = 2, 10
		}
	}
	if o.Experiment.Footprint == 0 {
		o.Experiment.Footprint = 100
	}
}

// Validate checks the sweep kind and ranges.
func (o *SweepOptions) Validate() error {
	if !ValidSweeps[o.Kind] {
		return fmt.Errorf("invalid sweep: %q (must be one of: tcount, error-rate, tradeoff, distance-bins)", o.Kind)
	}
	if o.Points < 1 {
		return fmt.Errorf("points must be positive, got %d", o.Points)
	}
	if o.MaxExp <= o.MinExp {
		return fmt.Errorf("empty sweep range [%g, %g)", o.MinExp, o.MaxExp)
	}
	return o.Params.Validate()
}

// SweepResult holds the points of one sweep; only the field for its kind is
// set.
type SweepResult struct {
	Kind      string                    `json:"kind"`
	TCount    []estimate.TCountPoint    `json:"tcount,omitempty"`
	ErrorRate []estimate.ErrorRatePoint `json:"error_rate,omitempty"`
	Tradeoff  []estimate.TradeoffPoint  `json:"tradeoff,omitempty"`
	Distance  []estimate.DistanceBin    `json:"distance_bins,omitempty"`
}

// Len returns the number of points.
func (r *SweepResult) Len() int {
	return len(r.TCount) + len(r.ErrorRate) + len(r.Tradeoff) + len(r.Distance)
}

// EstimateWithCacheInfo evaluates the estimator with caching and returns cache hit info.
func (r *Runner) EstimateWithCacheInfo(ctx context.Context, p estimate.Params, e estimate.Experiment, refresh bool) (estimate.Result, bool, error) {
	p.SetDefaults()
	key := r.Keyer.EstimateKey(cache.EstimateKeyOpts{
		Footprint:    e.Footprint,
		TCount:       e.TCount,
		DepthUnits:   e.DepthUnits,
		ErrorRate:    p.PhysicalErrorRate,
		SafetyFactor: p.SafetyFactor,
		CycleTimeNs:  p.CycleTimeNs,
	})

	hooks := observability.Cache()
	if !refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			var res estimate.Result
			if err := json.Unmarshal(data, &res); err == nil {
				hooks.OnCacheHit(ctx, "estimate")
				return res, true, nil
			}
		}
		hooks.OnCacheMiss(ctx, "estimate")
	}

	start := time.Now()
	res, err := estimate.Estimate(p, e)
	observability.Estimate().OnEstimate(ctx, e.Footprint, e.TCount, time.Since(start), err)
	if err != nil {
		return estimate.Result{}, false, err
	}

	if data, err := json.Marshal(res); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLEstimate); err == nil {
			hooks.OnCacheSet(ctx, "estimate", len(data))
		}
	}
	r.Logger.Debug("estimated resources",
		"footprint", e.Footprint,
		"t_count", res.TCount,
		"levels", res.LevelsLabel(),
		"distance", res.Distance)
	return res, false, nil
}

// Estimate is a convenience wrapper that calls EstimateWithCacheInfo and discards the cache hit info.
func (r *Runner) Estimate(ctx context.Context, p estimate.Params, e estimate.Experiment) (estimate.Result, error) {
	res, _, err := r.EstimateWithCacheInfo(ctx, p, e, false)
	return res, err
}

// Sweep runs a parameter sweep. Sweeps are not cached.
func (r *Runner) Sweep(ctx context.Context, opts SweepOptions) (*SweepResult, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := runSweep(ctx, opts)
	points := 0
	if out != nil {
		points = out.Len()
	}
	observability.Estimate().OnSweep(ctx, opts.Kind, points, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("swept estimator", "kind", opts.Kind, "points", points, "duration", time.Since(start))
	return out, nil
}

func runSweep(ctx context.Context, opts SweepOptions) (*SweepResult, error) {
	out := &SweepResult{Kind: opts.Kind}
	e := opts.Experiment
	var err error
	switch opts.Kind {
	case SweepTCount:
		counts := make([]int, opts.Points)
		for i, v := range estimate.LogSpace(opts.MinExp, opts.MaxExp, opts.Points) {
			counts[i] = int(math.Round(v))
		}
		out.TCount, err = estimate.SweepTCount(ctx, opts.Params, e.Footprint, counts)
	case SweepErrorRate:
		if e.TCount == 0 && e.DepthUnits == 0 {
			e.TCount = 1e8
		}
		rates := estimate.LogSpace(opts.MinExp, opts.MaxExp, opts.Points)
		out.ErrorRate, err = estimate.SweepErrorRate(ctx, opts.Params, e, rates)
	case SweepTradeoff:
		factors := estimate.LinSpaceAround(1, 0.5, opts.Points)
		out.Tradeoff, err = estimate.SpaceTimeTradeoff(ctx, opts.Params, e.Footprint, volumeOf(e), factors, factors)
	case SweepDistance:
		factors := estimate.LinSpace(1, float64(opts.Points+1), opts.Points)
		out.Distance, err = estimate.DistanceBins(ctx, opts.Params, e.Footprint, volumeOf(e), factors)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// volumeOf is the spacetime volume of e in patch-depth units.
func volumeOf(e estimate.Experiment) float64 {
	depth := e.DepthUnits
	if depth == 0 {
		depth = max(float64(e.TCount)*estimate.BoxT, 1)
	}
	return float64(e.Footprint) * depth
}
