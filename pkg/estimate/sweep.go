package estimate

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// TCountPoint is one sample of [SweepTCount].
type TCountPoint struct {
	TCount int    `json:"t_count"`
	Result Result `json:"result"`
}

// ErrorRatePoint is one sample of [SweepErrorRate].
type ErrorRatePoint struct {
	PhysicalErrorRate float64 `json:"physical_error_rate"`
	Result            Result  `json:"result"`
}

// TradeoffPoint compares spending a factor on space against spending it on
// volume. Ratio is the qubit count of the volume variant over the space
// variant.
type TradeoffPoint struct {
	SpaceFactor  float64 `json:"space_factor"`
	VolumeFactor float64 `json:"volume_factor"`
	SpaceQubits  int64   `json:"space_qubits"`
	VolumeQubits int64   `json:"volume_qubits"`
	SpaceDist    int     `json:"space_distance"`
	VolumeDist   int     `json:"volume_distance"`
	Ratio        float64 `json:"ratio"`
}

// DistanceBin is one sample of [DistanceBins].
type DistanceBin struct {
	Factor         float64 `json:"factor"`
	Volume         float64 `json:"volume"`
	Distance       int     `json:"distance"`
	PhysicalQubits int64   `json:"number_of_physical_qubits"`
	// Changed marks the first sample at a new distance.
	Changed bool `json:"changed"`
}

// sweep evaluates fn for every index in [0, n) on a bounded worker pool.
func sweep(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range n {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	return g.Wait()
}

// SweepTCount estimates a fixed footprint across T-counts.
func SweepTCount(ctx context.Context, p Params, footprint int, tCounts []int) ([]TCountPoint, error) {
	out := make([]TCountPoint, len(tCounts))
	err := sweep(ctx, len(tCounts), func(i int) error {
		r, err := Estimate(p, Experiment{Footprint: footprint, TCount: tCounts[i]})
		if err != nil {
			return err
		}
		out[i] = TCountPoint{TCount: tCounts[i], Result: r}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SweepErrorRate estimates e across physical error rates.
func SweepErrorRate(ctx context.Context, p Params, e Experiment, rates []float64) ([]ErrorRatePoint, error) {
	out := make([]ErrorRatePoint, len(rates))
	err := sweep(ctx, len(rates), func(i int) error {
		q := p
		q.PhysicalErrorRate = rates[i]
		r, err := Estimate(q, e)
		if err != nil {
			return err
		}
		out[i] = ErrorRatePoint{PhysicalErrorRate: rates[i], Result: r}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SpaceTimeTradeoff compares, over a grid of factors, scaling the footprint
// of a computation of the given volume against scaling its volume at the
// original footprint.
func SpaceTimeTradeoff(ctx context.Context, p Params, footprint int, volume float64, spaceFactors, volumeFactors []float64) ([]TradeoffPoint, error) {
	ns := len(spaceFactors)
	out := make([]TradeoffPoint, len(volumeFactors)*ns)
	err := sweep(ctx, len(out), func(k int) error {
		v, s := volumeFactors[k/ns], spaceFactors[k%ns]

		space := max(int(math.Ceil(s*float64(footprint))), 1)
		bySpace, err := Estimate(p, Experiment{Footprint: space, DepthUnits: volume / float64(space)})
		if err != nil {
			return err
		}
		vol := math.Ceil(v * volume)
		byVolume, err := Estimate(p, Experiment{Footprint: footprint, DepthUnits: vol / float64(footprint)})
		if err != nil {
			return err
		}

		pt := TradeoffPoint{
			SpaceFactor:  s,
			VolumeFactor: v,
			SpaceQubits:  bySpace.PhysicalQubits,
			VolumeQubits: byVolume.PhysicalQubits,
			SpaceDist:    bySpace.Distance,
			VolumeDist:   byVolume.Distance,
		}
		if pt.SpaceQubits > 0 {
			pt.Ratio = float64(pt.VolumeQubits) / float64(pt.SpaceQubits)
		}
		out[k] = pt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DistanceBins estimates a fixed footprint across scaled volumes and marks
// where the chosen data distance changes.
func DistanceBins(ctx context.Context, p Params, footprint int, volume float64, factors []float64) ([]DistanceBin, error) {
	out := make([]DistanceBin, len(factors))
	err := sweep(ctx, len(factors), func(i int) error {
		vol := math.Ceil(volume * factors[i])
		r, err := Estimate(p, Experiment{Footprint: footprint, DepthUnits: vol / float64(footprint)})
		if err != nil {
			return err
		}
		out[i] = DistanceBin{Factor: factors[i], Volume: vol, Distance: r.Distance, PhysicalQubits: r.PhysicalQubits}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(out); i++ {
		out[i].Changed = out[i].Distance != out[i-1].Distance
	}
	return out, nil
}
