package estimate

import (
	"math"
	"strconv"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
)

// Defaults for [Params].
const (
	DefaultPhysicalErrorRate   = 1e-3
	DefaultSafetyFactor        = 99
	DefaultCycleTimeNs         = 1000
	DefaultLevel1Distance      = 15
	DefaultLevel2Distance      = 31
	DefaultInitialDataDistance = 7
	DefaultCliffordFactor      = 2
)

// Distillation box dimensions in units of the box's own code distance.
const (
	BoxX = 4
	BoxY = 8
	BoxT = 6.5
)

// Params are the substrate characteristics.
type Params struct {
	// PhysicalErrorRate sets how quickly logical errors are suppressed.
	// 1e-3 means a factor of 10 with each increase of d by 2.
	PhysicalErrorRate float64 `json:"physical_error_rate" toml:"physical_error_rate" yaml:"physical_error_rate"`
	// SafetyFactor S targets a failure probability of 1/(S·N) for N things.
	SafetyFactor float64 `json:"safety_factor" toml:"safety_factor" yaml:"safety_factor"`
	// CycleTimeNs is the duration of one surface code round.
	CycleTimeNs float64 `json:"cycle_time_ns" toml:"cycle_time_ns" yaml:"cycle_time_ns"`
	// Level1Distance must be at least 15 to leave room for state injection.
	Level1Distance int `json:"level1_distance" toml:"level1_distance" yaml:"level1_distance"`
	Level2Distance int `json:"level2_distance" toml:"level2_distance" yaml:"level2_distance"`
	// InitialDataDistance is the data distance assumed before it is computed.
	InitialDataDistance int `json:"initial_data_distance" toml:"initial_data_distance" yaml:"initial_data_distance"`
	// CliffordFactor multiplies the T-count bound on data rounds when the
	// depth is unknown, since circuits are usually Clifford dominated.
	CliffordFactor float64 `json:"clifford_factor" toml:"clifford_factor" yaml:"clifford_factor"`
}

// DefaultParams returns the reference substrate.
func DefaultParams() Params {
	return Params{
		PhysicalErrorRate:   DefaultPhysicalErrorRate,
		SafetyFactor:        DefaultSafetyFactor,
		CycleTimeNs:         DefaultCycleTimeNs,
		Level1Distance:      DefaultLevel1Distance,
		Level2Distance:      DefaultLevel2Distance,
		InitialDataDistance: DefaultInitialDataDistance,
		CliffordFactor:      DefaultCliffordFactor,
	}
}

// SetDefaults fills zero fields with their defaults.
func (p *Params) SetDefaults() {
	d := DefaultParams()
	if p.PhysicalErrorRate == 0 {
		p.PhysicalErrorRate = d.PhysicalErrorRate
	}
	if p.SafetyFactor == 0 {
		p.SafetyFactor = d.SafetyFactor
	}
	if p.CycleTimeNs == 0 {
		p.CycleTimeNs = d.CycleTimeNs
	}
	if p.Level1Distance == 0 {
		p.Level1Distance = d.Level1Distance
	}
	if p.Level2Distance == 0 {
		p.Level2Distance = d.Level2Distance
	}
	if p.InitialDataDistance == 0 {
		p.InitialDataDistance = d.InitialDataDistance
	}
	if p.CliffordFactor == 0 {
		p.CliffordFactor = d.CliffordFactor
	}
}

// Validate checks that the parameters describe a substrate below threshold.
func (p Params) Validate() error {
	switch {
	case p.PhysicalErrorRate <= 0 || p.PhysicalErrorRate >= 0.01:
		return oserrors.New(oserrors.ErrCodeInvalidConfig,
			"physical error rate %g must be in (0, 0.01)", p.PhysicalErrorRate)
	case p.SafetyFactor <= 0:
		return oserrors.New(oserrors.ErrCodeInvalidConfig, "safety factor must be positive")
	case p.CycleTimeNs <= 0:
		return oserrors.New(oserrors.ErrCodeInvalidConfig, "cycle time must be positive")
	case p.Level1Distance < 3 || p.Level2Distance < 3 || p.InitialDataDistance < 3:
		return oserrors.New(oserrors.ErrCodeInvalidConfig, "code distances must be at least 3")
	case p.CliffordFactor < 1:
		return oserrors.New(oserrors.ErrCodeInvalidConfig, "clifford factor must be at least 1")
	}
	return nil
}

// Experiment is the logical workload.
type Experiment struct {
	// Footprint is the number of logical patches, including routing space.
	Footprint int `json:"footprint" toml:"footprint" yaml:"footprint"`
	// TCount is the number of T gates.
	TCount int `json:"t_count" toml:"t_count" yaml:"t_count"`
	// DepthUnits is the depth in logical time steps. Zero means unknown, and
	// the T-count bounds the run time instead.
	DepthUnits float64 `json:"depth_units" toml:"depth_units" yaml:"depth_units"`
}

// Validate checks the workload is estimable.
func (e Experiment) Validate() error {
	if e.Footprint < 1 {
		return oserrors.New(oserrors.ErrCodeInvalidInput, "footprint must be at least 1, got %d", e.Footprint)
	}
	if e.TCount < 0 || e.DepthUnits < 0 {
		return oserrors.New(oserrors.ErrCodeInvalidInput, "t_count and depth_units must not be negative")
	}
	if e.TCount == 0 && e.DepthUnits == 0 {
		return oserrors.New(oserrors.ErrCodeInvalidInput, "either t_count or depth_units is required")
	}
	return nil
}

// Result is the outcome of an estimate.
type Result struct {
	// Levels is 1 or 2, or 0 when Infeasible.
	Levels int `json:"levels"`
	// Infeasible reports that three or more distillation levels would be
	// needed. The remaining quantities are zero.
	Infeasible bool `json:"infeasible"`

	PhysicalQubits int64   `json:"number_of_physical_qubits"`
	DataQubits     int64   `json:"num_data_qubits"`
	TimeSeconds    float64 `json:"time_seconds"`
	Distance       int     `json:"distance"`

	BoxDistance     int     `json:"box_distance"`
	TCount          int     `json:"t_count"`
	ExecutionRounds float64 `json:"execution_rounds"`

	Level1Error float64 `json:"level1_error"`
	Level2Error float64 `json:"level2_error"`
}

// LevelsLabel renders Levels, "3+" when infeasible.
func (r Result) LevelsLabel() string {
	if r.Infeasible {
		return "3+"
	}
	return strconv.Itoa(r.Levels)
}

// Box is the distillation box measured in data patches.
type Box struct {
	X, Y, T int
}

// BoxInPatchUnits scales the distillation box to data patches of distance
// r.Distance.
func (r Result) BoxInPatchUnits() (Box, error) {
	if r.Infeasible || r.Distance <= 0 || r.BoxDistance <= 0 {
		return Box{}, oserrors.New(oserrors.ErrCodeInfeasible, "no distillation box for an infeasible estimate")
	}
	f := float64(r.BoxDistance) / float64(r.Distance)
	return Box{
		X: int(math.Ceil(BoxX * f)),
		Y: int(math.Ceil(BoxY * f)),
		T: int(math.Ceil(BoxT * f)),
	}, nil
}

// Estimate computes the resources for e on substrate p.
func Estimate(p Params, e Experiment) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if err := e.Validate(); err != nil {
		return Result{}, err
	}

	r := Result{TCount: e.TCount}
	if r.TCount == 0 {
		// with only a depth known, assume every box-time step consumes a T state
		r.TCount = int(math.Ceil(e.DepthUnits / BoxT))
	}

	levels, l1, l2 := distillationLevels(p, r.TCount)
	r.Level1Error, r.Level2Error = l1, l2
	if levels == 0 {
		r.Infeasible = true
		return r, nil
	}
	r.Levels = levels
	r.BoxDistance = boxDistance(p, levels)

	// rounds derived from depth scale with the data distance itself, so the
	// search uses the initial guess and the final time the computed distance
	rounds := executionRounds(e, r.TCount, r.BoxDistance, p.InitialDataDistance)
	dataRounds := float64(e.Footprint) * rounds
	if e.DepthUnits == 0 {
		dataRounds *= p.CliffordFactor
	}
	r.Distance = Distance(p.PhysicalErrorRate, 1/(p.SafetyFactor*dataRounds))

	r.ExecutionRounds = executionRounds(e, r.TCount, r.BoxDistance, r.Distance)
	r.TimeSeconds = r.ExecutionRounds * p.CycleTimeNs * 1e-9
	r.DataQubits = int64(e.Footprint) * PhysQubitsPerPatch(r.Distance)
	r.PhysicalQubits = distillationQubits(p, levels) + r.DataQubits
	return r, nil
}

// distillationLevels returns 1 or 2, or 0 when more are needed, with the
// level-1 and level-2 output error rates.
func distillationLevels(p Params, tCount int) (int, float64, float64) {
	pp := p.PhysicalErrorRate

	// injected error plus 100 distance-7 logical errors for the T gate structure
	l1T := pp + 100*PLogical(pp, 7)
	l1Prep := 1000 * PLogical(pp, p.Level1Distance)
	l1Out := l1Prep + DistillationPOut(l1T, 1)

	l2T := l1Out + 100*PLogical(pp, p.Level1Distance)
	l2Prep := 1000 * PLogical(pp, p.Level2Distance)
	// TODO: the second stage applies one suppression round to an input that
	// was already distilled once; check whether this should be two rounds.
	l2Out := l2Prep + DistillationPOut(l2T, 1)

	target := 1 / (p.SafetyFactor * float64(tCount))
	switch {
	case l1Out < l2Out:
		return 1, l1Out, l2Out
	case l2Out < target:
		return 2, l1Out, l2Out
	}
	return 0, l1Out, l2Out
}

// boxDistance is the code distance governing the box's time extent. With two
// levels, eight level-1 boxes run beside the level-2 box, so the longer of d2
// and 2·d1 bounds it.
func boxDistance(p Params, levels int) int {
	if levels == 1 {
		return p.Level1Distance
	}
	if p.Level2Distance > 2*p.Level1Distance {
		return p.Level2Distance
	}
	return 2 * p.Level1Distance
}

func executionRounds(e Experiment, tCount, boxDist, dataDist int) float64 {
	if e.DepthUnits != 0 {
		return NumberOfRounds(e.DepthUnits, dataDist, 1)
	}
	return NumberOfRounds(float64(tCount), boxDist, BoxT)
}

func distillationQubits(p Params, levels int) int64 {
	l1 := BoxX * BoxY * PhysQubitsPerPatch(p.Level1Distance)
	if levels == 1 {
		return l1
	}
	l2 := BoxX * BoxY * PhysQubitsPerPatch(p.Level2Distance)
	return 8*l1 + l2
}
