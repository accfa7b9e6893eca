// Package compiler drives an instruction stream through the spacetime
// scheduler.
//
// [Compile] builds the topology for the stream's INIT, then dispatches each
// instruction to its operation builder, places the result, and keeps patch
// liveness in step:
//
//	prog, _ := instr.ParseString("INIT 4\nNEED A\nMZZ A 0\nMX A\n")
//	res, err := compiler.Compile(ctx, prog, compiler.Options{})
//
// Any error aborts the stream and is returned as an [*InstructionError]
// naming the offending instruction and the last one that completed.
package compiler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/estimate"
	"github.com/matzehuels/opensurgery/pkg/instr"
	"github.com/matzehuels/opensurgery/pkg/observability"
	"github.com/matzehuels/opensurgery/pkg/ops"
	"github.com/matzehuels/opensurgery/pkg/patches"
	"github.com/matzehuels/opensurgery/pkg/spacetime"
	"github.com/matzehuels/opensurgery/pkg/topology"
)

// Result is a compiled stream.
type Result struct {
	Layout *spacetime.Layout
	State  *patches.State
	// Estimate is the sizing estimate, nil when the block was not sized
	// from one.
	Estimate *estimate.Result
	Stats    Stats
}

// Stats summarizes a compile.
type Stats struct {
	Instructions int             `json:"instructions"`
	Qubits       int             `json:"qubits"`
	TCount       int             `json:"t_count"`
	Rows         int             `json:"rows"`
	Cols         int             `json:"cols"`
	Block        topology.Block  `json:"block"`
	Layout       spacetime.Stats `json:"layout"`
	Duration     time.Duration   `json:"duration"`
}

// Compile places every instruction of prog.
func Compile(ctx context.Context, prog *instr.Program, opts Options) (*Result, error) {
	opts.SetDefaults()
	if prog == nil || prog.Len() == 0 {
		return nil, oserrors.Wrap(oserrors.ErrCodeInvalidInstruction, instr.ErrEmpty, "compile")
	}

	start := time.Now()
	hooks := observability.Compile()
	hooks.OnCompileStart(ctx, prog.Qubits(), prog.Len())

	res, err := compile(ctx, prog, opts)
	depth := 0
	if res != nil {
		depth = res.Layout.Extent()
		res.Stats.Duration = time.Since(start)
	}
	hooks.OnCompileComplete(ctx, depth, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("compiled circuit",
		"instructions", res.Stats.Instructions,
		"depth", res.Stats.Layout.Extent,
		"operations", res.Stats.Layout.Operations,
		"duration", res.Stats.Duration)
	return res, nil
}

func compile(ctx context.Context, prog *instr.Program, opts Options) (*Result, error) {
	first := prog.Instructions[0]
	if first.Op != instr.OpInit {
		return nil, &InstructionError{
			Index: 0, LastPlaced: -1, Instruction: first,
			Err: oserrors.New(oserrors.ErrCodeInvalidInstruction, "stream must start with INIT"),
		}
	}

	topo, est, err := buildTopology(prog, opts)
	if err != nil {
		return nil, &InstructionError{Index: 0, LastPlaced: -1, Instruction: first, Err: err}
	}
	capacity := 0
	if !opts.Unbounded {
		capacity = spacetime.WorstCaseCapacity(prog.Len(), topo)
	}

	layout, err := spacetime.New(topo, capacity)
	if err != nil {
		return nil, &InstructionError{Index: 0, LastPlaced: -1, Instruction: first, Err: err}
	}
	c := &compiler{
		layout: layout,
		state:  patches.New(),
		logger: opts.Logger,
	}
	for i := range topo.Qubits() {
		if err := c.state.Activate(strconv.Itoa(i), patches.Original); err != nil {
			return nil, &InstructionError{Index: 0, LastPlaced: -1, Instruction: first, Err: err}
		}
	}
	c.logger.Debug("initialized topology", "qubits", topo.Qubits(), "rows", topo.Rows(), "cols", topo.Cols(), "capacity", capacity)

	hooks := observability.Compile()
	for i := 1; i < prog.Len(); i++ {
		in := prog.Instructions[i]
		if err := ctx.Err(); err != nil {
			return nil, &InstructionError{Index: i, LastPlaced: i - 1, Instruction: in, Err: err}
		}
		err := c.step(in)
		hooks.OnInstruction(ctx, i, in.Op.String(), err)
		if err != nil {
			return nil, &InstructionError{Index: i, LastPlaced: i - 1, Instruction: in, Err: err}
		}
		c.logger.Debug("placed", "index", i, "instruction", in.String(), "now", c.layout.Now())
	}

	block := topology.Block{Rows: topo.Distillation().Rows, Cols: topo.Distillation().Cols, Depth: topo.Depth()}
	return &Result{
		Layout:   c.layout,
		State:    c.state,
		Estimate: est,
		Stats: Stats{
			Instructions: prog.Len(),
			Qubits:       topo.Qubits(),
			TCount:       prog.TCount(),
			Rows:         topo.Rows(),
			Cols:         topo.Cols(),
			Block:        block,
			Layout:       c.layout.Stats(),
		},
	}, nil
}

// buildTopology arranges the grid for the stream's INIT. The distillation
// block comes from a resource estimate when requested and the stream needs
// magic states.
func buildTopology(prog *instr.Program, opts Options) (*topology.Topology, *estimate.Result, error) {
	n := prog.Qubits()
	if opts.Grid != nil {
		t, err := topology.New(*opts.Grid, n)
		return t, nil, err
	}

	block := opts.Block
	var est *estimate.Result
	if tCount := prog.TCount(); opts.SizeFromEstimate && tCount > 0 {
		r, err := estimate.Estimate(opts.Params, estimate.Experiment{Footprint: n, TCount: tCount})
		if err != nil {
			return nil, nil, err
		}
		est = &r
		box, err := r.BoxInPatchUnits()
		if err != nil {
			opts.Logger.Warn("estimate is infeasible, keeping the configured distillation block",
				"t_count", tCount, "block", block)
		} else {
			block = topology.Block{Rows: box.X, Cols: box.Y, Depth: box.T}
			opts.Logger.Debug("sized distillation block from estimate",
				"levels", r.Levels, "distance", r.Distance, "rows", block.Rows, "cols", block.Cols, "depth", block.Depth)
		}
	}

	t, err := topology.Build(n, block, opts.MaxRows)
	return t, est, err
}

type compiler struct {
	layout *spacetime.Layout
	state  *patches.State
	logger *log.Logger
}

// step places one instruction after INIT.
func (c *compiler) step(in instr.Instruction) error {
	if in.Mentions(topology.AncillaBus) && !c.state.IsActive(topology.AncillaBus) {
		if err := c.state.Activate(topology.AncillaBus, patches.Original); err != nil {
			return err
		}
	}

	switch in.Op {
	case instr.OpInit:
		return oserrors.New(oserrors.ErrCodeInvalidInstruction, "INIT may only appear once")

	case instr.OpNeed:
		if c.state.IsActive(topology.MagicState) {
			return oserrors.Wrap(oserrors.ErrCodeLiveness, patches.ErrAlreadyActive,
				"magic state %q has not been consumed", topology.MagicState).WithPatches(topology.MagicState)
		}
		if _, err := c.layout.Place(c.layout.Distillation()); err != nil {
			return err
		}
		return c.state.Activate(topology.MagicState, patches.Original)

	case instr.OpMZZ:
		return c.measure(in.Args, spacetime.SideZ)

	case instr.OpMXX:
		names := in.Args
		if len(names) > 2 {
			c.logger.Warn("MXX measures the first two patches only", "line", in.Line, "ignored", names[2:])
			names = names[:2]
		}
		return c.measure(names, spacetime.SideX)

	case instr.OpS, instr.OpV:
		name := in.Args[0]
		if err := c.requireActive(name); err != nil {
			return err
		}
		return c.layout.SGate(name, c.state)

	case instr.OpH, instr.OpMX, instr.OpMZ:
		return c.decorate(in.Op, in.Args[0])

	case instr.OpRot:
		name := in.Args[0]
		if err := c.requireActive(name); err != nil {
			return err
		}
		op, err := c.layout.Rotation(name)
		if err != nil {
			return err
		}
		if err := c.layout.PlaceAndAdvance(op, c.state, name); err != nil {
			return err
		}
		return c.state.Toggle(name)
	}
	return oserrors.New(oserrors.ErrCodeInvalidInstruction, "unsupported opcode %s", in.Op)
}

// measure places a multi-body parity measurement on the given boundary of
// every named patch.
func (c *compiler) measure(names []string, side spacetime.Side) error {
	op, err := c.layout.Route(names, spacetime.SidesOf(side, len(names)), c.state)
	if err != nil {
		return err
	}
	return c.layout.PlaceAndAdvance(op, c.state, names...)
}

var decoratorKinds = map[instr.Opcode]ops.Kind{
	instr.OpH:  ops.Hadamard,
	instr.OpMX: ops.MeasureX,
	instr.OpMZ: ops.MeasureZ,
}

// decorate places a single-patch operation. Measuring the magic state or the
// bus consumes it.
func (c *compiler) decorate(code instr.Opcode, name string) error {
	if err := c.requireActive(name); err != nil {
		return err
	}
	op, err := c.layout.Decorate(decoratorKinds[code], name)
	if err != nil {
		return err
	}
	if err := c.layout.PlaceAndAdvance(op, c.state, name); err != nil {
		return err
	}
	if code != instr.OpH && oserrors.IsReservedName(name) {
		return c.state.Deactivate(name)
	}
	return nil
}

func (c *compiler) requireActive(name string) error {
	if _, err := c.layout.Topology().CoordinateOf(name); err != nil {
		return err
	}
	if !c.state.IsActive(name) {
		return oserrors.Wrap(oserrors.ErrCodeLiveness, patches.ErrNotActive, "patch %q", name).WithPatches(name)
	}
	return nil
}

// IsFatal reports whether err came from the instruction loop rather than
// from cancellation.
func IsFatal(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return oserrors.IsFatal(oserrors.GetCode(err))
}
