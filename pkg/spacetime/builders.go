package spacetime

import (
	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/ops"
	"github.com/matzehuels/opensurgery/pkg/patches"
	"github.com/matzehuels/opensurgery/pkg/topology"
)

// Side selects which logical operator boundary of a patch a measurement
// touches.
type Side uint8

const (
	SideX Side = iota
	SideZ
)

func (s Side) String() string {
	if s == SideZ {
		return "Z"
	}
	return "X"
}

// UsePatch builds a one-cell USE_QUBIT op at the named patch and the cursor.
func (l *Layout) UsePatch(name string) (Op, error) {
	c, err := l.topo.CoordinateOf(name)
	if err != nil {
		return Op{}, err
	}
	return Op{Kind: ops.UseQubit, Span: []Cell{At(c, l.now)}}, nil
}

// Decorate builds an instantaneous decorator op at the named patch.
func (l *Layout) Decorate(kind ops.Kind, name string) (Op, error) {
	if !kind.IsDecorator() {
		return Op{}, oserrors.New(oserrors.ErrCodeInternal, "%s is not a decorator", kind)
	}
	c, err := l.topo.CoordinateOf(name)
	if err != nil {
		return Op{}, err
	}
	return Op{Kind: kind, Span: []Cell{At(c, l.now)}}, nil
}

// Distillation builds a USE_DISTILLATION op covering the distillation region
// for the topology's distillation depth, starting at the cursor.
func (l *Layout) Distillation() Op {
	r := l.topo.Distillation()
	depth := l.topo.Depth()
	span := make([]Cell, 0, r.Rows*r.Cols*depth)
	for i := r.Corner.I; i < r.Corner.I+r.Rows; i++ {
		for j := r.Corner.J; j < r.Corner.J+r.Cols; j++ {
			for t := l.now; t < l.now+depth; t++ {
				span = append(span, Cell{i, j, t})
			}
		}
	}
	return Op{Kind: ops.UseDistillation, Span: span}
}

// Rotation builds the two-slice ancilla op that rotates the named patch. The
// first ancilla is the measurement anchor of the patch at both slices.
func (l *Layout) Rotation(name string) (Op, error) {
	q, err := l.topo.CoordinateOf(name)
	if err != nil {
		return Op{}, err
	}
	near := l.topo.ClosestAncillas(q)
	if len(near) == 0 {
		return Op{}, oserrors.New(oserrors.ErrCodeRouting, "no ancilla next to %q to rotate it", name).WithPatches(name)
	}
	anc1 := near[len(near)-1]
	next := l.topo.ClosestAncillas(anc1)
	if len(next) == 0 {
		return Op{}, oserrors.New(oserrors.ErrCodeRouting, "ancilla %s next to %q has no ancilla neighbor", anc1, name).WithPatches(name)
	}
	anc2 := next[len(next)-1]

	t0, t1 := l.now, l.now+1
	return Op{
		Kind: ops.UseAncilla,
		Span: []Cell{At(anc1, t0), At(anc2, t0), At(anc1, t1), At(anc2, t1)},
		Touches: []Touch{
			{Data: At(q, t0), Meas: At(anc1, t0)},
			{Data: At(q, t1), Meas: At(anc1, t1)},
		},
	}, nil
}

// boundaryDirections returns where the ancillas next to a patch's requested
// boundary are. Both operator sides resolve to the same pair of directions for
// a given orientation; only rotation changes which pair is used.
//
// The side is intentionally unused: X and Z requests must resolve to the same
// cells, and every routed merge and the S-gate donor search rely on that.
func boundaryDirections(o patches.Orientation, _ Side) []topology.Coord {
	if o == patches.Rotated {
		return topology.HorizontalDirections
	}
	return topology.VerticalDirections
}

// anchor returns the ancilla through which a route touches the named patch.
func (l *Layout) anchor(name string, side Side, state *patches.State) (topology.Coord, topology.Coord, error) {
	q, err := l.topo.CoordinateOf(name)
	if err != nil {
		return q, q, err
	}
	o, err := state.Orientation(name)
	if err != nil {
		return q, q, err
	}
	near := l.topo.ClosestAncillas(q, boundaryDirections(o, side)...)
	if len(near) == 0 {
		return q, q, oserrors.New(oserrors.ErrCodeRouting,
			"patch %q has no ancilla on its %s boundary in %s orientation, rotate it first", name, side, o).WithPatches(name)
	}
	return q, near[0], nil
}

// Route builds a multi-body USE_ANCILLA op joining the named patches in
// order through the ancilla routes between their boundary ancillas. The first
// patch is anchored at the start of the first segment and every later patch
// at the end of its segment.
func (l *Layout) Route(names []string, sides []Side, state *patches.State) (Op, error) {
	if len(names) < 2 {
		return Op{}, oserrors.New(oserrors.ErrCodeInvalidInstruction, "a route needs at least two patches, got %d", len(names))
	}
	if len(sides) != len(names) {
		return Op{}, oserrors.New(oserrors.ErrCodeInternal, "%d sides for %d patches", len(sides), len(names))
	}

	op := Op{Kind: ops.UseAncilla}
	seen := make(map[topology.Coord]bool)
	for k := 0; k+1 < len(names); k++ {
		q1, a1, err := l.anchor(names[k], sides[k], state)
		if err != nil {
			return Op{}, err
		}
		q2, a2, err := l.anchor(names[k+1], sides[k+1], state)
		if err != nil {
			return Op{}, err
		}
		seg, ok := l.topo.Route(a1, a2)
		if !ok {
			return Op{}, oserrors.New(oserrors.ErrCodeRouting,
				"no ancilla route between %q and %q", names[k], names[k+1]).WithPatches(names[k], names[k+1])
		}
		for _, c := range seg {
			if !seen[c] {
				seen[c] = true
				op.Span = append(op.Span, At(c, l.now))
			}
		}

		first, last := a1, a2
		if len(seg) > 0 {
			first, last = seg[0], seg[len(seg)-1]
		}
		if k == 0 {
			op.Touches = append(op.Touches, Touch{Data: At(q1, l.now), Meas: At(first, l.now)})
		}
		op.Touches = append(op.Touches, Touch{Data: At(q2, l.now), Meas: At(last, l.now)})
	}
	return op, nil
}

// sGateCells picks the donor patch and ancilla lane for an S gate on the
// patch at q1. Donors next to the top or left edge are skipped, as are donors
// whose lane would leave the grid.
func (l *Layout) sGateCells(name string, q1 topology.Coord) (q2, anc1, anc2, anc3 topology.Coord, err error) {
	for _, cand := range l.topo.ClosestQubits(q1) {
		if cand.I < 1 || cand.J < 1 || l.rows-cand.I < 1 || l.cols-cand.J < 1 {
			continue
		}
		dq := q1.Sub(cand)
		perp := []topology.Coord{
			{I: 1 - abs(dq.I), J: 1 - abs(dq.J)},
			{I: abs(dq.I) - 1, J: abs(dq.J) - 1},
		}
		near := l.topo.ClosestAncillas(q1, perp...)
		if len(near) == 0 {
			continue
		}
		a1 := near[0]
		a2 := a1.Sub(dq)
		a3 := a2.Sub(dq)
		if !l.topo.InBounds(a2) || !l.topo.InBounds(a3) {
			continue
		}
		return cand, a1, a2, a3, nil
	}
	return q2, anc1, anc2, anc3, oserrors.New(oserrors.ErrCodeRouting, "no donor patch next to %q for an S gate", name).WithPatches(name)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// SGate places the S gate protocol on the named patch. A live donor patch is
// moved onto the ancilla lane for the duration of the gate and moved back
// afterwards. The bus patch uses a fixed arrangement and needs no donor.
func (l *Layout) SGate(name string, state *patches.State) error {
	q1, err := l.topo.CoordinateOf(name)
	if err != nil {
		return err
	}

	var q2, anc1, anc2, anc3 topology.Coord
	if name == topology.AncillaBus {
		q2 = q1.Add(topology.Up)
		anc1 = q1.Add(topology.Right)
		anc2 = q1.Add(topology.Coord{I: -1, J: 1})
	} else if q2, anc1, anc2, anc3, err = l.sGateCells(name, q1); err != nil {
		return err
	}

	donor, named := l.topo.NameOf(q2)
	move := name != topology.AncillaBus && named && state.IsActive(donor)

	if move {
		op := Op{Kind: ops.MovePatch, Span: []Cell{At(q2, l.now), At(anc2, l.now), At(anc3, l.now)}}
		if err := l.PlaceAndAdvance(op, state, donor); err != nil {
			return err
		}
	}

	t0, t1 := l.now, l.now+1
	gate := Op{Kind: ops.UseSGate, Span: []Cell{
		At(q1, t0), At(q2, t0), At(anc1, t0), At(anc2, t0),
		At(q1, t1), At(q2, t1), At(anc1, t1), At(anc2, t1),
	}}
	busy := []string{name}
	if move {
		busy = append(busy, donor)
	}
	if err := l.PlaceAndAdvance(gate, state, busy...); err != nil {
		return err
	}

	if move {
		op := Op{Kind: ops.MovePatch, Span: []Cell{At(q2, l.now), At(anc2, l.now), At(anc3, l.now)}}
		if err := l.PlaceAndAdvance(op, state, donor); err != nil {
			return err
		}
	}
	return nil
}

// SidesOf returns n copies of s.
func SidesOf(s Side, n int) []Side {
	out := make([]Side, n)
	for i := range out {
		out[i] = s
	}
	return out
}

