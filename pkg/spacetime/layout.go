// Package spacetime places lattice-surgery operations on a three-dimensional
// grid of patch cells: two spatial axes from a [topology.Topology] and one time
// axis of error-correction rounds.
//
// A [Layout] owns the grid, the operation registry, and the time cursor. The
// only write paths are [Layout.Place] and [Layout.AdvanceIdle]. Placement never
// relocates an operation in space; collisions push it later in time.
//
// # Capacity
//
// A bounded layout reserves its time axis for a worst-case number of slices
// and reports [oserrors.ErrCodeCapacity] when an operation would need more. A
// layout with capacity 0 grows on demand. Either way the grid never holds
// more than [MaxCells] cells.
package spacetime

import (
	"fmt"
	"math"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/ops"
	"github.com/matzehuels/opensurgery/pkg/patches"
	"github.com/matzehuels/opensurgery/pkg/topology"
)

// Cell is a 3D grid coordinate.
type Cell struct {
	I, J, T int
}

// At lifts a 2D coordinate to time t.
func At(c topology.Coord, t int) Cell { return Cell{c.I, c.J, t} }

// Coord drops the time component.
func (c Cell) Coord() topology.Coord { return topology.Coord{I: c.I, J: c.J} }

func (c Cell) String() string { return fmt.Sprintf("(%d,%d,%d)", c.I, c.J, c.T) }

func (c Cell) shift(dt int) Cell { return Cell{c.I, c.J, c.T + dt} }

// Touch is a directed data-to-measurement relation between two cells.
type Touch struct {
	Data, Meas Cell
}

// Op is an operation ready for placement. Times are absolute, computed from
// the cursor when the op was built; placement may shift them later.
type Op struct {
	Kind    ops.Kind
	Span    []Cell
	Touches []Touch
}

// MaxTime returns the latest time any cell of the op refers to, or -1 for an
// op with no cells.
func (o Op) MaxTime() int {
	m := -1
	for _, c := range o.Span {
		m = max(m, c.T)
	}
	for _, t := range o.Touches {
		m = max(m, t.Data.T, t.Meas.T)
	}
	return m
}

type status uint8

const (
	statusOK status = iota
	statusNoTime
	statusBusy
	statusNoSpace
)

// Layout is the spacetime grid under construction.
type Layout struct {
	topo     *topology.Topology
	rows     int
	cols     int
	slice    int // rows*cols
	capacity int // maximum time extent, 0 for unbounded
	maxCells int

	cells []ops.Collection // len slice*T
	reg   *ops.Registry
	now   int
}

// MaxCells bounds the number of cells a layout may hold across all time
// slices.
const MaxCells = 1 << 24

// New returns a layout over topo with one empty time slice. With capacity > 0
// the time axis may not grow past capacity slices, and up to that many slices
// are reserved up front while they stay within [MaxCells].
func New(topo *topology.Topology, capacity int) (*Layout, error) {
	slice := topo.Rows() * topo.Cols()
	if slice < 1 || slice > MaxCells {
		return nil, oserrors.New(oserrors.ErrCodeSizing, "grid of %d cells outside [1, %d]", slice, MaxCells)
	}
	if capacity < 0 {
		return nil, oserrors.New(oserrors.ErrCodeCapacity, "negative capacity %d", capacity)
	}
	l := &Layout{
		topo:     topo,
		rows:     topo.Rows(),
		cols:     topo.Cols(),
		slice:    slice,
		capacity: capacity,
		maxCells: MaxCells,
		reg:      ops.NewRegistry(),
	}
	// capacity is compared before multiplying so slice*reserve cannot overflow.
	reserve := 1
	if capacity > 0 {
		reserve = min(capacity, MaxCells/slice)
	}
	l.cells = make([]ops.Collection, slice, slice*reserve)
	return l, nil
}

// WorstCaseCapacity is the time extent that holds a stream of n instructions
// even if every one is a full-depth distillation. It saturates at the
// largest int.
func WorstCaseCapacity(n int, topo *topology.Topology) int {
	n, d := max(n, 1), max(topo.Depth(), 1)
	if n > math.MaxInt/d {
		return math.MaxInt
	}
	return n * d
}

// Topology returns the topology the layout places on.
func (l *Layout) Topology() *topology.Topology { return l.topo }

// Registry returns the operation registry.
func (l *Layout) Registry() *ops.Registry { return l.reg }

// Now returns the time cursor.
func (l *Layout) Now() int { return l.now }

// Extent returns the current size of the time axis.
func (l *Layout) Extent() int { return len(l.cells) / l.slice }

// Capacity returns the maximum time extent, 0 when unbounded.
func (l *Layout) Capacity() int { return l.capacity }

// ID returns the dense cell id of c. Ids stay stable as the time axis grows.
func (l *Layout) ID(c Cell) ops.CellID {
	return ops.CellID(c.T*l.slice + c.I*l.cols + c.J)
}

// CellOf returns the coordinate of a cell id.
func (l *Layout) CellOf(id ops.CellID) Cell {
	n := int(id)
	t, rem := n/l.slice, n%l.slice
	return Cell{rem / l.cols, rem % l.cols, t}
}

// Collection returns the occupancy of c. c must lie within the extent.
func (l *Layout) Collection(c Cell) ops.Collection {
	return l.cells[l.ID(c)]
}

// Each calls fn for every cell in id order.
func (l *Layout) Each(fn func(id ops.CellID, c Cell, col ops.Collection)) {
	for i := range l.cells {
		id := ops.CellID(i)
		fn(id, l.CellOf(id), l.cells[i])
	}
}

func (l *Layout) inSpace(c Cell) bool {
	return c.I >= 0 && c.J >= 0 && c.I < l.rows && c.J < l.cols && c.T >= 0
}

// grow appends one empty time slice.
func (l *Layout) grow() error {
	if l.capacity > 0 && l.Extent() >= l.capacity {
		return oserrors.New(oserrors.ErrCodeCapacity,
			"time axis would exceed its capacity of %d slices", l.capacity)
	}
	if len(l.cells) > l.maxCells-l.slice {
		return oserrors.New(oserrors.ErrCodeCapacity,
			"time axis would exceed %d cells at %d slices", l.maxCells, l.Extent())
	}
	l.cells = append(l.cells, make([]ops.Collection, l.slice)...)
	return nil
}

// Step advances the cursor by one slice, growing the time axis when the
// cursor reaches its end.
func (l *Layout) Step() error {
	if l.now+1 >= l.Extent() {
		if err := l.grow(); err != nil {
			return err
		}
	}
	l.now++
	return nil
}

func (l *Layout) check(op Op, offset int) status {
	extent := l.Extent()
	for _, c := range op.Span {
		if c.T+offset >= extent {
			return statusNoTime
		}
		if !l.inSpace(c) {
			return statusNoSpace
		}
		if !l.cells[l.ID(c.shift(offset))].Accepts(op.Kind) {
			return statusBusy
		}
	}
	for _, t := range op.Touches {
		if !l.inSpace(t.Data) || !l.inSpace(t.Meas) {
			return statusNoSpace
		}
		if t.Data.T+offset >= extent || t.Meas.T+offset >= extent {
			return statusNoTime
		}
	}
	return statusOK
}

// Place puts op on the grid at the earliest offset from its built times at
// which every spanned cell is free, and returns that offset. Each collision
// advances the cursor by one slice. The time axis grows as needed.
func (l *Layout) Place(op Op) (int, error) {
	offset := 0
	for {
		switch l.check(op, offset) {
		case statusOK:
			l.commit(op, offset)
			return offset, nil
		case statusNoTime:
			if err := l.grow(); err != nil {
				return 0, err
			}
		case statusBusy:
			if err := l.Step(); err != nil {
				return 0, err
			}
			offset++
		case statusNoSpace:
			return 0, oserrors.New(oserrors.ErrCodeNoSpace,
				"%s operation reaches outside the %dx%d grid", op.Kind, l.rows, l.cols)
		}
	}
}

func (l *Layout) commit(op Op, offset int) {
	rec := ops.Record{
		Kind: op.Kind,
		Span: make([]ops.CellID, len(op.Span)),
	}
	for i, c := range op.Span {
		rec.Span[i] = l.ID(c.shift(offset))
	}
	if len(op.Touches) > 0 {
		rec.Touches = make([]ops.Touch, len(op.Touches))
		for i, t := range op.Touches {
			rec.Touches[i] = ops.Touch{
				Data: l.ID(t.Data.shift(offset)),
				Meas: l.ID(t.Meas.shift(offset)),
			}
		}
	}

	id := l.reg.Add(rec)
	for _, cid := range rec.Span {
		l.cells[cid].Occupy(id, op.Kind)
	}
	for _, t := range rec.Touches {
		l.stamp(t.Data)
		l.stamp(t.Meas)
	}
}

// stamp marks a bare touched cell with the use implied by its topology kind.
func (l *Layout) stamp(cid ops.CellID) {
	if !l.cells[cid].IsPlaceholder() {
		return
	}
	k := useOf(l.topo.KindAt(l.CellOf(cid).Coord()))
	id := l.reg.Add(ops.Record{Kind: k, Span: []ops.CellID{cid}})
	l.cells[cid].Occupy(id, k)
}

func useOf(k topology.Kind) ops.Kind {
	switch k {
	case topology.KindAncilla:
		return ops.UseAncilla
	case topology.KindDistillation:
		return ops.UseDistillation
	default:
		return ops.UseQubit
	}
}

// AdvanceIdle moves the cursor past target. At each slice from the cursor to
// target it places one USE_QUBIT operation covering every active patch not in
// busy and paints those cells with the patch's orientation mask. Idle patches
// keep occupying cells because they still undergo error correction.
func (l *Layout) AdvanceIdle(target int, state *patches.State, busy ...string) error {
	steps := target - l.now + 1
	if steps <= 0 {
		return nil
	}
	idle := state.Except(busy...)
	coords := make([]topology.Coord, len(idle))
	masks := make([]uint8, len(idle))
	for i, name := range idle {
		c, err := l.topo.CoordinateOf(name)
		if err != nil {
			return err
		}
		m, err := state.Mask(name)
		if err != nil {
			return err
		}
		coords[i], masks[i] = c, m
	}

	for range steps {
		if len(coords) > 0 {
			span := make([]Cell, len(coords))
			for i, c := range coords {
				span[i] = At(c, l.now)
			}
			if _, err := l.Place(Op{Kind: ops.UseQubit, Span: span}); err != nil {
				return err
			}
			for i, c := range coords {
				l.cells[l.ID(At(c, l.now))].SetFaces(masks[i])
			}
		}
		if err := l.Step(); err != nil {
			return err
		}
	}
	return nil
}

// PlaceAndAdvance places op and then advances idle patches past its last
// slice, treating busy as not idle.
func (l *Layout) PlaceAndAdvance(op Op, state *patches.State, busy ...string) error {
	delta, err := l.Place(op)
	if err != nil {
		return err
	}
	if m := op.MaxTime(); m >= 0 {
		return l.AdvanceIdle(m+delta, state, busy...)
	}
	return nil
}

// Stats summarizes a layout.
type Stats struct {
	Extent     int              `json:"extent"`
	Now        int              `json:"now"`
	Occupied   int              `json:"occupied_cells"`
	Operations int              `json:"operations"`
	ByKind     map[ops.Kind]int `json:"by_kind"`
}

// Stats counts occupied cells and placed operations.
func (l *Layout) Stats() Stats {
	s := Stats{
		Extent:     l.Extent(),
		Now:        l.now,
		Operations: l.reg.Len(),
		ByKind:     l.reg.CountByKind(),
	}
	for i := range l.cells {
		if !l.cells[i].IsPlaceholder() {
			s.Occupied++
		}
	}
	return s
}
