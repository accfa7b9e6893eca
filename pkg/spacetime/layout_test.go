package spacetime

import (
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/ops"
	"github.com/matzehuels/opensurgery/pkg/patches"
	"github.com/matzehuels/opensurgery/pkg/topology"
)

// standardTopology is the 6x8 arrangement for four logical qubits:
//
//	DDDDDDDD
//	DDDDDDDD
//	DDDDDDDD
//	DDDDDDDD
//	........
//	QQQ..QQQ
func standardTopology(t *testing.T) *topology.Topology {
	t.Helper()
	topo, err := topology.Build(4, topology.DefaultBlock, 0)
	if err != nil {
		t.Fatalf("Build error: %v", err)
	}
	return topo
}

func newLayout(t *testing.T, topo *topology.Topology, capacity int) *Layout {
	t.Helper()
	l, err := New(topo, capacity)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return l
}

func activeState(t *testing.T, names ...string) *patches.State {
	t.Helper()
	s := patches.New()
	for _, n := range names {
		if err := s.Activate(n, patches.Original); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func kindAt(l *Layout, c Cell) ops.Kind {
	id, _ := l.Collection(c).Primary()
	return l.Registry().Get(id).Kind
}

func TestCellIDRoundTrip(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	for _, c := range []Cell{{0, 0, 0}, {5, 7, 0}, {3, 2, 4}, {4, 0, 12}} {
		if got := l.CellOf(l.ID(c)); got != c {
			t.Errorf("CellOf(ID(%v)) = %v", c, got)
		}
	}
	if got := l.ID(Cell{1, 2, 3}); got != ops.CellID(3*48+1*8+2) {
		t.Errorf("ID((1,2,3)) = %d, want %d", got, 3*48+1*8+2)
	}
}

func TestPlacePostconditions(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	op, err := l.UsePatch("0")
	if err != nil {
		t.Fatal(err)
	}
	before := l.Now()
	delta, err := l.Place(op)
	if err != nil {
		t.Fatalf("Place error: %v", err)
	}
	if delta != 0 {
		t.Errorf("delta = %d, want 0", delta)
	}
	if l.Now() < before {
		t.Errorf("Now() = %d, went back from %d", l.Now(), before)
	}
	c := Cell{5, 0, 0}
	if l.Collection(c).IsPlaceholder() {
		t.Errorf("cell %v still a placeholder after Place", c)
	}
	if got := kindAt(l, c); got != ops.UseQubit {
		t.Errorf("kind at %v = %v, want USE_QUBIT", c, got)
	}
}

func TestPlaceSerializesCollisions(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	span := []Cell{{4, 0, 0}, {4, 1, 0}}

	if _, err := l.Place(Op{Kind: ops.UseAncilla, Span: span}); err != nil {
		t.Fatal(err)
	}
	delta, err := l.Place(Op{Kind: ops.UseAncilla, Span: []Cell{{4, 1, 0}, {4, 2, 0}}})
	if err != nil {
		t.Fatal(err)
	}
	if delta != 1 {
		t.Errorf("delta = %d, want 1", delta)
	}
	if l.Now() != 1 {
		t.Errorf("Now() = %d, want 1", l.Now())
	}
	rec := l.Registry().Get(2)
	for _, cid := range rec.Span {
		if c := l.CellOf(cid); c.T != 1 {
			t.Errorf("second op cell %v, want time 1", c)
		}
	}
}

func TestPlaceGrowsTime(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	if l.Extent() != 1 {
		t.Fatalf("Extent() = %d, want 1", l.Extent())
	}
	delta, err := l.Place(l.Distillation())
	if err != nil {
		t.Fatal(err)
	}
	if delta != 0 || l.Now() != 0 {
		t.Errorf("delta, Now() = %d, %d, want 0, 0", delta, l.Now())
	}
	if l.Extent() != 10 {
		t.Errorf("Extent() = %d, want 10", l.Extent())
	}
	s := l.Stats()
	if s.Occupied != 4*8*10 {
		t.Errorf("Occupied = %d, want %d", s.Occupied, 4*8*10)
	}
	if s.ByKind[ops.UseDistillation] != 1 {
		t.Errorf("ByKind = %v", s.ByKind)
	}
}

func TestPlaceCapacity(t *testing.T) {
	topo := standardTopology(t)
	l := newLayout(t, topo, 5)
	_, err := l.Place(l.Distillation())
	if !oserrors.Is(err, oserrors.ErrCodeCapacity) {
		t.Fatalf("Place error = %v, want CAPACITY_EXCEEDED", err)
	}

	l = newLayout(t, topo, WorstCaseCapacity(1, topo))
	if _, err := l.Place(l.Distillation()); err != nil {
		t.Errorf("Place within worst-case capacity error: %v", err)
	}
	if l.Extent() != l.Capacity() {
		t.Errorf("Extent() = %d, want %d", l.Extent(), l.Capacity())
	}
}

func TestNewLargeCapacity(t *testing.T) {
	topo := standardTopology(t)

	for _, capacity := range []int{1 << 50, math.MaxInt, WorstCaseCapacity(math.MaxInt, topo)} {
		l, err := New(topo, capacity)
		if err != nil {
			t.Fatalf("New(%d) error: %v", capacity, err)
		}
		if l.Capacity() != capacity || l.Extent() != 1 {
			t.Errorf("New(%d) = capacity %d extent %d", capacity, l.Capacity(), l.Extent())
		}
	}

	if _, err := New(topo, -1); !oserrors.Is(err, oserrors.ErrCodeCapacity) {
		t.Errorf("New(-1) error = %v, want CAPACITY_EXCEEDED", err)
	}
}

func TestWorstCaseCapacitySaturates(t *testing.T) {
	topo := standardTopology(t)
	if got := WorstCaseCapacity(3, topo); got != 3*topo.Depth() {
		t.Errorf("WorstCaseCapacity(3) = %d, want %d", got, 3*topo.Depth())
	}
	if got := WorstCaseCapacity(math.MaxInt/2, topo); got != math.MaxInt {
		t.Errorf("WorstCaseCapacity(MaxInt/2) = %d, want MaxInt", got)
	}
}

func TestGrowStopsAtCellLimit(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	l.maxCells = 3 * l.slice

	for range 2 {
		if err := l.Step(); err != nil {
			t.Fatalf("Step() error: %v", err)
		}
	}
	if err := l.Step(); !oserrors.Is(err, oserrors.ErrCodeCapacity) {
		t.Errorf("Step() error = %v, want CAPACITY_EXCEEDED", err)
	}
	if l.Extent() != 3 {
		t.Errorf("Extent() = %d, want 3", l.Extent())
	}
}

func TestPlaceNoSpace(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	tests := []Cell{{6, 0, 0}, {0, 8, 0}, {-1, 0, 0}}
	for _, c := range tests {
		_, err := l.Place(Op{Kind: ops.UseAncilla, Span: []Cell{c}})
		if !oserrors.Is(err, oserrors.ErrCodeNoSpace) {
			t.Errorf("Place(%v) error = %v, want NO_SPACE", c, err)
		}
	}
}

func TestDecoratorSharesCell(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	use, _ := l.UsePatch("1")
	if _, err := l.Place(use); err != nil {
		t.Fatal(err)
	}
	h, err := l.Decorate(ops.Hadamard, "1")
	if err != nil {
		t.Fatal(err)
	}
	delta, err := l.Place(h)
	if err != nil {
		t.Fatal(err)
	}
	if delta != 0 {
		t.Errorf("decorator delta = %d, want 0", delta)
	}
	col := l.Collection(Cell{5, 1, 0})
	if col.Len() != 2 {
		t.Errorf("Len() = %d, want 2", col.Len())
	}

	mz, _ := l.Decorate(ops.MeasureZ, "1")
	delta, err = l.Place(mz)
	if err != nil {
		t.Fatal(err)
	}
	if delta != 1 {
		t.Errorf("second decorator delta = %d, want 1", delta)
	}

	if _, err := l.Decorate(ops.UseQubit, "1"); !oserrors.Is(err, oserrors.ErrCodeInternal) {
		t.Errorf("Decorate(USE_QUBIT) error = %v, want INTERNAL_ERROR", err)
	}
}

func TestRotationStampsTouchedCells(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	op, err := l.Rotation("0")
	if err != nil {
		t.Fatal(err)
	}
	want := []Cell{{4, 0, 0}, {4, 1, 0}, {4, 0, 1}, {4, 1, 1}}
	if len(op.Span) != len(want) {
		t.Fatalf("Span = %v, want %v", op.Span, want)
	}
	for i := range want {
		if op.Span[i] != want[i] {
			t.Errorf("Span[%d] = %v, want %v", i, op.Span[i], want[i])
		}
	}
	if op.Touches[1] != (Touch{Data: Cell{5, 0, 1}, Meas: Cell{4, 0, 1}}) {
		t.Errorf("Touches[1] = %v", op.Touches[1])
	}

	if _, err := l.Place(op); err != nil {
		t.Fatal(err)
	}
	for _, c := range []Cell{{5, 0, 0}, {5, 0, 1}} {
		if got := kindAt(l, c); got != ops.UseQubit {
			t.Errorf("touched data cell %v kind = %v, want USE_QUBIT", c, got)
		}
	}
	if got := kindAt(l, Cell{4, 0, 1}); got != ops.UseAncilla {
		t.Errorf("anchor kind = %v, want USE_ANCILLA", got)
	}
	if op.MaxTime() != 1 {
		t.Errorf("MaxTime() = %d, want 1", op.MaxTime())
	}
}

func TestAdvanceIdle(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	state := activeState(t, "0", "1", "2", "3")
	if err := state.Toggle("2"); err != nil {
		t.Fatal(err)
	}

	if err := l.AdvanceIdle(2, state, "0"); err != nil {
		t.Fatalf("AdvanceIdle error: %v", err)
	}
	if l.Now() != 3 {
		t.Errorf("Now() = %d, want 3", l.Now())
	}
	if l.Registry().Len() != 3 {
		t.Errorf("Registry().Len() = %d, want one op per slice", l.Registry().Len())
	}
	for tt := 0; tt < 3; tt++ {
		if !l.Collection(Cell{5, 0, tt}).IsPlaceholder() {
			t.Errorf("busy patch painted at t=%d", tt)
		}
		if got := l.Collection(Cell{5, 1, tt}).Faces(); got != 60 {
			t.Errorf("faces of patch 1 at t=%d = %d, want 60", tt, got)
		}
		if got := l.Collection(Cell{5, 2, tt}).Faces(); got != 51 {
			t.Errorf("faces of rotated patch 2 at t=%d = %d, want 51", tt, got)
		}
	}

	// a target behind the cursor does nothing
	if err := l.AdvanceIdle(1, state); err != nil {
		t.Fatal(err)
	}
	if l.Now() != 3 {
		t.Errorf("Now() = %d after stale target, want 3", l.Now())
	}
}

func TestRouteMagicState(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	state := activeState(t, "0", "1", "2", "3", topology.MagicState)

	op, err := l.Route([]string{"A", "0"}, SidesOf(SideZ, 2), state)
	if err != nil {
		t.Fatalf("Route error: %v", err)
	}
	wantSpan := []Cell{{3, 1, 0}, {4, 1, 0}, {4, 0, 0}}
	if len(op.Span) != len(wantSpan) {
		t.Fatalf("Span = %v, want %v", op.Span, wantSpan)
	}
	for i := range wantSpan {
		if op.Span[i] != wantSpan[i] {
			t.Errorf("Span[%d] = %v, want %v", i, op.Span[i], wantSpan[i])
		}
	}
	wantTouches := []Touch{
		{Data: Cell{3, 0, 0}, Meas: Cell{3, 1, 0}},
		{Data: Cell{5, 0, 0}, Meas: Cell{4, 0, 0}},
	}
	if len(op.Touches) != 2 || op.Touches[0] != wantTouches[0] || op.Touches[1] != wantTouches[1] {
		t.Errorf("Touches = %v, want %v", op.Touches, wantTouches)
	}
}

func TestRouteErrors(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	state := activeState(t, "0", "1")
	if err := state.Toggle("0"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		names []string
		code  oserrors.Code
	}{
		{"rotated patch without side ancilla", []string{"0", "1"}, oserrors.ErrCodeRouting},
		{"inactive patch", []string{"1", "3"}, oserrors.ErrCodeLiveness},
		{"unknown patch", []string{"1", "9"}, oserrors.ErrCodeLiveness},
		{"single patch", []string{"1"}, oserrors.ErrCodeInvalidInstruction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Route(tt.names, SidesOf(SideX, len(tt.names)), state)
			if !oserrors.Is(err, tt.code) {
				t.Errorf("Route error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRouteSharedAncilla(t *testing.T) {
	g, err := topology.ParseGrid(strings.NewReader(`
DDD
...
Q..
...
Q.B
`))
	if err != nil {
		t.Fatal(err)
	}
	topo, err := topology.New(g, 2)
	if err != nil {
		t.Fatal(err)
	}
	l := newLayout(t, topo, 0)
	state := activeState(t, "0", "1")

	op, err := l.Route([]string{"0", "1"}, SidesOf(SideX, 2), state)
	if err != nil {
		t.Fatalf("Route error: %v", err)
	}
	if len(op.Span) != 0 {
		t.Errorf("Span = %v, want empty", op.Span)
	}
	shared := Cell{3, 0, 0}
	if len(op.Touches) != 2 || op.Touches[0].Meas != shared || op.Touches[1].Meas != shared {
		t.Errorf("Touches = %v, want both measured at %v", op.Touches, shared)
	}

	if _, err := l.Place(op); err != nil {
		t.Fatal(err)
	}
	if got := kindAt(l, shared); got != ops.UseAncilla {
		t.Errorf("shared anchor kind = %v, want USE_ANCILLA", got)
	}
}

func TestSGateMovesLiveDonor(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	state := activeState(t, "0", "1", "2", "3")

	if err := l.SGate("0", state); err != nil {
		t.Fatalf("SGate error: %v", err)
	}
	counts := l.Registry().CountByKind()
	if counts[ops.MovePatch] != 2 || counts[ops.UseSGate] != 1 {
		t.Errorf("CountByKind() = %v, want 2 moves and 1 S gate", counts)
	}
	if l.Now() != 4 {
		t.Errorf("Now() = %d, want 4", l.Now())
	}

	moves := []Cell{{5, 1, 0}, {4, 1, 0}, {4, 2, 0}, {5, 1, 3}, {4, 1, 3}, {4, 2, 3}}
	for _, c := range moves {
		if got := kindAt(l, c); got != ops.MovePatch {
			t.Errorf("kind at %v = %v, want MOVE_PATCH", c, got)
		}
	}
	gate := []Cell{{5, 0, 1}, {5, 1, 1}, {4, 0, 1}, {4, 1, 1}, {5, 0, 2}, {5, 1, 2}, {4, 0, 2}, {4, 1, 2}}
	for _, c := range gate {
		if got := kindAt(l, c); got != ops.UseSGate {
			t.Errorf("kind at %v = %v, want USE_S_GATE", c, got)
		}
	}
	// patch 2 stays idle throughout
	for tt := 0; tt < 4; tt++ {
		if got := kindAt(l, Cell{5, 2, tt}); got != ops.UseQubit {
			t.Errorf("patch 2 at t=%d kind = %v, want USE_QUBIT", tt, got)
		}
	}
}

func TestSGateInactiveDonor(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	state := activeState(t, "0")

	if err := l.SGate("0", state); err != nil {
		t.Fatal(err)
	}
	if n := l.Registry().CountByKind()[ops.MovePatch]; n != 0 {
		t.Errorf("moves = %d, want 0 for an inactive donor", n)
	}
	if l.Now() != 2 {
		t.Errorf("Now() = %d, want 2", l.Now())
	}
}

func TestSGateOnBus(t *testing.T) {
	l := newLayout(t, standardTopology(t), 0)
	state := activeState(t, "0", topology.AncillaBus)

	if err := l.SGate(topology.AncillaBus, state); err != nil {
		t.Fatal(err)
	}
	for _, c := range []Cell{{5, 3, 0}, {4, 3, 0}, {5, 4, 1}, {4, 4, 1}} {
		if got := kindAt(l, c); got != ops.UseSGate {
			t.Errorf("kind at %v = %v, want USE_S_GATE", c, got)
		}
	}
}

func TestCanonicalIgnoresIDs(t *testing.T) {
	build := func(order []string) Canonical {
		l := newLayout(t, standardTopology(t), 0)
		for _, name := range order {
			op, err := l.UsePatch(name)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := l.Place(op); err != nil {
				t.Fatal(err)
			}
		}
		op, err := l.Rotation("0")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := l.Place(op); err != nil {
			t.Fatal(err)
		}
		return l.Canonical()
	}

	a, b := build([]string{"1", "2"}), build([]string{"2", "1"})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Canonical differs with placement order (-a +b):\n%s", diff)
	}
	if len(a.Edges) != 2 {
		t.Errorf("Edges = %d, want 2", len(a.Edges))
	}
	if a.Edges[0].Data != (Cell{5, 0, 0}) || a.Edges[1].Data != (Cell{5, 0, 1}) {
		t.Errorf("Edges = %v", a.Edges)
	}
}

func TestBoundaryDirectionsIgnoreSide(t *testing.T) {
	for _, o := range []patches.Orientation{patches.Original, patches.Rotated} {
		x, z := boundaryDirections(o, SideX), boundaryDirections(o, SideZ)
		if diff := cmp.Diff(x, z); diff != "" {
			t.Errorf("orientation %v: X and Z directions differ (-X +Z):\n%s", o, diff)
		}
	}
	if diff := cmp.Diff(boundaryDirections(patches.Original, SideX), boundaryDirections(patches.Rotated, SideX)); diff == "" {
		t.Error("rotation should change the boundary directions")
	}
}
