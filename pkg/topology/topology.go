package topology

import (
	"errors"
	"fmt"
	"strconv"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
)

var (
	// ErrUnknownPatch is returned by [Topology.CoordinateOf] when the name is
	// not mapped to any cell.
	ErrUnknownPatch = errors.New("unknown patch")

	// ErrNotRoutable is returned when a routing endpoint is not an ancilla cell.
	ErrNotRoutable = errors.New("not an ancilla cell")
)

// Reserved patch names.
const (
	MagicState = oserrors.NameMagicState
	AncillaBus = oserrors.NameAncillaBus
)

// DefaultMaxRows bounds the number of grid rows [Arrange] may produce.
const DefaultMaxRows = 256

// Hard limits on generated grids. They keep the cell count of any grid
// below MaxGridRows*MaxGridCols whatever the caller asks for.
const (
	MaxGridRows   = 4096
	MaxGridCols   = 1024
	MaxBlockDepth = 1024
)

// Kind is the immutable role of a grid cell.
type Kind uint8

const (
	// KindQubit cells hold logical data patches.
	KindQubit Kind = iota
	// KindAncilla cells are lanes for lattice-surgery merges.
	KindAncilla
	// KindDistillation cells belong to the magic-state factory.
	KindDistillation
)

// String returns the upper-case kind name.
func (k Kind) String() string {
	switch k {
	case KindQubit:
		return "QUBIT"
	case KindAncilla:
		return "ANCILLA"
	case KindDistillation:
		return "DISTILLATION"
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Coord is a 2D cell coordinate: I is the row, J the column.
type Coord struct {
	I int `json:"i"`
	J int `json:"j"`
}

// Add returns c moved by the step d.
func (c Coord) Add(d Coord) Coord { return Coord{c.I + d.I, c.J + d.J} }

// Sub returns the step from d to c.
func (c Coord) Sub(d Coord) Coord { return Coord{c.I - d.I, c.J - d.J} }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.I, c.J) }

func (c Coord) less(o Coord) bool {
	if c.I != o.I {
		return c.I < o.I
	}
	return c.J < o.J
}

// Neighbor steps. The order of AllDirections is the expansion order used by
// every search in this package.
var (
	Down  = Coord{1, 0}
	Up    = Coord{-1, 0}
	Right = Coord{0, 1}
	Left  = Coord{0, -1}

	AllDirections        = []Coord{Down, Up, Right, Left}
	VerticalDirections   = []Coord{Down, Up}
	HorizontalDirections = []Coord{Right, Left}
)

// Block is the size of the distillation region in patch units, plus the
// number of time slices one distillation occupies.
type Block struct {
	Rows  int `json:"rows" toml:"rows" yaml:"rows"`
	Cols  int `json:"cols" toml:"cols" yaml:"cols"`
	Depth int `json:"depth" toml:"depth" yaml:"depth"`
}

// DefaultBlock is the fixed distillation block used when no estimate sizes it.
var DefaultBlock = Block{Rows: 4, Cols: 8, Depth: 10}

// Region is a rectangle of cells anchored at its top-left corner.
type Region struct {
	Corner Coord
	Rows   int
	Cols   int
}

// Contains reports whether c lies inside the region.
func (r Region) Contains(c Coord) bool {
	return c.I >= r.Corner.I && c.I < r.Corner.I+r.Rows &&
		c.J >= r.Corner.J && c.J < r.Corner.J+r.Cols
}

// Grid is an unnamed cell arrangement. It is the input to [New].
type Grid struct {
	Rows  int
	Cols  int
	Kinds []Kind // row-major, len Rows*Cols
	Bus   Coord  // cell of the "ANCILLA" bus patch
	Depth int    // distillation depth in time slices
}

// At returns the kind of cell c. c must be in bounds.
func (g Grid) At(c Coord) Kind { return g.Kinds[c.I*g.Cols+c.J] }

// Arrange lays out the standard arrangement for n logical qubits around a
// distillation block. The block spans the full width of the grid, so the
// grid has block.Cols columns. Each data line holds block.Cols-2 patches and
// takes two rows.
func Arrange(n int, block Block, maxRows int) (Grid, error) {
	if n < 1 {
		return Grid{}, oserrors.New(oserrors.ErrCodeSizing, "need at least one logical qubit, got %d", n)
	}
	if block.Rows < 1 || block.Cols < 3 {
		return Grid{}, oserrors.New(oserrors.ErrCodeSizing,
			"distillation block %dx%d does not leave room for data patches", block.Rows, block.Cols)
	}
	if block.Depth < 1 {
		return Grid{}, oserrors.New(oserrors.ErrCodeSizing, "distillation depth must be positive, got %d", block.Depth)
	}
	if err := CheckLimits(block, maxRows); err != nil {
		return Grid{}, err
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	cols := block.Cols
	perLine := cols - 2
	lines := n / perLine
	if n%perLine != 0 {
		lines++
	}
	// lines <= maxLines keeps rows within maxRows without multiplying n.
	if maxLines := (maxRows - block.Rows) / 2; lines > maxLines {
		return Grid{}, oserrors.New(oserrors.ErrCodeSizing,
			"%d logical qubits do not fit next to a %dx%d distillation block within %d rows",
			n, block.Rows, block.Cols, maxRows)
	}
	rows := 2*lines + block.Rows

	g := Grid{
		Rows:  rows,
		Cols:  cols,
		Kinds: make([]Kind, rows*cols),
		Bus:   Coord{rows - 1, cols/2 - 1},
		Depth: block.Depth,
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			var k Kind
			switch {
			case i < block.Rows:
				k = KindDistillation
			case (i-block.Rows)%3 == 0:
				k = KindAncilla
			case j == cols/2 || j == cols/2-1:
				k = KindAncilla
			default:
				k = KindQubit
			}
			g.Kinds[i*cols+j] = k
		}
	}
	return g, nil
}

// CheckLimits rejects block dimensions and row bounds past the hard grid
// limits. Zero values mean "use the default" and pass.
func CheckLimits(block Block, maxRows int) error {
	switch {
	case block.Rows < 0 || block.Rows > MaxGridRows:
		return oserrors.New(oserrors.ErrCodeSizing, "distillation block rows %d outside [1, %d]", block.Rows, MaxGridRows)
	case block.Cols < 0 || block.Cols > MaxGridCols:
		return oserrors.New(oserrors.ErrCodeSizing, "distillation block cols %d outside [3, %d]", block.Cols, MaxGridCols)
	case block.Depth < 0 || block.Depth > MaxBlockDepth:
		return oserrors.New(oserrors.ErrCodeSizing, "distillation depth %d outside [1, %d]", block.Depth, MaxBlockDepth)
	case maxRows < 0 || maxRows > MaxGridRows:
		return oserrors.New(oserrors.ErrCodeSizing, "max rows %d outside [1, %d]", maxRows, MaxGridRows)
	}
	return nil
}

// Topology is a grid with named patches and a route cache.
type Topology struct {
	rows, cols int
	kinds      []Kind

	distillation Region
	depth        int

	names   map[string]Coord
	byCoord map[Coord]string // logical qubits only
	qubits  int

	magic      Coord
	magicTouch Coord
	bus        Coord

	routes map[[2]Coord][]Coord
	trees  map[Coord][]int // BFS parent trees by source
}

// Build arranges and names a topology for n logical qubits.
func Build(n int, block Block, maxRows int) (*Topology, error) {
	g, err := Arrange(n, block, maxRows)
	if err != nil {
		return nil, err
	}
	return New(g, n)
}

// New names the first n qubit cells of g (row-major) "0" to "n-1" and
// registers the reserved patches. The grid must contain exactly one
// rectangular distillation region at least two columns wide, and the bus cell
// must be an ancilla cell.
func New(g Grid, n int) (*Topology, error) {
	if g.Rows < 1 || g.Cols < 1 || len(g.Kinds) != g.Rows*g.Cols {
		return nil, oserrors.New(oserrors.ErrCodeSizing, "grid %dx%d has %d cells", g.Rows, g.Cols, len(g.Kinds))
	}
	region, err := distillationRegion(g)
	if err != nil {
		return nil, err
	}
	if region.Cols < 2 {
		return nil, oserrors.New(oserrors.ErrCodeSizing, "distillation region must be at least two columns wide")
	}
	if g.Bus.I < 0 || g.Bus.I >= g.Rows || g.Bus.J < 0 || g.Bus.J >= g.Cols || g.At(g.Bus) != KindAncilla {
		return nil, oserrors.New(oserrors.ErrCodeSizing, "bus patch %s is not on an ancilla cell", g.Bus)
	}
	depth := g.Depth
	if depth < 1 {
		depth = DefaultBlock.Depth
	}
	if depth > MaxBlockDepth {
		return nil, oserrors.New(oserrors.ErrCodeSizing, "distillation depth %d exceeds %d", depth, MaxBlockDepth)
	}

	t := &Topology{
		rows:         g.Rows,
		cols:         g.Cols,
		kinds:        append([]Kind(nil), g.Kinds...),
		distillation: region,
		depth:        depth,
		names:        make(map[string]Coord, n+2),
		byCoord:      make(map[Coord]string, n),
		routes:       make(map[[2]Coord][]Coord),
		trees:        make(map[Coord][]int),
	}

	for i := 0; i < g.Rows && t.qubits < n; i++ {
		for j := 0; j < g.Cols && t.qubits < n; j++ {
			c := Coord{i, j}
			if g.At(c) != KindQubit {
				continue
			}
			name := strconv.Itoa(t.qubits)
			t.names[name] = c
			t.byCoord[c] = name
			t.qubits++
		}
	}
	if t.qubits < n {
		return nil, oserrors.New(oserrors.ErrCodeSizing, "grid has %d qubit cells, %d logical qubits requested", t.qubits, n)
	}

	t.magic = Coord{region.Corner.I + region.Rows - 1, region.Corner.J}
	t.magicTouch = t.magic.Add(Right)
	t.bus = g.Bus
	t.names[MagicState] = t.magic
	t.names[AncillaBus] = t.bus
	if t.routableCells() <= EagerRouteCells {
		t.PrecomputeRoutes()
	}
	return t, nil
}

func distillationRegion(g Grid) (Region, error) {
	first, found := Coord{}, false
	count := 0
	for i := 0; i < g.Rows; i++ {
		for j := 0; j < g.Cols; j++ {
			if g.Kinds[i*g.Cols+j] != KindDistillation {
				continue
			}
			if !found {
				first, found = Coord{i, j}, true
			}
			count++
		}
	}
	if !found {
		return Region{}, oserrors.New(oserrors.ErrCodeSizing, "grid has no distillation region")
	}

	r := Region{Corner: first}
	for j := first.J; j < g.Cols && g.At(Coord{first.I, j}) == KindDistillation; j++ {
		r.Cols++
	}
	for i := first.I; i < g.Rows && g.At(Coord{i, first.J}) == KindDistillation; i++ {
		r.Rows++
	}
	if r.Rows*r.Cols != count {
		return Region{}, oserrors.New(oserrors.ErrCodeSizing, "distillation cells do not form one rectangle")
	}
	for i := r.Corner.I; i < r.Corner.I+r.Rows; i++ {
		for j := r.Corner.J; j < r.Corner.J+r.Cols; j++ {
			if g.At(Coord{i, j}) != KindDistillation {
				return Region{}, oserrors.New(oserrors.ErrCodeSizing, "distillation cells do not form one rectangle")
			}
		}
	}
	return r, nil
}

// Rows returns the number of grid rows (dim_i).
func (t *Topology) Rows() int { return t.rows }

// Cols returns the number of grid columns (dim_j).
func (t *Topology) Cols() int { return t.cols }

// Qubits returns the number of named logical qubits.
func (t *Topology) Qubits() int { return t.qubits }

// Distillation returns the distillation region.
func (t *Topology) Distillation() Region { return t.distillation }

// Depth returns the number of time slices one distillation occupies.
func (t *Topology) Depth() int { return t.depth }

// InBounds reports whether c lies on the grid.
func (t *Topology) InBounds(c Coord) bool {
	return c.I >= 0 && c.J >= 0 && c.I < t.rows && c.J < t.cols
}

// KindAt returns the kind of cell c. c must be in bounds.
func (t *Topology) KindAt(c Coord) Kind { return t.kinds[c.I*t.cols+c.J] }

// CoordinateOf returns the cell of a named patch.
func (t *Topology) CoordinateOf(name string) (Coord, error) {
	c, ok := t.names[name]
	if !ok {
		return Coord{}, oserrors.Wrap(oserrors.ErrCodeLiveness, ErrUnknownPatch, "patch %q", name).WithPatches(name)
	}
	return c, nil
}

// HasName reports whether name is mapped to a cell.
func (t *Topology) HasName(name string) bool {
	_, ok := t.names[name]
	return ok
}

// NameOf returns the logical-qubit name at c, if c is a named qubit cell.
func (t *Topology) NameOf(c Coord) (string, bool) {
	name, ok := t.byCoord[c]
	return name, ok
}

// MagicTouch returns the cell next to "A" through which routes reach it.
func (t *Topology) MagicTouch() Coord { return t.magicTouch }

// NeighborsOfKind returns the in-bounds neighbors of c with kind k, in the
// order of dirs. With no dirs, [AllDirections] is used.
func (t *Topology) NeighborsOfKind(c Coord, k Kind, dirs ...Coord) []Coord {
	if len(dirs) == 0 {
		dirs = AllDirections
	}
	var out []Coord
	for _, d := range dirs {
		n := c.Add(d)
		if t.InBounds(n) && t.KindAt(n) == k {
			out = append(out, n)
		}
	}
	return out
}

// ClosestAncillas returns the ancilla cells adjacent to c in dirs. The cell of
// "A" always reaches the factory through its touch cell, which comes first.
func (t *Topology) ClosestAncillas(c Coord, dirs ...Coord) []Coord {
	var out []Coord
	if c == t.magic {
		out = append(out, t.magicTouch)
	}
	return append(out, t.NeighborsOfKind(c, KindAncilla, dirs...)...)
}

// ClosestQubits returns the qubit cells adjacent to c in dirs.
func (t *Topology) ClosestQubits(c Coord, dirs ...Coord) []Coord {
	return t.NeighborsOfKind(c, KindQubit, dirs...)
}

// Routable reports whether c can be a route endpoint or waypoint.
func (t *Topology) Routable(c Coord) bool {
	if !t.InBounds(c) {
		return false
	}
	return t.KindAt(c) == KindAncilla || c == t.magicTouch
}

// Cells returns every cell of kind k in row-major order.
func (t *Topology) Cells(k Kind) []Coord {
	var out []Coord
	for i := 0; i < t.rows; i++ {
		for j := 0; j < t.cols; j++ {
			if t.kinds[i*t.cols+j] == k {
				out = append(out, Coord{i, j})
			}
		}
	}
	return out
}

// Grid returns a copy of the unnamed arrangement.
func (t *Topology) Grid() Grid {
	return Grid{
		Rows:  t.rows,
		Cols:  t.cols,
		Kinds: append([]Kind(nil), t.kinds...),
		Bus:   t.bus,
		Depth: t.depth,
	}
}

// Names returns the logical-qubit names in index order.
func (t *Topology) Names() []string {
	out := make([]string, t.qubits)
	for i := range out {
		out[i] = strconv.Itoa(i)
	}
	return out
}
