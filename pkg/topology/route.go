package topology

import "slices"

// unreachable marks a cached pair with no path.
var unreachable = []Coord(nil)

// Route returns the shortest path of routable cells from a to b, both ends
// included. A route from a cell to itself is empty. The second result is false
// when either end is not routable or the two ends are disconnected.
//
// The returned slice is shared with the cache and must not be modified.
func (t *Topology) Route(a, b Coord) ([]Coord, bool) {
	if !t.Routable(a) || !t.Routable(b) {
		return nil, false
	}
	if a == b {
		return []Coord{}, true
	}

	key := [2]Coord{a, b}
	if p, ok := t.routes[key]; ok {
		return p, p != nil
	}

	src, dst := a, b
	if b.less(a) {
		src, dst = b, a
	}
	path := t.walk(t.tree(src), src, dst)
	if path == nil {
		t.routes[[2]Coord{src, dst}] = unreachable
		t.routes[[2]Coord{dst, src}] = unreachable
		return nil, false
	}

	rev := slices.Clone(path)
	slices.Reverse(rev)
	t.routes[[2]Coord{src, dst}] = path
	t.routes[[2]Coord{dst, src}] = rev
	return t.routes[key], true
}

// EagerRouteCells is the largest number of routable cells for which [New]
// fills the route cache up front. Larger grids compute routes on first use,
// since the cache holds one path per ordered pair.
const EagerRouteCells = 128

// PrecomputeRoutes fills the cache for every pair of routable cells and
// returns the number of reachable ordered pairs.
func (t *Topology) PrecomputeRoutes() int {
	cells := t.routable()
	n := 0
	for _, a := range cells {
		for _, b := range cells {
			if a == b {
				continue
			}
			if _, ok := t.Route(a, b); ok {
				n++
			}
		}
	}
	return n
}

// RoutesCached returns the number of ordered pairs in the route cache.
func (t *Topology) RoutesCached() int { return len(t.routes) }

func (t *Topology) routable() []Coord {
	cells := t.Cells(KindAncilla)
	if !t.KindIs(t.magicTouch, KindAncilla) {
		cells = append(cells, t.magicTouch)
	}
	return cells
}

func (t *Topology) routableCells() int { return len(t.routable()) }

// KindIs reports whether c is in bounds and has kind k.
func (t *Topology) KindIs(c Coord, k Kind) bool {
	return t.InBounds(c) && t.KindAt(c) == k
}

// tree returns breadth-first parent links from src over routable cells.
// parents[idx] is -1 for unvisited cells.
func (t *Topology) tree(src Coord) []int {
	if p, ok := t.trees[src]; ok {
		return p
	}
	parents := make([]int, t.rows*t.cols)
	for i := range parents {
		parents[i] = -1
	}
	start := t.index(src)
	parents[start] = start

	queue := []Coord{src}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		for _, d := range AllDirections {
			n := c.Add(d)
			if !t.Routable(n) {
				continue
			}
			idx := t.index(n)
			if parents[idx] != -1 {
				continue
			}
			parents[idx] = t.index(c)
			queue = append(queue, n)
		}
	}
	t.trees[src] = parents
	return parents
}

func (t *Topology) walk(parents []int, src, dst Coord) []Coord {
	idx := t.index(dst)
	if parents[idx] == -1 {
		return nil
	}
	start := t.index(src)
	var path []Coord
	for {
		path = append(path, t.coord(idx))
		if idx == start {
			break
		}
		idx = parents[idx]
	}
	slices.Reverse(path)
	return path
}

func (t *Topology) index(c Coord) int { return c.I*t.cols + c.J }

func (t *Topology) coord(idx int) Coord { return Coord{idx / t.cols, idx % t.cols} }
