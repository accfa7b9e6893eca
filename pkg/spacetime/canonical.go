package spacetime

import (
	"cmp"
	"slices"

	"github.com/matzehuels/opensurgery/pkg/ops"
)

// CellKinds is the occupancy of one cell without operation ids.
type CellKinds struct {
	Cell  Cell       `json:"cell"`
	Kinds []ops.Kind `json:"kinds"`
	Faces uint8      `json:"faces"`
}

// Edge is one touch between a data cell and its measurement cell.
type Edge struct {
	Data Cell `json:"data"`
	Meas Cell `json:"meas"`
}

// Canonical is a layout projected onto what identifies it up to operation
// renumbering: per-cell kinds and faces plus the set of touch edges.
type Canonical struct {
	Extent int         `json:"extent"`
	Cells  []CellKinds `json:"cells"`
	Edges  []Edge      `json:"edges"`
}

// Canonical returns the projection of l. Two layouts built from the same
// stream on the same topology have equal projections.
func (l *Layout) Canonical() Canonical {
	c := Canonical{Extent: l.Extent()}
	l.Each(func(_ ops.CellID, cell Cell, col ops.Collection) {
		if col.IsPlaceholder() {
			return
		}
		ids := col.IDs()
		kinds := make([]ops.Kind, len(ids))
		for i, id := range ids {
			kinds[i] = l.reg.Get(id).Kind
		}
		c.Cells = append(c.Cells, CellKinds{Cell: cell, Kinds: kinds, Faces: col.Faces()})
	})
	for id := 1; id <= l.reg.Len(); id++ {
		for _, t := range l.reg.Get(ops.ID(id)).Touches {
			c.Edges = append(c.Edges, Edge{Data: l.CellOf(t.Data), Meas: l.CellOf(t.Meas)})
		}
	}
	slices.SortFunc(c.Edges, func(a, b Edge) int {
		if r := compareCells(a.Data, b.Data); r != 0 {
			return r
		}
		return compareCells(a.Meas, b.Meas)
	})
	return c
}

func compareCells(a, b Cell) int {
	return cmp.Or(cmp.Compare(a.T, b.T), cmp.Compare(a.I, b.I), cmp.Compare(a.J, b.J))
}
