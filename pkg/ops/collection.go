package ops

const allFaces uint8 = 63

// Collection is the occupancy of one grid cell: the placeholder alone, one
// occupant, or one non-decorator occupant with a single decorator attached.
// It also carries the cell's exposed-faces mask.
//
// The zero value is a placeholder cell with every face exposed.
type Collection struct {
	ids    [2]ID
	kinds  [2]Kind
	hidden uint8
}

// IsPlaceholder reports whether the cell holds nothing but the placeholder.
func (c Collection) IsPlaceholder() bool { return c.ids[0] == Placeholder }

// Len returns the number of operation ids in the cell, counting the
// placeholder as one.
func (c Collection) Len() int {
	if c.ids[1] != Placeholder {
		return 2
	}
	return 1
}

// IDs returns the operation ids in the cell, in placement order.
func (c Collection) IDs() []ID {
	if c.ids[1] != Placeholder {
		return []ID{c.ids[0], c.ids[1]}
	}
	return []ID{c.ids[0]}
}

// Primary returns the first occupant and its kind.
func (c Collection) Primary() (ID, Kind) { return c.ids[0], c.kinds[0] }

// Decorator returns the attached decorator, if any.
func (c Collection) Decorator() (ID, Kind, bool) {
	return c.ids[1], c.kinds[1], c.ids[1] != Placeholder
}

// Accepts reports whether an operation of kind k may be placed on the cell.
// Any kind may take a placeholder cell; a decorator may also join a cell
// whose only occupant is a non-decorator.
func (c Collection) Accepts(k Kind) bool {
	if c.IsPlaceholder() {
		return true
	}
	return k.IsDecorator() && c.ids[1] == Placeholder && !c.kinds[0].IsDecorator()
}

// Occupy records id on the cell. It replaces the placeholder or attaches a
// decorator. It returns false, leaving the cell unchanged, exactly when
// [Collection.Accepts] returns false for k.
func (c *Collection) Occupy(id ID, k Kind) bool {
	switch {
	case c.IsPlaceholder():
		c.ids[0], c.kinds[0] = id, k
	case c.Accepts(k):
		c.ids[1], c.kinds[1] = id, k
	default:
		return false
	}
	return true
}

// Faces returns the 6-bit exposed-faces mask.
func (c Collection) Faces() uint8 { return allFaces &^ c.hidden }

// SetFaces sets the exposed-faces mask.
func (c *Collection) SetFaces(mask uint8) { c.hidden = allFaces &^ (mask & allFaces) }
