package topology

import (
	"bufio"
	"io"
	"strings"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
)

// Map characters accepted by [ParseGrid].
const (
	CharQubit        = 'Q'
	CharAncilla      = '.'
	CharDistillation = 'D'
	CharBus          = 'B'
)

// ParseGrid reads a text map, one row per line. Blank lines and lines
// starting with '#' are skipped. Exactly one 'B' marks the ancilla cell of the
// "ANCILLA" bus patch. The distillation depth is left at zero, which [New]
// replaces with [DefaultBlock].Depth.
//
//	DDD
//	...
//	Q.Q
//	..B
func ParseGrid(r io.Reader) (Grid, error) {
	var (
		g      Grid
		busSet bool
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if g.Cols == 0 {
			g.Cols = len(line)
		} else if len(line) != g.Cols {
			return Grid{}, oserrors.New(oserrors.ErrCodeInvalidFormat,
				"map row %d has %d cells, want %d", g.Rows, len(line), g.Cols)
		}
		for j, ch := range []byte(line) {
			var k Kind
			switch ch {
			case CharQubit:
				k = KindQubit
			case CharAncilla:
				k = KindAncilla
			case CharDistillation:
				k = KindDistillation
			case CharBus:
				if busSet {
					return Grid{}, oserrors.New(oserrors.ErrCodeInvalidFormat, "map has more than one bus cell")
				}
				k, busSet = KindAncilla, true
				g.Bus = Coord{g.Rows, j}
			default:
				return Grid{}, oserrors.New(oserrors.ErrCodeInvalidFormat,
					"map row %d: unknown cell %q", g.Rows, ch)
			}
			g.Kinds = append(g.Kinds, k)
		}
		g.Rows++
	}
	if err := sc.Err(); err != nil {
		return Grid{}, oserrors.Wrap(oserrors.ErrCodeInvalidFormat, err, "read map")
	}
	if g.Rows == 0 {
		return Grid{}, oserrors.New(oserrors.ErrCodeInvalidFormat, "map is empty")
	}
	if !busSet {
		return Grid{}, oserrors.New(oserrors.ErrCodeInvalidFormat, "map has no bus cell")
	}
	return g, nil
}

// String renders the grid in the [ParseGrid] format.
func (g Grid) String() string {
	var b strings.Builder
	for i := 0; i < g.Rows; i++ {
		for j := 0; j < g.Cols; j++ {
			c := Coord{i, j}
			switch {
			case c == g.Bus:
				b.WriteByte(CharBus)
			case g.At(c) == KindQubit:
				b.WriteByte(CharQubit)
			case g.At(c) == KindAncilla:
				b.WriteByte(CharAncilla)
			default:
				b.WriteByte(CharDistillation)
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
