package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/opensurgery/pkg/export"
)

// =============================================================================
// SliceViewerModel - Interactive time-slice viewer
// =============================================================================

var (
	cellColors = map[string]lipgloss.Color{
		"white":   colorDim,
		"magenta": lipgloss.Color("170"),
		"red":     colorRed,
		"yellow":  colorYellow,
		"green":   colorGreen,
		"orange":  lipgloss.Color("208"),
		"blue":    colorBlue,
	}
	cellMarkers = map[int]string{1: "H", 2: "X", 3: "Z"}

	viewerDimStyle = lipgloss.NewStyle().Foreground(colorDim)
)

// SliceViewerModel is the bubbletea model for stepping through the time
// slices of a layout.
type SliceViewerModel struct {
	Slice    int
	Extent   int
	Rows     int
	Cols     int
	Detailed bool

	cells map[[3]int]export.Node // (t, row, col) -> occupant
	busy  []int                  // occupied cells per slice
}

// NewSliceViewerModel indexes doc for viewing.
func NewSliceViewerModel(doc export.Document) SliceViewerModel {
	m := SliceViewerModel{
		Extent: doc.Extent(),
		cells:  make(map[[3]int]export.Node, len(doc.Nodes)),
	}
	m.busy = make([]int, m.Extent)
	for _, n := range doc.Nodes {
		m.Rows = max(m.Rows, n.FY+1)
		m.Cols = max(m.Cols, n.FX+1)
		m.cells[[3]int{n.FZ, n.FY, n.FX}] = n
		if n.Op != 0 {
			m.busy[n.FZ]++
		}
	}
	return m
}

func (m SliceViewerModel) Init() tea.Cmd {
	return nil
}

func (m SliceViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "left", "h", "k", "up":
			if m.Slice > 0 {
				m.Slice--
			}
		case "right", "l", "j", "down", " ":
			if m.Slice < m.Extent-1 {
				m.Slice++
			}
		case "pgup":
			m.Slice = max(m.Slice-10, 0)
		case "pgdown":
			m.Slice = max(min(m.Slice+10, m.Extent-1), 0)
		case "home", "g":
			m.Slice = 0
		case "end", "G":
			m.Slice = max(m.Extent-1, 0)
		case "d":
			m.Detailed = !m.Detailed
		}
	}
	return m, nil
}

func (m SliceViewerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("t = %d / %d", m.Slice, m.Extent)))
	if m.Extent > 0 {
		b.WriteString(viewerDimStyle.Render(fmt.Sprintf("   %d busy cells", m.busy[m.Slice])))
	}
	b.WriteString("\n")
	b.WriteString(viewerDimStyle.Render("←/→ step  pgup/pgdn ±10  g/G first/last  d details  q quit"))
	b.WriteString("\n\n")

	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			b.WriteString(m.cell(i, j))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(legend())
	return b.String()
}

// cell renders one grid position as a fixed-width string.
func (m SliceViewerModel) cell(i, j int) string {
	n, ok := m.cells[[3]int{m.Slice, i, j}]
	if !ok || n.Op == 0 {
		return viewerDimStyle.Render(" · ")
	}
	style := lipgloss.NewStyle().Foreground(cellColors[n.C]).Bold(n.D != 0)

	text := " ■ "
	if mark, ok := cellMarkers[n.D]; ok {
		text = " " + mark + " "
	}
	if m.Detailed {
		text = fmt.Sprintf("%3d", n.Op%1000)
	}
	return style.Render(text)
}

func legend() string {
	entries := []struct{ color, name string }{
		{"red", "qubit"}, {"yellow", "ancilla"}, {"magenta", "distillation"},
		{"green", "s-gate"}, {"orange", "move"},
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = lipgloss.NewStyle().Foreground(cellColors[e.color]).Render("■") + " " + viewerDimStyle.Render(e.name)
	}
	return strings.Join(parts, "  ") + viewerDimStyle.Render("   H/X/Z decorators")
}

// =============================================================================
// inspect
// =============================================================================

func (c *CLI) inspectCommand() *cobra.Command {
	var slice int

	cmd := &cobra.Command{
		Use:   "inspect [layout]",
		Short: "Step through the time slices of a layout interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := export.ReadFile(args[0])
			if err != nil {
				return err
			}
			m := NewSliceViewerModel(doc)
			if m.Extent == 0 {
				printWarning("%s has no time slices", args[0])
				return nil
			}
			m.Slice = max(min(slice, m.Extent-1), 0)

			p := tea.NewProgram(m, tea.WithContext(cmd.Context()), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().IntVar(&slice, "slice", 0, "initial time slice")
	return cmd
}
