package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/opensurgery/pkg/export"
)

// Options configures slice rendering.
type Options struct {
	// Rows and Cols fix the grid size. Zero values are inferred from the
	// largest coordinates in the document.
	Rows int
	Cols int

	// Detailed labels each cell with its operation id and decorator marker.
	// When false, cells are unlabeled.
	Detailed bool

	// Title is drawn above the grid when set.
	Title string
}

var markerNames = map[int]string{1: "H", 2: "MX", 3: "MZ"}

// ToDOT converts the nodes of one slice to Graphviz DOT. Cells missing from
// the document are drawn as empty white squares. Links whose endpoints are
// not in the document are skipped.
func ToDOT(doc export.Document, opts Options) string {
	rows, cols := opts.Rows, opts.Cols
	for _, n := range doc.Nodes {
		rows = max(rows, n.FY+1)
		cols = max(cols, n.FX+1)
	}

	cells := make(map[[2]int]export.Node, len(doc.Nodes))
	byID := make(map[int][2]int, len(doc.Nodes))
	for _, n := range doc.Nodes {
		k := [2]int{n.FY, n.FX}
		cells[k] = n
		byID[n.ID] = k
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=square, style=filled, fillcolor=white, fixedsize=true, width=0.6, fontsize=10, label=\"\"];\n")
	buf.WriteString("  ranksep=0.1;\n")
	buf.WriteString("  nodesep=0.1;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n", opts.Title)
	}
	buf.WriteString("\n")

	for i := range rows {
		buf.WriteString("  { rank=same;")
		for j := range cols {
			fmt.Fprintf(&buf, " %s;", nodeName(i, j))
		}
		buf.WriteString(" }\n")
		for j := range cols {
			n, ok := cells[[2]int{i, j}]
			fmt.Fprintf(&buf, "  %s [%s];\n", nodeName(i, j), strings.Join(fmtAttrs(n, ok, opts.Detailed), ", "))
		}
	}

	buf.WriteString("\n")
	for i := range rows {
		for j := range cols {
			if j+1 < cols {
				fmt.Fprintf(&buf, "  %s -> %s [style=invis];\n", nodeName(i, j), nodeName(i, j+1))
			}
			if i+1 < rows {
				fmt.Fprintf(&buf, "  %s -> %s [style=invis];\n", nodeName(i, j), nodeName(i+1, j))
			}
		}
	}

	for _, l := range doc.Links {
		src, ok1 := byID[l.Source]
		dst, ok2 := byID[l.Target]
		if !ok1 || !ok2 {
			continue
		}
		fmt.Fprintf(&buf, "  %s -> %s [color=%q, constraint=false, penwidth=2];\n",
			nodeName(src[0], src[1]), nodeName(dst[0], dst[1]), l.C)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeName(i, j int) string {
	return "c" + strconv.Itoa(i) + "_" + strconv.Itoa(j)
}

func fmtAttrs(n export.Node, occupied, detailed bool) []string {
	if !occupied {
		return []string{"fillcolor=white"}
	}
	attrs := []string{fmt.Sprintf("fillcolor=%q", n.C)}
	if detailed {
		label := "op " + strconv.Itoa(n.Op)
		if m, ok := markerNames[n.D]; ok {
			label += "\n" + m
		}
		attrs = append(attrs, fmt.Sprintf("label=%q", label))
	} else if m, ok := markerNames[n.D]; ok {
		attrs = append(attrs, fmt.Sprintf("label=%q", m))
	}
	if n.D != 0 {
		attrs = append(attrs, "penwidth=3")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales with its
// container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
