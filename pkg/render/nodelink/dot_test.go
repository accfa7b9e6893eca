package nodelink

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/matzehuels/opensurgery/pkg/export"
)

func sliceDoc() export.Document {
	return export.Document{
		Nodes: []export.Node{
			{ID: 0, FY: 0, FX: 0, C: "yellow", Op: 4, S: 63},
			{ID: 2, FY: 1, FX: 0, C: "red", Op: 5, S: 60},
			{ID: 3, FY: 1, FX: 1, C: "blue", Op: 6, S: 63, D: 2},
		},
		Links: []export.Link{
			{Source: 2, Target: 0, C: "blue"},
			{Source: 2, Target: 99, C: "blue"},
		},
	}
}

func TestToDOT_Basic(t *testing.T) {
	dot := ToDOT(sliceDoc(), Options{})

	for _, want := range []string{
		"digraph G",
		"{ rank=same; c0_0; c0_1; }",
		`c0_0 [fillcolor="yellow"]`,
		`c1_0 [fillcolor="red"]`,
		"c0_1 [fillcolor=white]",
		`c1_0 -> c0_0 [color="blue", constraint=false`,
		"c0_0 -> c0_1 [style=invis]",
		"c0_0 -> c1_0 [style=invis]",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() output missing %q", want)
		}
	}
	if strings.Count(dot, "constraint=false") != 1 {
		t.Error("links to cells outside the slice should be skipped")
	}
}

func TestToDOT_Markers(t *testing.T) {
	dot := ToDOT(sliceDoc(), Options{})
	if !strings.Contains(dot, `c1_1 [fillcolor="blue", label="MX", penwidth=3]`) {
		t.Errorf("decorated cell not marked:\n%s", dot)
	}

	detailed := ToDOT(sliceDoc(), Options{Detailed: true})
	if !strings.Contains(detailed, `label="op 6\nMX"`) {
		t.Error("detailed output missing operation label")
	}
	if !strings.Contains(detailed, `label="op 5"`) {
		t.Error("detailed output missing plain operation label")
	}
}

func TestToDOT_Size(t *testing.T) {
	dot := ToDOT(sliceDoc(), Options{Rows: 3, Cols: 4, Title: "t = 7"})
	if !strings.Contains(dot, "c2_3 [fillcolor=white]") {
		t.Error("grid should extend to the requested size")
	}
	if !strings.Contains(dot, `label="t = 7"`) {
		t.Error("title missing")
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(sliceDoc(), Options{}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Error("output is not SVG")
	}
	if !bytes.Contains(svg, []byte(`viewBox="0 0 `)) {
		t.Error("viewBox not normalized")
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 10.00 20.00" xmlns="x"><g/></svg>`)
	out := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10.00 20.00" width="10" height="20"><g/></svg>`
	if out != want {
		t.Errorf("normalizeViewBox = %q, want %q", out, want)
	}
	if got := normalizeViewBox([]byte("<svg>")); string(got) != "<svg>" {
		t.Errorf("without viewBox = %q", got)
	}
}
