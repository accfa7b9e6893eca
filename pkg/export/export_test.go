package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/opensurgery/pkg/compiler"
	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/instr"
	"github.com/matzehuels/opensurgery/pkg/ops"
	"github.com/matzehuels/opensurgery/pkg/spacetime"
	"github.com/matzehuels/opensurgery/pkg/topology"
)

func injection(t *testing.T) *compiler.Result {
	t.Helper()
	prog, err := instr.ParseString("INIT 4\nNEED A\nMZZ A 0\nMX A\n")
	if err != nil {
		t.Fatal(err)
	}
	res, err := compiler.Compile(context.Background(), prog, compiler.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func nodeAt(doc Document, c spacetime.Cell) (Node, bool) {
	for _, n := range doc.Nodes {
		if n.FY == c.I && n.FX == c.J && n.FZ == c.T {
			return n, true
		}
	}
	return Node{}, false
}

func TestBuild(t *testing.T) {
	res := injection(t)
	doc := Build(res.Layout, Options{})

	if len(doc.Nodes) != res.Stats.Layout.Occupied {
		t.Errorf("nodes = %d, want %d occupied cells", len(doc.Nodes), res.Stats.Layout.Occupied)
	}
	if len(doc.Links) != 2 {
		t.Errorf("links = %d, want 2", len(doc.Links))
	}
	for _, l := range doc.Links {
		if l.C != LinkColor {
			t.Errorf("link color = %q, want %q", l.C, LinkColor)
		}
	}

	tests := []struct {
		cell  spacetime.Cell
		color string
		faces int
		mark  int
	}{
		{spacetime.Cell{I: 0, J: 0, T: 0}, "magenta", 63, 0},
		{spacetime.Cell{I: 4, J: 0, T: 10}, "yellow", 63, 0},
		{spacetime.Cell{I: 5, J: 1, T: 10}, "red", 60, 0},
		{spacetime.Cell{I: 3, J: 0, T: 11}, "blue", 63, 2},
	}
	for _, tt := range tests {
		n, ok := nodeAt(doc, tt.cell)
		if !ok {
			t.Errorf("no node at %v", tt.cell)
			continue
		}
		if n.C != tt.color || n.S != tt.faces || n.D != tt.mark {
			t.Errorf("node at %v = {c:%s s:%d d:%d}, want {c:%s s:%d d:%d}",
				tt.cell, n.C, n.S, n.D, tt.color, tt.faces, tt.mark)
		}
		if n.ID != int(res.Layout.ID(tt.cell)) {
			t.Errorf("node id = %d, want %d", n.ID, res.Layout.ID(tt.cell))
		}
	}
}

func TestBuildDecoratorKeepsOccupantColor(t *testing.T) {
	topo, err := topology.Build(2, topology.DefaultBlock, 0)
	if err != nil {
		t.Fatal(err)
	}
	l, err := spacetime.New(topo, 0)
	if err != nil {
		t.Fatal(err)
	}
	use, _ := l.UsePatch("0")
	if _, err := l.Place(use); err != nil {
		t.Fatal(err)
	}
	h, _ := l.Decorate(ops.Hadamard, "0")
	if _, err := l.Place(h); err != nil {
		t.Fatal(err)
	}

	doc := Build(l, Options{})
	n, ok := nodeAt(doc, spacetime.Cell{I: 5, J: 0, T: 0})
	if !ok {
		t.Fatal("no node for qubit 0")
	}
	if n.C != "red" || n.D != 1 {
		t.Errorf("node = {c:%s d:%d}, want {c:red d:1}", n.C, n.D)
	}
}

func TestBuildOptions(t *testing.T) {
	res := injection(t)

	slice := Build(res.Layout, Options{SliceOnly: true, Slice: 10})
	for _, n := range slice.Nodes {
		if n.FZ != 10 {
			t.Fatalf("node in slice %d, want 10", n.FZ)
		}
	}
	if len(slice.Links) != 2 {
		t.Errorf("links in slice 10 = %d, want 2", len(slice.Links))
	}

	all := Build(res.Layout, Options{IncludeNoop: true})
	want := res.Layout.Extent() * res.Stats.Rows * res.Stats.Cols
	if len(all.Nodes) != want {
		t.Errorf("nodes with noop = %d, want %d", len(all.Nodes), want)
	}
	n, _ := nodeAt(all, spacetime.Cell{I: 4, J: 7, T: 0})
	if n.C != "white" || n.Op != 0 {
		t.Errorf("placeholder node = %+v", n)
	}
}

func TestRoundTrip(t *testing.T) {
	doc := Build(injection(t).Layout, Options{})

	var buf bytes.Buffer
	if err := WriteJSON(doc, &buf); err != nil {
		t.Fatal(err)
	}
	if err := Validate(buf.Bytes()); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	got, err := ReadJSON(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("JSON round trip (-want +got):\n%s", diff)
	}

	buf.Reset()
	if err := WriteCompressed(doc, &buf); err != nil {
		t.Fatal(err)
	}
	got, err = ReadCompressed(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(doc, got); diff != "" {
		t.Errorf("zstd round trip (-want +got):\n%s", diff)
	}
}

func TestFiles(t *testing.T) {
	doc := Build(injection(t).Layout, Options{})
	dir := t.TempDir()
	for _, name := range []string{"layout.json", "layout.json.zst"} {
		path := filepath.Join(dir, name)
		if err := WriteFile(doc, path); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		if len(got.Nodes) != len(doc.Nodes) {
			t.Errorf("%s: nodes = %d, want %d", name, len(got.Nodes), len(doc.Nodes))
		}
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("ReadFile of a missing file should fail")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"empty document", `{"nodes":[],"links":[]}`, true},
		{"node", `{"nodes":[{"id":1,"fy":0,"fx":1,"fz":0,"c":"red","op":3,"s":60}],"links":[]}`, true},
		{"missing links", `{"nodes":[]}`, false},
		{"faces out of range", `{"nodes":[{"id":1,"fy":0,"fx":1,"fz":0,"c":"red","op":3,"s":64}],"links":[]}`, false},
		{"unknown marker", `{"nodes":[{"id":1,"fy":0,"fx":1,"fz":0,"c":"red","op":3,"s":60,"d":7}],"links":[]}`, false},
		{"negative link", `{"nodes":[],"links":[{"source":-1,"target":2,"c":"blue"}]}`, false},
		{"not json", `{"nodes":`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate([]byte(tt.raw))
			if tt.ok && err != nil {
				t.Errorf("Validate error: %v", err)
			}
			if !tt.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				if !oserrors.Is(err, oserrors.ErrCodeInvalidFormat) {
					t.Errorf("code = %s, want INVALID_FORMAT", oserrors.GetCode(err))
				}
			}
		})
	}
}

func TestValidateDocument(t *testing.T) {
	if err := ValidateDocument(Build(injection(t).Layout, Options{})); err != nil {
		t.Errorf("ValidateDocument: %v", err)
	}
	if len(Schema()) == 0 {
		t.Error("Schema() is empty")
	}
}

func TestSelectMatchesBuild(t *testing.T) {
	res := injection(t)
	full := Build(res.Layout, Options{IncludeNoop: true})

	tests := []Options{
		{},
		{IncludeNoop: true},
		{SliceOnly: true, Slice: 0},
		{SliceOnly: true, Slice: 10},
		{SliceOnly: true, Slice: 11, IncludeNoop: true},
	}
	for _, opts := range tests {
		if diff := cmp.Diff(Build(res.Layout, opts), full.Select(opts)); diff != "" {
			t.Errorf("Select(%+v) mismatch (-build +select):\n%s", opts, diff)
		}
	}
	if got := full.Extent(); got != res.Layout.Extent() {
		t.Errorf("Extent() = %d, want %d", got, res.Layout.Extent())
	}
}
