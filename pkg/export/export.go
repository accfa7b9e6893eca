package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/matzehuels/opensurgery/pkg/ops"
	"github.com/matzehuels/opensurgery/pkg/spacetime"
)

// LinkColor is the color of every touch link.
const LinkColor = "blue"

// Node is one occupied grid cell.
type Node struct {
	ID int    `json:"id"`
	FY int    `json:"fy"`
	FX int    `json:"fx"`
	FZ int    `json:"fz"`
	C  string `json:"c"`
	Op int    `json:"op"`
	S  int    `json:"s"`
	D  int    `json:"d,omitempty"`
}

// Link is one touch from a data cell to its measurement cell.
type Link struct {
	Source int    `json:"source"`
	Target int    `json:"target"`
	C      string `json:"c"`
}

// Document is a layout in node/link form.
type Document struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

// Options controls [Build].
type Options struct {
	// IncludeNoop also emits placeholder cells, colored white.
	IncludeNoop bool
	// SliceOnly restricts nodes and links to time slice Slice.
	SliceOnly bool
	Slice     int
}

// Build projects l into a document.
func Build(l *spacetime.Layout, opts Options) Document {
	doc := Document{Nodes: []Node{}, Links: []Link{}}
	reg := l.Registry()
	l.Each(func(id ops.CellID, c spacetime.Cell, col ops.Collection) {
		if opts.SliceOnly && c.T != opts.Slice {
			return
		}
		if col.IsPlaceholder() && !opts.IncludeNoop {
			return
		}
		primary, kind := col.Primary()
		tr := kind.Traits()
		n := Node{
			ID: int(id), FY: c.I, FX: c.J, FZ: c.T,
			C: tr.Color, Op: int(primary), S: int(col.Faces()), D: tr.Marker,
		}
		if _, dk, ok := col.Decorator(); ok {
			n.D = dk.Traits().Marker
		}
		doc.Nodes = append(doc.Nodes, n)
	})
	for i := 1; i <= reg.Len(); i++ {
		for _, t := range reg.Get(ops.ID(i)).Touches {
			if opts.SliceOnly && l.CellOf(t.Data).T != opts.Slice {
				continue
			}
			doc.Links = append(doc.Links, Link{Source: int(t.Data), Target: int(t.Meas), C: LinkColor})
		}
	}
	return doc
}

// Select applies opts to a document built with IncludeNoop set, so a cached
// full document can serve every view without the layout.
func (d Document) Select(opts Options) Document {
	out := Document{Nodes: []Node{}, Links: []Link{}}
	kept := make(map[int]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if opts.SliceOnly && n.FZ != opts.Slice {
			continue
		}
		if n.Op == 0 && !opts.IncludeNoop {
			continue
		}
		kept[n.ID] = true
		out.Nodes = append(out.Nodes, n)
	}
	for _, l := range d.Links {
		if kept[l.Source] {
			out.Links = append(out.Links, l)
		}
	}
	return out
}

// Extent returns the number of time slices the document spans.
func (d Document) Extent() int {
	t := 0
	for _, n := range d.Nodes {
		t = max(t, n.FZ+1)
	}
	return t
}

// WriteJSON encodes doc as indented JSON.
func WriteJSON(doc Document, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadJSON decodes a document.
func ReadJSON(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode: %w", err)
	}
	return doc, nil
}

// WriteCompressed writes doc as zstd-compressed JSON.
func WriteCompressed(doc Document, w io.Writer) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := json.NewEncoder(bw).Encode(doc); err != nil {
		enc.Close()
		return fmt.Errorf("encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadCompressed decodes zstd-compressed JSON.
func ReadCompressed(r io.Reader) (Document, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return Document{}, fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()
	return ReadJSON(bufio.NewReaderSize(dec, 256*1024))
}

// IsCompressed reports whether path names a compressed document.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}

// WriteFile writes doc to path, compressed when the path ends in ".zst".
func WriteFile(doc Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if IsCompressed(path) {
		err = WriteCompressed(doc, f)
	} else {
		err = WriteJSON(doc, f)
	}
	if err != nil {
		return err
	}
	return f.Close()
}

// ReadFile reads a document written by [WriteFile].
func ReadFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if IsCompressed(path) {
		return ReadCompressed(f)
	}
	return ReadJSON(f)
}
