package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/matzehuels/opensurgery/pkg/export"
	"github.com/matzehuels/opensurgery/pkg/render/nodelink"
)

// RenderFromCompiled generates output artifacts in the requested formats.
// DOT and SVG always draw the single slice opts.Slice.
func RenderFromCompiled(ctx context.Context, c *Compiled, opts Options) (map[string][]byte, error) {
	if isSliceRequested(opts) && opts.Slice >= c.Slices() {
		return nil, fmt.Errorf("slice %d out of range (layout has %d slices)", opts.Slice, c.Slices())
	}

	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		doc := c.Document.Select(opts.ExportOptions(format))

		var (
			data []byte
			err  error
		)
		switch format {
		case FormatJSON:
			var buf bytes.Buffer
			err = export.WriteJSON(doc, &buf)
			data = buf.Bytes()
		case FormatJSONCompressed:
			var buf bytes.Buffer
			err = export.WriteCompressed(doc, &buf)
			data = buf.Bytes()
		case FormatDOT:
			data = []byte(nodelink.ToDOT(doc, sliceOptions(c, opts)))
		case FormatSVG:
			data, err = nodelink.RenderSVG(ctx, nodelink.ToDOT(doc, sliceOptions(c, opts)))
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func sliceOptions(c *Compiled, opts Options) nodelink.Options {
	return nodelink.Options{
		Rows:     c.Stats.Rows,
		Cols:     c.Stats.Cols,
		Detailed: opts.Detailed,
		Title:    fmt.Sprintf("t = %d / %d", opts.Slice, c.Slices()),
	}
}

func isSliceRequested(opts Options) bool {
	if opts.SliceOnly {
		return true
	}
	for _, f := range opts.Formats {
		if isSliceFormat(f) {
			return true
		}
	}
	return false
}
