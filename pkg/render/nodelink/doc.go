// Package nodelink draws one time slice of a compiled layout as a Graphviz
// grid diagram.
//
// # Overview
//
// Each grid cell becomes a square node filled with the color of the
// operation occupying it, and each touch becomes a blue arrow from the data
// cell to the ancilla measuring it. Rows and columns keep their grid
// positions: rows are ranks, and invisible edges pin the column order.
//
// # Usage
//
// Project a single slice, convert it to DOT, then render to SVG:
//
//	doc := export.Build(layout, export.Options{SliceOnly: true, Slice: t, IncludeNoop: true})
//	dot := nodelink.ToDOT(doc, nodelink.Options{Rows: rows, Cols: cols})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering.
package nodelink
