package compiler

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/opensurgery/pkg/estimate"
	"github.com/matzehuels/opensurgery/pkg/topology"
)

// Options configures a compile.
type Options struct {
	// Block is the distillation block used unless it is sized from an
	// estimate. Zero fields take [topology.DefaultBlock] values.
	Block topology.Block `json:"block"`

	// MaxRows bounds the height of the generated grid.
	MaxRows int `json:"max_rows,omitempty"`

	// SizeFromEstimate derives the distillation block from a resource
	// estimate of the stream when it requests magic states.
	SizeFromEstimate bool `json:"size_from_estimate,omitempty"`

	// Params is the substrate used for sizing estimates.
	Params estimate.Params `json:"params"`

	// Unbounded lets the time axis grow without the worst-case limit.
	Unbounded bool `json:"unbounded,omitempty"`

	// Grid replaces the generated arrangement with a custom map.
	Grid *topology.Grid `json:"-"`

	Logger *log.Logger `json:"-"`
}

// SetDefaults fills zero fields.
func (o *Options) SetDefaults() {
	if o.Block.Rows == 0 {
		o.Block.Rows = topology.DefaultBlock.Rows
	}
	if o.Block.Cols == 0 {
		o.Block.Cols = topology.DefaultBlock.Cols
	}
	if o.Block.Depth == 0 {
		o.Block.Depth = topology.DefaultBlock.Depth
	}
	if o.MaxRows == 0 {
		o.MaxRows = topology.DefaultMaxRows
	}
	o.Params.SetDefaults()
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}
