// Package pipeline provides the compile → render pipeline shared by the CLI
// and the HTTP server.
//
// # Architecture
//
// The pipeline has two cached stages:
//
//  1. Compile: parse an instruction stream, size the topology and place every
//     instruction, keeping the full node/link document of the layout
//  2. Render: project that document into the requested formats (JSON,
//     compressed JSON, DOT and SVG of one time slice)
//
// Resource estimates and parameter sweeps run through the same [Runner] so
// that the estimator shares the cache and the observability hooks.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Stream:  "INIT 4\nNEED A\nMZZ A 0\nMX A\n",
//	    Formats: []string{"json", "svg"},
//	    Slice:   10,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/opensurgery/pkg/cache"
	"github.com/matzehuels/opensurgery/pkg/compiler"
	"github.com/matzehuels/opensurgery/pkg/estimate"
	"github.com/matzehuels/opensurgery/pkg/export"
	"github.com/matzehuels/opensurgery/pkg/topology"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// DefaultSizeFromEstimate sizes the distillation block from the stream's own
// resource estimate unless a caller opts out.
const DefaultSizeFromEstimate = true

// Format constants for output formats.
const (
	FormatJSON           = "json"
	FormatJSONCompressed = "json.zst"
	FormatDOT            = "dot"
	FormatSVG            = "svg"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:           true,
	FormatJSONCompressed: true,
	FormatDOT:            true,
	FormatSVG:            true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Compile options
	Stream           string          `json:"stream"`
	Grid             string          `json:"grid,omitempty"` // custom map, see topology.ParseGrid
	Block            topology.Block  `json:"block,omitempty"`
	MaxRows          int             `json:"max_rows,omitempty"`
	SizeFromEstimate *bool           `json:"size_from_estimate,omitempty"`
	Params           estimate.Params `json:"params,omitempty"`
	Unbounded        bool            `json:"unbounded,omitempty"`
	Refresh          bool            `json:"refresh,omitempty"`

	// Render options
	Formats     []string `json:"formats,omitempty"`
	Slice       int      `json:"slice,omitempty"`
	SliceOnly   bool     `json:"slice_only,omitempty"` // restrict JSON output to Slice
	IncludeNoop bool     `json:"include_noop,omitempty"`
	Detailed    bool     `json:"detailed,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	Compiled *Compiled

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	CompileTime time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	CompileHit bool // Whether the compiled layout came from cache
	RenderHit  bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: json, json.zst, dot, svg)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForCompile(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForCompile checks required fields for compiling.
func (o *Options) ValidateForCompile() error {
	if strings.TrimSpace(o.Stream) == "" {
		return fmt.Errorf("stream is required")
	}
	if o.SizeFromEstimate == nil {
		v := DefaultSizeFromEstimate
		o.SizeFromEstimate = &v
	}
	if err := topology.CheckLimits(o.Block, o.MaxRows); err != nil {
		return err
	}
	o.Params.SetDefaults()
	if err := o.Params.Validate(); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if o.Slice < 0 {
		return fmt.Errorf("slice must be non-negative, got %d", o.Slice)
	}
	return ValidateFormats(o.Formats)
}

// CompilerOptions returns the compiler configuration. The custom grid is
// attached by the caller after parsing it.
func (o *Options) CompilerOptions() compiler.Options {
	return compiler.Options{
		Block:            o.Block,
		MaxRows:          o.MaxRows,
		SizeFromEstimate: o.SizeFromEstimate != nil && *o.SizeFromEstimate,
		Params:           o.Params,
		Unbounded:        o.Unbounded,
		Logger:           o.Logger,
	}
}

// CompileKeyOpts returns cache key options for compiling.
func (o *Options) CompileKeyOpts() cache.CompileKeyOpts {
	k := cache.CompileKeyOpts{
		BlockRows:        o.Block.Rows,
		BlockCols:        o.Block.Cols,
		BlockDepth:       o.Block.Depth,
		MaxRows:          o.MaxRows,
		SizeFromEstimate: o.SizeFromEstimate != nil && *o.SizeFromEstimate,
		ErrorRate:        o.Params.PhysicalErrorRate,
		SafetyFactor:     o.Params.SafetyFactor,
		Unbounded:        o.Unbounded,
	}
	if o.Grid != "" {
		k.GridHash = cache.Hash([]byte(o.Grid))
	}
	return k
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:      format,
		Slice:       o.Slice,
		SliceOnly:   o.SliceOnly || isSliceFormat(format),
		IncludeNoop: o.IncludeNoop,
		Detailed:    o.Detailed,
	}
}

// ExportOptions returns the document selection for format.
func (o *Options) ExportOptions(format string) export.Options {
	return export.Options{
		IncludeNoop: o.IncludeNoop,
		SliceOnly:   o.SliceOnly || isSliceFormat(format),
		Slice:       o.Slice,
	}
}

// isSliceFormat reports whether format always draws a single time slice.
func isSliceFormat(format string) bool {
	return format == FormatDOT || format == FormatSVG
}
