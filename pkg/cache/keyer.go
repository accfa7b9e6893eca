package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Keyer derives cache keys.
type Keyer interface {
	// CompileKey identifies a compiled layout of one instruction stream.
	CompileKey(streamHash string, opts CompileKeyOpts) string

	// EstimateKey identifies one estimator evaluation.
	EstimateKey(opts EstimateKeyOpts) string

	// ArtifactKey identifies a rendered export of a compiled layout.
	ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string
}

// CompileKeyOpts are the compile options that change the resulting layout.
type CompileKeyOpts struct {
	BlockRows        int     `json:"block_rows"`
	BlockCols        int     `json:"block_cols"`
	BlockDepth       int     `json:"block_depth"`
	MaxRows          int     `json:"max_rows"`
	SizeFromEstimate bool    `json:"size_from_estimate"`
	ErrorRate        float64 `json:"error_rate"`
	SafetyFactor     float64 `json:"safety_factor"`
	Unbounded        bool    `json:"unbounded,omitempty"`
	GridHash         string  `json:"grid_hash,omitempty"`
}

// EstimateKeyOpts is the full estimator input.
type EstimateKeyOpts struct {
	Footprint    int     `json:"footprint"`
	TCount       int     `json:"t_count"`
	DepthUnits   float64 `json:"depth_units"`
	ErrorRate    float64 `json:"error_rate"`
	SafetyFactor float64 `json:"safety_factor"`
	CycleTimeNs  float64 `json:"cycle_time_ns"`
}

// ArtifactKeyOpts selects one rendering of a layout.
type ArtifactKeyOpts struct {
	Format      string `json:"format"`
	Slice       int    `json:"slice"`
	SliceOnly   bool   `json:"slice_only"`
	IncludeNoop bool   `json:"include_noop"`
	Detailed    bool   `json:"detailed"`
}

// DefaultKeyer hashes the key inputs behind a readable prefix.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// CompileKey returns "compile:<sha256>".
func (DefaultKeyer) CompileKey(streamHash string, opts CompileKeyOpts) string {
	return digest(KindCompile, streamHash, opts)
}

// EstimateKey returns "estimate:<sha256>".
func (DefaultKeyer) EstimateKey(opts EstimateKeyOpts) string {
	return digest(KindEstimate, opts)
}

// ArtifactKey returns "artifact:<format>:<sha256>".
func (DefaultKeyer) ArtifactKey(layoutHash string, opts ArtifactKeyOpts) string {
	return digest(KindArtifact+":"+opts.Format, layoutHash, opts)
}

// digest returns prefix + ":" + the SHA-256 of the JSON-encoded parts.
// Struct fields encode in declaration order, so equal options give equal
// keys.
func digest(prefix string, parts ...any) string {
	h := sha256.New()
	_ = json.NewEncoder(h).Encode(parts)
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))
}

var _ Keyer = DefaultKeyer{}
