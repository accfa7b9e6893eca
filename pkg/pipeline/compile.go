package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/matzehuels/opensurgery/pkg/cache"
	"github.com/matzehuels/opensurgery/pkg/compiler"
	"github.com/matzehuels/opensurgery/pkg/estimate"
	"github.com/matzehuels/opensurgery/pkg/export"
	"github.com/matzehuels/opensurgery/pkg/instr"
	"github.com/matzehuels/opensurgery/pkg/topology"
)

// Compiled is the cacheable outcome of a compile: the full node/link
// document, placeholders included, with the compile statistics.
type Compiled struct {
	StreamHash string           `json:"stream_hash"`
	Stats      compiler.Stats   `json:"stats"`
	Estimate   *estimate.Result `json:"estimate,omitempty"`
	Document   export.Document  `json:"document"`
}

// Hash identifies the compiled layout for artifact cache keys.
func (c *Compiled) Hash() string {
	data, _ := json.Marshal(c.Document)
	return cache.Hash(data)
}

// Slices returns the number of time slices in the layout.
func (c *Compiled) Slices() int { return c.Stats.Layout.Extent }

// MarshalCompiled serializes c for the cache.
func MarshalCompiled(c *Compiled) ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalCompiled restores a [Compiled] written by [MarshalCompiled].
func UnmarshalCompiled(data []byte) (*Compiled, error) {
	var c Compiled
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// StreamHash normalizes stream to its canonical text and hashes it, so that
// comments and spacing do not split cache entries.
func StreamHash(prog *instr.Program) string {
	return cache.Hash([]byte(prog.String()))
}

// Compile parses and compiles opts.Stream without caching.
func Compile(ctx context.Context, opts Options) (*Compiled, error) {
	prog, err := instr.ParseString(opts.Stream)
	if err != nil {
		return nil, err
	}
	return compileProgram(ctx, prog, opts)
}

func compileProgram(ctx context.Context, prog *instr.Program, opts Options) (*Compiled, error) {
	copts := opts.CompilerOptions()
	if opts.Grid != "" {
		g, err := topology.ParseGrid(strings.NewReader(opts.Grid))
		if err != nil {
			return nil, fmt.Errorf("grid: %w", err)
		}
		copts.Grid = &g
	}

	res, err := compiler.Compile(ctx, prog, copts)
	if err != nil {
		return nil, err
	}
	return &Compiled{
		StreamHash: StreamHash(prog),
		Stats:      res.Stats,
		Estimate:   res.Estimate,
		Document:   export.Build(res.Layout, export.Options{IncludeNoop: true}),
	}, nil
}
