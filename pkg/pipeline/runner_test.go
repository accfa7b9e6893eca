package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/opensurgery/pkg/cache"
	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/estimate"
	"github.com/matzehuels/opensurgery/pkg/export"
)

const injectionStream = "INIT 4\nNEED A\nMZZ A 0\nMX A\n"

// memCache is an in-memory Cache that counts writes.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	c.sets++
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

var _ cache.Cache = (*memCache)(nil)

func fixedOptions(stream string) Options {
	off := false
	return Options{Stream: stream, SizeFromEstimate: &off}
}

func TestExecuteCaches(t *testing.T) {
	ctx := context.Background()
	mc := newMemCache()
	r := NewRunner(mc, nil, nil)

	opts := fixedOptions(injectionStream)
	opts.Formats = []string{FormatJSON, FormatDOT}
	opts.Slice = 10

	first, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.CacheInfo.CompileHit || first.CacheInfo.RenderHit {
		t.Errorf("first run CacheInfo = %+v, want misses", first.CacheInfo)
	}
	if got := first.Compiled.Slices(); got != 13 {
		t.Errorf("Slices() = %d, want 13", got)
	}
	if first.Compiled.Stats.Rows != 6 || first.Compiled.Stats.Cols != 8 {
		t.Errorf("grid = %dx%d, want 6x8", first.Compiled.Stats.Rows, first.Compiled.Stats.Cols)
	}

	// Comments and spacing do not change the compile key.
	opts.Stream = "# injection\nINIT 4\n\nNEED   A\nMZZ A 0\nMX A # consume\n"
	second, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !second.CacheInfo.CompileHit || !second.CacheInfo.RenderHit {
		t.Errorf("second run CacheInfo = %+v, want hits", second.CacheInfo)
	}
	if !bytes.Equal(first.Artifacts[FormatDOT], second.Artifacts[FormatDOT]) {
		t.Error("cached DOT differs from rendered DOT")
	}

	opts.Refresh = true
	third, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if third.CacheInfo.CompileHit {
		t.Error("Refresh should bypass the compile cache")
	}
}

func TestRenderFormats(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil)

	opts := fixedOptions(injectionStream)
	c, err := r.Compile(ctx, opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	opts.Formats = []string{FormatJSON, FormatJSONCompressed, FormatDOT, FormatSVG}
	opts.Slice = 10
	artifacts, err := r.Render(ctx, c, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	doc, err := export.ReadJSON(bytes.NewReader(artifacts[FormatJSON]))
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if err := export.ValidateDocument(doc); err != nil {
		t.Errorf("json artifact does not validate: %v", err)
	}
	if got, want := len(doc.Links), 2; got != want {
		t.Errorf("links = %d, want %d", got, want)
	}

	zdoc, err := export.ReadCompressed(bytes.NewReader(artifacts[FormatJSONCompressed]))
	if err != nil {
		t.Fatalf("ReadCompressed: %v", err)
	}
	if len(zdoc.Nodes) != len(doc.Nodes) {
		t.Errorf("compressed nodes = %d, want %d", len(zdoc.Nodes), len(doc.Nodes))
	}

	dot := string(artifacts[FormatDOT])
	if !strings.Contains(dot, `label="t = 10 / 13"`) {
		t.Errorf("DOT missing slice title:\n%s", dot)
	}
	if !strings.Contains(string(artifacts[FormatSVG]), "<svg") {
		t.Error("SVG artifact missing <svg> element")
	}
}

func TestRenderSliceOutOfRange(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil)

	opts := fixedOptions(injectionStream)
	c, err := r.Compile(ctx, opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	opts.Formats = []string{FormatDOT}
	opts.Slice = 13
	if _, err := r.Render(ctx, c, opts); err == nil {
		t.Error("expected error for slice past the layout")
	}

	// Full-document formats ignore the slice.
	opts.Formats = []string{FormatJSON}
	if _, err := r.Render(ctx, c, opts); err != nil {
		t.Errorf("Render json: %v", err)
	}
}

func TestCompileErrors(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil)

	tests := []struct {
		name   string
		stream string
		grid   string
		code   oserrors.Code
	}{
		{"unknown opcode", "INIT 2\nCNOT 0 1\n", "", oserrors.ErrCodeInvalidInstruction},
		{"liveness", "INIT 2\nMX A\n", "", oserrors.ErrCodeLiveness},
		{"bad grid", "INIT 1\n", "QX\n", oserrors.ErrCodeInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := fixedOptions(tt.stream)
			opts.Grid = tt.grid
			_, err := r.Compile(ctx, opts)
			if got := oserrors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestCompileCustomGrid(t *testing.T) {
	opts := fixedOptions("INIT 2\nMXX 0 1\n")
	opts.Grid = "DDD\n...\nQ..\n...\nQ.B\n"
	c, err := NewRunner(nil, nil, nil).Compile(context.Background(), opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if c.Stats.Rows != 5 || c.Stats.Cols != 3 {
		t.Errorf("grid = %dx%d, want 5x3", c.Stats.Rows, c.Stats.Cols)
	}
}

func TestEstimateCaches(t *testing.T) {
	ctx := context.Background()
	mc := newMemCache()
	r := NewRunner(mc, nil, nil)
	exp := estimate.Experiment{Footprint: 100, TCount: 1000}

	first, hit, err := r.EstimateWithCacheInfo(ctx, estimate.Params{}, exp, false)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if hit {
		t.Error("first estimate should miss")
	}
	second, hit, err := r.EstimateWithCacheInfo(ctx, estimate.Params{}, exp, false)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !hit {
		t.Error("second estimate should hit")
	}
	if first != second {
		t.Errorf("cached result = %+v, want %+v", second, first)
	}
	if mc.sets != 1 {
		t.Errorf("cache writes = %d, want 1", mc.sets)
	}
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, nil, nil)

	tests := []struct {
		kind string
		want int
	}{
		{SweepTCount, 5},
		{SweepErrorRate, 5},
		{SweepTradeoff, 25}, // 5 points around 1 on both axes
		{SweepDistance, 5},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			res, err := r.Sweep(ctx, SweepOptions{
				Kind:       tt.kind,
				Points:     5,
				Experiment: estimate.Experiment{Footprint: 100, TCount: 1000},
			})
			if err != nil {
				t.Fatalf("Sweep: %v", err)
			}
			if got := res.Len(); got != tt.want {
				t.Errorf("Len() = %d, want %d", got, tt.want)
			}
		})
	}

	if _, err := r.Sweep(ctx, SweepOptions{Kind: "bogus"}); err == nil {
		t.Error("expected error for unknown sweep kind")
	}
}
