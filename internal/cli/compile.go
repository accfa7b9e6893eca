package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/opensurgery/pkg/pipeline"
	"github.com/matzehuels/opensurgery/pkg/store"
)

// compileOpts holds the command-line flags for the compile command.
type compileOpts struct {
	output      string // base output path; defaults to the input without extension
	formats     string // comma-separated formats
	grid        string // custom hardware map file
	maxRows     int
	noSizing    bool // use the configured block instead of the estimate
	unbounded   bool
	slice       int
	sliceOnly   bool
	includeNoop bool
	detailed    bool
	noCache     bool
	refresh     bool
}

func (c *CLI) compileCommand() *cobra.Command {
	var opts compileOpts

	cmd := &cobra.Command{
		Use:   "compile [stream]",
		Short: "Compile an instruction stream into a spacetime layout",
		Long: `Compile places every instruction of a lattice-surgery stream on a grid of
patches and writes the resulting layout.

The stream is read from the file argument, or from stdin when the argument
is "-" or missing.`,
		Example: `  opensurgery compile circuit.ls
  opensurgery compile circuit.ls -f json,svg --slice 10
  cat circuit.ls | opensurgery compile -o out/circuit -f json.zst`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return c.runCompile(cmd, input, &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "base output path (extension added per format)")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output format(s): json (default), json.zst, dot, svg")
	cmd.Flags().StringVar(&opts.grid, "grid", "", "custom hardware map (Q qubit, . ancilla, D distillation, B bus)")
	cmd.Flags().IntVar(&opts.maxRows, "max-rows", 0, "maximum rows of the generated grid")
	cmd.Flags().BoolVar(&opts.noSizing, "no-estimate-sizing", false, "use the configured distillation block")
	cmd.Flags().BoolVar(&opts.unbounded, "unbounded", false, "let the time axis grow past the preallocated depth")
	cmd.Flags().IntVar(&opts.slice, "slice", 0, "time slice drawn by dot and svg")
	cmd.Flags().BoolVar(&opts.sliceOnly, "slice-only", false, "restrict JSON output to --slice")
	cmd.Flags().BoolVar(&opts.includeNoop, "include-noop", false, "export idle cells")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label drawn cells with operation ids")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompile even when cached")

	return cmd
}

// pipelineOptions merges the configuration with the flags set on cmd.
func (c *CLI) pipelineOptions(cmd *cobra.Command, stream string, opts *compileOpts) (pipeline.Options, error) {
	cfg := c.config()
	sizing := cfg.Topology.SizeFromEstimate
	if cmd.Flags().Changed("no-estimate-sizing") {
		sizing = !opts.noSizing
	}
	unbounded := !cfg.Scheduler.Bounded
	if cmd.Flags().Changed("unbounded") {
		unbounded = opts.unbounded
	}
	maxRows := cfg.Topology.MaxRows
	if cmd.Flags().Changed("max-rows") {
		maxRows = opts.maxRows
	}

	p := pipeline.Options{
		Stream:           stream,
		Block:            cfg.Topology.Block,
		MaxRows:          maxRows,
		SizeFromEstimate: &sizing,
		Params:           cfg.Estimator,
		Unbounded:        unbounded,
		Refresh:          opts.refresh,
		Formats:          parseFormats(opts.formats),
		Slice:            opts.slice,
		SliceOnly:        opts.sliceOnly,
		IncludeNoop:      opts.includeNoop,
		Detailed:         opts.detailed,
		Logger:           c.Logger,
	}
	if opts.grid != "" {
		data, err := os.ReadFile(opts.grid)
		if err != nil {
			return p, fmt.Errorf("read grid: %w", err)
		}
		p.Grid = string(data)
	}
	return p, p.ValidateAndSetDefaults()
}

func (c *CLI) runCompile(cmd *cobra.Command, input string, opts *compileOpts) error {
	ctx := cmd.Context()

	stream, err := readInput(cmd.InOrStdin(), input)
	if err != nil {
		return err
	}
	popts, err := c.pipelineOptions(cmd, stream, opts)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, "Compiling "+displayName(input)+"...").Start()
	result, err := runner.Execute(ctx, popts)
	spinner.Stop()
	if err != nil {
		return err
	}
	compiled := result.Compiled
	prog.done("compiled stream", "slices", compiled.Slices(), "cached", result.CacheInfo.CompileHit)

	printSuccess("Compiled %s", displayName(input))
	printStats(compiled.Stats, result.CacheInfo.CompileHit)
	if e := compiled.Estimate; e != nil {
		printDetail("block sized from estimate: %s levels, d=%d", e.LevelsLabel(), e.Distance)
	}

	base := outputBase(opts.output, input)
	paths, err := writeArtifacts(base, popts.Formats, result.Artifacts)
	if err != nil {
		return err
	}
	for _, p := range paths {
		printFile(p)
	}

	summary := fmt.Sprintf("%d instructions, %dx%d grid, %d slices",
		compiled.Stats.Instructions, compiled.Stats.Rows, compiled.Stats.Cols, compiled.Slices())
	if id := c.record(ctx, store.KindCompile, compiled.StreamHash, stream, summary, compiled.Stats); id != "" {
		printDetail("run %s", id)
	}

	if doc := firstPath(paths, pipeline.FormatJSON, pipeline.FormatJSONCompressed); doc != "" {
		printNextStep("Inspect the layout", "opensurgery inspect "+doc)
	}
	return nil
}

// readInput reads path, or r when path is "-".
func readInput(r io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", displayName(path), err)
	}
	return string(data), nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return filepath.Base(path)
}

// outputBase derives the base output path. Without --output the input name
// minus its extension is used, or "layout" for stdin.
func outputBase(output, input string) string {
	if output != "" {
		for f := range pipeline.ValidFormats {
			if strings.HasSuffix(output, "."+f) {
				return strings.TrimSuffix(output, "."+f)
			}
		}
		return output
	}
	if input == "-" {
		return "layout"
	}
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// writeArtifacts writes one file per format and returns the paths in
// format order.
func writeArtifacts(base string, formats []string, artifacts map[string][]byte) ([]string, error) {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	paths := make([]string, 0, len(formats))
	for _, f := range formats {
		data, ok := artifacts[f]
		if !ok {
			continue
		}
		path := base + "." + f
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// firstPath returns the first path ending in one of the given formats.
func firstPath(paths []string, formats ...string) string {
	for _, p := range paths {
		for _, f := range formats {
			if strings.HasSuffix(p, "."+f) {
				return p
			}
		}
	}
	return ""
}
