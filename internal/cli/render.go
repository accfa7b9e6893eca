package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/opensurgery/pkg/export"
	"github.com/matzehuels/opensurgery/pkg/pipeline"
	"github.com/matzehuels/opensurgery/pkg/render/nodelink"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output   string // output file, or directory with --all
	format   string // dot or svg
	slice    int
	all      bool // draw every slice
	detailed bool
	rows     int // grid size; zero infers it from the document
	cols     int
	validate bool // check the document against the layout schema first
}

func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{format: pipeline.FormatSVG}

	cmd := &cobra.Command{
		Use:   "render [layout]",
		Short: "Draw time slices of an exported layout",
		Long: `Render draws one time slice of a layout written by compile (json or
json.zst) as Graphviz DOT or SVG. With --all every slice is written to the
output directory.`,
		Example: `  opensurgery render circuit.json --slice 10
  opensurgery render circuit.json.zst --all -o slices/ -f dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != pipeline.FormatDOT && opts.format != pipeline.FormatSVG {
				return fmt.Errorf("invalid format: %s (must be 'dot' or 'svg')", opts.format)
			}
			return c.runRender(cmd.Context(), args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (or directory with --all)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: svg (default), dot")
	cmd.Flags().IntVar(&opts.slice, "slice", 0, "time slice to draw")
	cmd.Flags().BoolVar(&opts.all, "all", false, "draw every time slice")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "label cells with operation ids")
	cmd.Flags().IntVar(&opts.rows, "rows", 0, "grid rows (default: inferred)")
	cmd.Flags().IntVar(&opts.cols, "cols", 0, "grid columns (default: inferred)")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "validate the layout against its JSON schema")

	return cmd
}

func (c *CLI) runRender(ctx context.Context, input string, opts *renderOpts) error {
	doc, err := export.ReadFile(input)
	if err != nil {
		return err
	}
	if opts.validate {
		if err := export.ValidateDocument(doc); err != nil {
			return err
		}
		c.Logger.Debug("layout matches schema", "file", input)
	}

	extent := doc.Extent()
	c.Logger.Info("loaded layout", "nodes", len(doc.Nodes), "links", len(doc.Links), "slices", extent)

	slices := []int{opts.slice}
	if opts.all {
		slices = make([]int, extent)
		for t := range slices {
			slices[t] = t
		}
	}

	base := strings.TrimSuffix(strings.TrimSuffix(input, ".zst"), ".json")
	var paths []string
	for _, t := range slices {
		if t < 0 || t >= extent {
			return fmt.Errorf("slice %d out of range (layout has %d slices)", t, extent)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := renderSlice(ctx, doc, t, extent, opts)
		if err != nil {
			return err
		}
		path := slicePath(base, t, opts)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	printSuccess("Rendered %d slice(s) of %s", len(paths), filepath.Base(input))
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

func renderSlice(ctx context.Context, doc export.Document, t, extent int, opts *renderOpts) ([]byte, error) {
	dot := nodelink.ToDOT(doc.Select(export.Options{SliceOnly: true, Slice: t, IncludeNoop: true}), nodelink.Options{
		Rows:     opts.rows,
		Cols:     opts.cols,
		Detailed: opts.detailed,
		Title:    fmt.Sprintf("t = %d / %d", t, extent),
	})
	if opts.format == pipeline.FormatDOT {
		return []byte(dot), nil
	}
	return nodelink.RenderSVG(ctx, dot)
}

// slicePath names the output of slice t. A single slice goes to --output
// when set; --all treats --output as a directory.
func slicePath(base string, t int, opts *renderOpts) string {
	ext := "." + opts.format
	if opts.all {
		dir := opts.output
		if dir == "" {
			dir = base + "_slices"
		}
		return filepath.Join(dir, fmt.Sprintf("t%04d%s", t, ext))
	}
	if opts.output != "" {
		return opts.output
	}
	return fmt.Sprintf("%s_t%d%s", base, t, ext)
}
