package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/opensurgery/pkg/estimate"
	"github.com/matzehuels/opensurgery/pkg/pipeline"
	"github.com/matzehuels/opensurgery/pkg/store"
)

// workloadFlags are shared by estimate and sweep.
type workloadFlags struct {
	footprint int
	tCount    int
	depth     float64
	errorRate float64
	safety    float64
	cycleTime float64
}

func (w *workloadFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&w.footprint, "footprint", 0, "logical data patches")
	cmd.Flags().IntVar(&w.tCount, "t-count", 0, "number of T gates")
	cmd.Flags().Float64Var(&w.depth, "depth", 0, "circuit depth in logical time units")
	cmd.Flags().Float64Var(&w.errorRate, "error-rate", 0, "physical error rate (default from config)")
	cmd.Flags().Float64Var(&w.safety, "safety", 0, "safety factor (default from config)")
	cmd.Flags().Float64Var(&w.cycleTime, "cycle-time", 0, "surface-code cycle time in ns (default from config)")
}

// params returns the configured substrate with flag overrides.
func (c *CLI) params(w *workloadFlags) estimate.Params {
	p := c.config().Estimator
	if w.errorRate != 0 {
		p.PhysicalErrorRate = w.errorRate
	}
	if w.safety != 0 {
		p.SafetyFactor = w.safety
	}
	if w.cycleTime != 0 {
		p.CycleTimeNs = w.cycleTime
	}
	return p
}

func (w *workloadFlags) experiment() estimate.Experiment {
	return estimate.Experiment{Footprint: w.footprint, TCount: w.tCount, DepthUnits: w.depth}
}

// =============================================================================
// estimate
// =============================================================================

func (c *CLI) estimateCommand() *cobra.Command {
	var (
		w       workloadFlags
		asJSON  bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate physical qubits and time for a workload",
		Example: `  opensurgery estimate --footprint 100 --t-count 1000
  opensurgery estimate --footprint 10 --depth 100 --error-rate 1e-4 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			exp := w.experiment()
			res, hit, err := runner.EstimateWithCacheInfo(ctx, c.params(&w), exp, false)
			if err != nil {
				return err
			}

			input, _ := json.Marshal(exp)
			summary := fmt.Sprintf("footprint %d, t-count %d: %s levels, d=%d, %d qubits",
				exp.Footprint, res.TCount, res.LevelsLabel(), res.Distance, res.PhysicalQubits)
			id := c.record(ctx, store.KindEstimate, "", string(input), summary, res)

			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printEstimate(res, hit)
			if id != "" {
				printDetail("run %s", id)
			}
			return nil
		},
	}

	w.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the estimate as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	return cmd
}

func printEstimate(res estimate.Result, cached bool) {
	status := iconFresh
	if cached {
		status = iconCached
	}
	if res.Infeasible {
		printWarning("Infeasible: more than two distillation levels needed (%s)", status)
		printKeyValue("t-count", strconv.Itoa(res.TCount))
		return
	}

	printSuccess("Estimate %s", StyleDim.Render("("+status+")"))
	printKeyValue("levels", res.LevelsLabel())
	printKeyValue("distance", strconv.Itoa(res.Distance))
	printKeyValue("box distance", strconv.Itoa(res.BoxDistance))
	printKeyValue("physical qubits", strconv.FormatInt(res.PhysicalQubits, 10))
	printKeyValue("data qubits", strconv.FormatInt(res.DataQubits, 10))
	printKeyValue("t-count", strconv.Itoa(res.TCount))
	printKeyValue("rounds", strconv.FormatFloat(res.ExecutionRounds, 'g', 6, 64))
	printKeyValue("time", formatSeconds(res.TimeSeconds))
	if box, err := res.BoxInPatchUnits(); err == nil {
		printKeyValue("box (patches)", fmt.Sprintf("%d x %d x %d", box.X, box.Y, box.T))
	}
}

func formatSeconds(s float64) string {
	switch {
	case s >= 3600:
		return fmt.Sprintf("%.2f h", s/3600)
	case s >= 1:
		return fmt.Sprintf("%.3f s", s)
	case s >= 1e-3:
		return fmt.Sprintf("%.3f ms", s*1e3)
	default:
		return fmt.Sprintf("%.3f µs", s*1e6)
	}
}

// =============================================================================
// sweep
// =============================================================================

func (c *CLI) sweepCommand() *cobra.Command {
	var (
		w      workloadFlags
		opts   pipeline.SweepOptions
		output string
	)

	cmd := &cobra.Command{
		Use:   "sweep <tcount|error-rate|tradeoff|distance-bins>",
		Short: "Sweep the estimator over a parameter range",
		Example: `  opensurgery sweep tcount --footprint 100 --points 10
  opensurgery sweep error-rate --footprint 100 --t-count 1000000 -o rates.json`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{pipeline.SweepTCount, pipeline.SweepErrorRate, pipeline.SweepTradeoff, pipeline.SweepDistance},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts.Kind = args[0]
			opts.Params = c.params(&w)
			opts.Experiment = w.experiment()
			opts.SetDefaults()
			if err := opts.Validate(); err != nil {
				return err
			}

			runner, err := c.newRunner(ctx, true)
			if err != nil {
				return err
			}
			defer runner.Close()

			spinner := newSpinner(ctx, fmt.Sprintf("Sweeping %s over %d points...", opts.Kind, opts.Points)).Start()
			res, err := runner.Sweep(ctx, opts)
			spinner.Stop()
			if err != nil {
				return err
			}

			input, _ := json.Marshal(opts)
			c.record(ctx, store.KindSweep, "", string(input), fmt.Sprintf("%s sweep, %d points", opts.Kind, res.Len()), res)

			if output != "" {
				data, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(output, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				printSuccess("Swept %s over %d points", opts.Kind, res.Len())
				printFile(output)
				return nil
			}
			fmt.Fprintln(stdout, sweepTable(res).Render())
			return nil
		},
	}

	w.register(cmd)
	cmd.Flags().IntVar(&opts.Points, "points", 0, "samples per axis (default 20)")
	cmd.Flags().Float64Var(&opts.MinExp, "min-exp", 0, "lower exponent of log-spaced axes")
	cmd.Flags().Float64Var(&opts.MaxExp, "max-exp", 0, "upper exponent of log-spaced axes")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write points as JSON instead of a table")
	return cmd
}

// sweepTable renders the points of res as a table.
func sweepTable(res *pipeline.SweepResult) *table.Table {
	var (
		headers []string
		rows    [][]string
	)
	qubits := func(r estimate.Result) string {
		if r.Infeasible {
			return "—"
		}
		return strconv.FormatInt(r.PhysicalQubits, 10)
	}

	switch res.Kind {
	case pipeline.SweepTCount:
		headers = []string{"t-count", "levels", "distance", "qubits", "time"}
		for _, p := range res.TCount {
			rows = append(rows, []string{strconv.Itoa(p.TCount), p.Result.LevelsLabel(),
				strconv.Itoa(p.Result.Distance), qubits(p.Result), formatSeconds(p.Result.TimeSeconds)})
		}
	case pipeline.SweepErrorRate:
		headers = []string{"error rate", "levels", "distance", "qubits"}
		for _, p := range res.ErrorRate {
			rows = append(rows, []string{strconv.FormatFloat(p.PhysicalErrorRate, 'e', 2, 64), p.Result.LevelsLabel(),
				strconv.Itoa(p.Result.Distance), qubits(p.Result)})
		}
	case pipeline.SweepTradeoff:
		headers = []string{"space", "volume", "space qubits", "volume qubits", "ratio"}
		for _, p := range res.Tradeoff {
			rows = append(rows, []string{fmtFactor(p.SpaceFactor), fmtFactor(p.VolumeFactor),
				strconv.FormatInt(p.SpaceQubits, 10), strconv.FormatInt(p.VolumeQubits, 10),
				strconv.FormatFloat(p.Ratio, 'f', 3, 64)})
		}
	case pipeline.SweepDistance:
		headers = []string{"factor", "volume", "distance", "qubits", ""}
		for _, b := range res.Distance {
			mark := ""
			if b.Changed {
				mark = "*"
			}
			rows = append(rows, []string{fmtFactor(b.Factor), strconv.FormatFloat(b.Volume, 'g', 4, 64),
				strconv.Itoa(b.Distance), strconv.FormatInt(b.PhysicalQubits, 10), mark})
		}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle()
		})
}

func fmtFactor(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
