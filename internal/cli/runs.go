package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	oserrors "github.com/matzehuels/opensurgery/pkg/errors"
	"github.com/matzehuels/opensurgery/pkg/store"
)

func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List and show recorded compile, estimate and sweep runs",
	}
	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())
	return cmd
}

func (c *CLI) runsListCommand() *cobra.Command {
	var (
		kind  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch store.Kind(kind) {
			case "", store.KindCompile, store.KindEstimate, store.KindSweep:
			default:
				return fmt.Errorf("invalid kind: %s (must be 'compile', 'estimate' or 'sweep')", kind)
			}

			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), store.ListOptions{Kind: store.Kind(kind), Limit: limit})
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No runs recorded")
				return nil
			}
			fmt.Fprintln(stdout, runsTable(runs, time.Now()).Render())
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "only runs of this kind: compile, estimate, sweep")
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultLimit, "maximum number of runs")
	return cmd
}

func (c *CLI) runsShowCommand() *cobra.Command {
	var withInput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := oserrors.ValidateRunID(args[0]); err != nil {
				return err
			}
			st, err := c.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			printRun(run, withInput)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withInput, "input", false, "also print the recorded input")
	return cmd
}

func printRun(run *store.Run, withInput bool) {
	printKeyValue("id", run.ID)
	printKeyValue("kind", string(run.Kind))
	printKeyValue("created", run.CreatedAt.Local().Format(time.RFC3339))
	if run.InputHash != "" {
		printKeyValue("input hash", run.InputHash)
	}
	printKeyValue("summary", run.Summary)

	if len(run.Result) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, run.Result, "", "  "); err == nil {
			fmt.Fprintln(stdout, buf.String())
		}
	}
	if withInput && run.Input != "" {
		fmt.Fprintln(stdout, StyleDim.Render("input:"))
		fmt.Fprintln(stdout, run.Input)
	}
}

func runsTable(runs []*store.Run, now time.Time) *table.Table {
	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{r.ID[:8], string(r.Kind), formatAge(now.Sub(r.CreatedAt), r.CreatedAt), r.Summary}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Kind", "Created", "Summary").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 0:
				return lipgloss.NewStyle().Foreground(colorCyan)
			case col == 2:
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		})
}

// formatAge renders a run's age relative to now.
func formatAge(age time.Duration, at time.Time) string {
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	case age < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	default:
		return at.Format("Jan 2, 2006")
	}
}
