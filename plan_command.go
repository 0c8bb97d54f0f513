package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/subrelay/backend/internal/config"
	"github.com/subrelay/backend/internal/subtitle/translate"
)

func newPlanCommand(a *app) *cobra.Command {
	var (
		input  string
		budget int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show how a file would be grouped, without translating it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Planning never calls an engine, so don't demand credentials.
			err := a.setup(func(c *config.Config) {
				c.Translation.Engine = "mock"
				if budget > 0 {
					c.Translation.Budget = budget
				}
			})
			if err != nil {
				return err
			}
			defer a.close()

			content, err := readInput(cmd, input)
			if err != nil {
				return err
			}
			service, err := a.newService(nil, nil)
			if err != nil {
				return err
			}
			plans, err := service.Plan(content, 0)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, err = fmt.Fprintln(out, renderPlan(plans, a.cfg.Translation.Budget, shouldColorize(out)))
			return err
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Input .srt file, - for stdin (required)")
	cmd.Flags().IntVar(&budget, "budget", 0, "Model units per group (overrides MAX_TOKENS_IN_GROUP)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// renderPlan draws one row per group. Groups over budget hold a single segment that
// could not be split; they are highlighted when colour is on.
func renderPlan(plans []translate.GroupPlan, budget int, colorize bool) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Group", "Segments", "IDs", "Units", "Chars"})

	var segments, units, chars int
	for _, p := range plans {
		ids := p.FirstID
		if p.LastID != p.FirstID {
			ids += "-" + p.LastID
		}
		unitCell := strconv.Itoa(p.Units)
		if colorize && p.Units > budget {
			unitCell = text.FgRed.Sprint(unitCell)
		}
		tw.AppendRow(table.Row{p.Index, p.Segments, ids, unitCell, p.Chars})
		segments += p.Segments
		units += p.Units
		chars += p.Chars
	}
	tw.AppendFooter(table.Row{"Total", segments, "", units, chars})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	if colorize {
		tw.Style().Color.Header = text.Colors{text.Bold, text.FgCyan}
		tw.Style().Color.Footer = text.Colors{text.Bold}
	}
	tw.SetCaption(fmt.Sprintf("%d groups, budget %d units", len(plans), budget))
	return tw.Render()
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
