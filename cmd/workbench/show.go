package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/llcc/org-workbench/pkg/core"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	posStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	titleStyle  = lipgloss.NewStyle().Bold(true)
	metaStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Faint(true)
	bodyStyle   = lipgloss.NewStyle().PaddingLeft(4)
)

var showPlain bool

var showCmd = &cobra.Command{
	Use:   "show [NAME]",
	Short: "Show a workbench as an outline",
	Long: `Render the workbench as an outline where every card is a top-level
heading followed by its content. --plain prints the outline text exactly as
it would be written to an Org buffer.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		view, err := svc.RenderWorkbench(app.target(args))
		if err != nil {
			return err
		}
		if showPlain {
			fmt.Fprint(cmd.OutOrStdout(), view.Text())
			return nil
		}
		renderStyled(cmd.OutOrStdout(), view)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showPlain, "plain", false, "Print the raw outline text")
	rootCmd.AddCommand(showCmd)
}

func renderStyled(out io.Writer, view core.View) {
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Workbench: %s (%d cards)", view.Workbench, len(view.Blocks))))
	if len(view.Blocks) == 0 {
		fmt.Fprintln(out, metaStyle.Render("  (empty)"))
		return
	}

	for i, b := range view.Blocks {
		card := b.Card
		line := posStyle.Render(fmt.Sprintf("%3d.", i+1)) + " " + titleStyle.Render(card.Title)

		var meta []string
		if card.File != "" {
			meta = append(meta, card.File)
		}
		if card.HasID() {
			meta = append(meta, "id:"+card.ID)
		} else {
			meta = append(meta, "no id")
		}
		line += "  " + metaStyle.Render(strings.Join(meta, " · "))
		fmt.Fprintln(out, line)

		if body := strings.Trim(card.Content, "\n"); body != "" {
			fmt.Fprintln(out, bodyStyle.Render(body))
		}
	}
}
