package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/llcc/org-workbench/pkg/core"
)

// parseLocation splits FILE[:LINE]. A missing line means line 1.
func parseLocation(arg string) (core.Location, error) {
	if i := strings.LastIndex(arg, ":"); i > 0 {
		if line, err := strconv.Atoi(arg[i+1:]); err == nil {
			if line < 1 {
				return core.Location{}, fmt.Errorf("line must be positive: %d", line)
			}
			return core.Location{File: arg[:i], Line: line}, nil
		}
	}
	return core.Location{File: arg, Line: 1}, nil
}

// cardAt resolves a 1-based position in the rendered view.
func cardAt(svc *core.Service, name, arg string) (core.Card, error) {
	pos, err := strconv.Atoi(arg)
	if err != nil {
		return core.Card{}, fmt.Errorf("invalid position %q", arg)
	}
	view, err := svc.RenderWorkbench(name)
	if err != nil {
		return core.Card{}, err
	}
	if pos < 1 || pos > len(view.Blocks) {
		return core.Card{}, fmt.Errorf("position %d out of range (workbench '%s' has %d cards)", pos, name, len(view.Blocks))
	}
	return view.Blocks[pos-1].Card, nil
}

var addWithID bool

var addCmd = &cobra.Command{
	Use:   "add FILE[:LINE]",
	Short: "Add the heading at FILE:LINE as a card",
	Long: `Extract the heading that contains LINE and put it at the top of the
workbench. With --id the heading is given a stable identifier first (written
into its property drawer or id marker) so the card can be synced later.

A card whose identifier or title is already on the workbench is not added.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := parseLocation(args[0])
		if err != nil {
			return err
		}
		svc, err := app.open()
		if err != nil {
			return err
		}
		name := app.target(nil)

		card, added, err := svc.AddFromHost(context.Background(), name, loc, addWithID)
		if err != nil {
			return err
		}
		if !added {
			fmt.Fprintf(cmd.OutOrStdout(), "'%s' is already on workbench '%s'.\n", card.Title, name)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added '%s' to workbench '%s'.\n", card.Title, name)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove POS",
	Short: "Remove the card at position POS",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		name := app.target(nil)
		card, err := cardAt(svc, name, args[0])
		if err != nil {
			return err
		}
		if err := svc.ApplyRemoval(context.Background(), name, card); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed '%s' from workbench '%s'.\n", card.Title, name)
		return nil
	},
}

var (
	moveFrom int
	moveTo   int
)

var reorderCmd = &cobra.Command{
	Use:   "reorder [POS...]",
	Short: "Reorder the cards of a workbench",
	Long: `Give the new order as a permutation of the current positions, e.g.
"reorder 3 1 2", or move a single card with --move POS --to POS.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		name := app.target(nil)
		ctx := context.Background()

		if cmd.Flags().Changed("move") {
			if len(args) > 0 {
				return fmt.Errorf("positions and --move are mutually exclusive")
			}
			card, err := cardAt(svc, name, strconv.Itoa(moveFrom))
			if err != nil {
				return err
			}
			if err := svc.MoveCard(ctx, name, card.Key, moveTo-1); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved '%s'.\n", card.Title)
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("expected a new order or --move")
		}
		view, err := svc.RenderWorkbench(name)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(args))
		for _, arg := range args {
			pos, err := strconv.Atoi(arg)
			if err != nil || pos < 1 || pos > len(view.Blocks) {
				return fmt.Errorf("%w: invalid position %q", core.ErrInvalidOrder, arg)
			}
			keys = append(keys, view.Blocks[pos-1].Card.Key)
		}
		if err := svc.ApplyReorder(ctx, name, keys); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Reordered workbench '%s'.\n", name)
		return nil
	},
}

func init() {
	addCmd.Flags().BoolVar(&addWithID, "id", false, "Assign an identifier to the heading so the card can be synced")
	reorderCmd.Flags().IntVar(&moveFrom, "move", 0, "Position of the card to move")
	reorderCmd.Flags().IntVar(&moveTo, "to", 1, "Target position")
	rootCmd.AddCommand(addCmd, removeCmd, reorderCmd)
}
