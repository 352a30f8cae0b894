package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llcc/org-workbench/pkg/diff"
)

var (
	syncDiff   bool
	syncDryRun bool
)

var syncCmd = &cobra.Command{
	Use:   "sync POS",
	Short: "Refresh the card at position POS from its source heading",
	Long: `Look the card's identifier up in the documents below the root and
replace the card with a fresh copy of the heading. The card keeps its
position. Cards without an identifier cannot be synced.`,
	Args: cobra.ExactArgs(1),
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
		ctx := context.Background()
		out := cmd.OutOrStdout()

		if syncDiff || syncDryRun {
			stored, fresh, err := svc.PreviewSync(ctx, name, card.Key)
			if err != nil {
				return err
			}
			patch, err := diff.Cards(stored, fresh)
			if err != nil {
				return err
			}
			if patch == "" {
				fmt.Fprintf(out, "'%s' is up to date.\n", stored.Title)
				return nil
			}
			fmt.Fprint(out, patch)
			if syncDryRun {
				return nil
			}
		}

		fresh, err := svc.SyncCard(ctx, name, card.Key)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Synced '%s'.\n", fresh.Title)
		return nil
	},
}

var syncAllCmd = &cobra.Command{
	Use:   "sync-all [NAME]",
	Short: "Refresh every card with an identifier",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		name := app.target(args)
		report, err := svc.SyncAll(context.Background(), name)
		if err != nil {
			return err
		}
		for _, f := range report.Failures {
			app.logger.Warn("card not synced", "title", f.Card.Title, "error", f.Err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Synced %d of %d cards in workbench '%s'.\n", report.Synced, report.Total, name)
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncDiff, "diff", false, "Print a unified diff of the change before applying it")
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Print the diff without applying it")
	rootCmd.AddCommand(syncCmd, syncAllCmd)
}
