package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep cards in sync while their documents change",
	Long: `Watch the documents below the root. Whenever a document settles after
a write, every card taken from it (in any workbench) is synced. Runs until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := app.open(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return app.watch(ctx, cmd)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

// watch syncs cards from every changed document until ctx is done.
func (c *cli) watch(ctx context.Context, cmd *cobra.Command) error {
	svc := c.svc
	svc.OnChange(func(name string) {
		c.logger.Info("workbench updated", "workbench", name)
	})

	changes, err := c.host.Watch(ctx, c.debounce())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (Ctrl+C to stop)\n", c.host.Root())

	for change := range changes {
		if change.Removed {
			c.logger.Info("document removed; its cards are kept", "path", change.Path)
			continue
		}
		report, err := svc.SyncFile(ctx, change.Path)
		if err != nil {
			c.logger.Error("sync failed", "path", change.Path, "error", err)
			continue
		}
		for _, f := range report.Failures {
			c.logger.Warn("card not synced", "title", f.Card.Title, "error", f.Err)
		}
		if report.Total > 0 {
			c.logger.Info("document synced", "path", change.Path, "synced", report.Synced, "total", report.Total)
		}
	}
	return nil
}
