package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a workbench store in the root directory",
	Long: `Create the .workbench directory and an empty snapshot holding only the
default workbench. An existing snapshot is kept as is.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		if err := svc.Flush(context.Background()); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		root, _ := app.root()
		fmt.Fprintln(cmd.OutOrStdout(), "Initialized workbench store in", root)
		return nil
	},
}

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all workbenches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}

		type entry struct {
			Name    string `json:"name"`
			Cards   int    `json:"cards"`
			Current bool   `json:"current"`
		}
		var entries []entry
		for _, name := range svc.Workbenches() {
			cards, _ := svc.GetCards(name)
			entries = append(entries, entry{Name: name, Cards: len(cards), Current: name == svc.Current()})
		}

		out := cmd.OutOrStdout()
		if listJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(entries)
		}
		for _, e := range entries {
			marker := " "
			if e.Current {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s (%d)\n", marker, e.Name, e.Cards)
		}
		return nil
	},
}

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty workbench",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		if err := svc.CreateWorkbench(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created workbench '%s'.\n", args[0])
		return nil
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch NAME",
	Short: "Make NAME the current workbench",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		if err := svc.SwitchTo(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to workbench '%s'.\n", args[0])
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename OLD NEW",
	Short: "Rename a workbench",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		if err := svc.RenameWorkbench(context.Background(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed workbench '%s' to '%s'.\n", args[0], args[1])
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete NAME",
	Short: "Delete a workbench and its cards",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		if err := svc.DeleteWorkbench(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted workbench '%s'.\n", args[0])
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear [NAME]",
	Short: "Remove every card from a workbench",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := app.open()
		if err != nil {
			return err
		}
		name := app.target(args)
		if err := svc.ClearWorkbench(context.Background(), name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared workbench '%s'.\n", name)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(initCmd, listCmd, createCmd, switchCmd, renameCmd, deleteCmd, clearCmd)
}
