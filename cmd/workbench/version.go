package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	workbench "github.com/llcc/org-workbench"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of workbench",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "workbench version %s\n", strings.TrimSpace(workbench.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
