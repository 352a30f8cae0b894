package main

import (
	"encoding/json"
	"strings"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"

	workbench "github.com/llcc/org-workbench"
)

// componentStatus is one entry of the status report.
type componentStatus struct {
	Type  string `json:"type"`
	State any    `json:"state"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print the internal state of the store as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := app.open(); err != nil {
			return err
		}

		report := struct {
			Version    string            `json:"version"`
			Components []componentStatus `json:"components"`
		}{
			Version: strings.TrimSpace(workbench.Version),
		}
		for _, v := range []any{app.svc, app.repo, app.host} {
			if s := describe(v); s != nil {
				report.Components = append(report.Components, *s)
			}
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func describe(v any) *componentStatus {
	intro, ok := v.(introspection.Introspectable)
	if !ok {
		return nil
	}
	s := &componentStatus{State: intro.State()}
	if comp, ok := v.(introspection.Component); ok {
		s.Type = comp.ComponentType()
	}
	return s
}
