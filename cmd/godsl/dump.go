package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/structviz/godsl/workspace"
)

func (c *cli) newDumpCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "dump <file.dsl>",
		Short: "Output the resolved workspace as YAML or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.parseWorkspace(args[0])
			if err != nil {
				return err
			}
			for _, d := range res.Diagnostics {
				if d.Severity <= workspace.SeverityError {
					fmt.Fprintln(cmd.ErrOrStderr(), d.String())
				}
			}
			if res.HasFatalErrors() {
				c.exitCode = exitFatal
				return nil
			}
			if res.HasErrors() {
				c.exitCode = exitError
			}
			return dumpWorkspace(cmd.OutOrStdout(), res.Workspace, format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "output format: yaml, json")
	return cmd
}

func dumpWorkspace(out io.Writer, ws *workspace.Workspace, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(ws); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ws)
	default:
		return fmt.Errorf("unknown format %q (want yaml or json)", format)
	}
}
