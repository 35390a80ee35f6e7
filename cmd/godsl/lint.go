package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/structviz/godsl/workspace"
)

type lintOptions struct {
	format string
	quiet  bool
}

func (c *cli) newLintCmd() *cobra.Command {
	opts := lintOptions{}
	cmd := &cobra.Command{
		Use:   "lint <file.dsl>",
		Short: "Parse a workspace and report diagnostics",
		Long: `Lint parses a workspace file and prints every diagnostic the
lexer, parser, include resolver, and reference resolver produced.

Exit codes:
  0  no diagnostics at error severity
  1  diagnostics at error severity
  2  parse aborted (error budget exceeded)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.parseWorkspace(args[0])
			if err != nil {
				return err
			}
			if !opts.quiet {
				if err := printDiagnostics(cmd, res.Diagnostics, opts.format); err != nil {
					return err
				}
			}
			switch {
			case res.HasFatalErrors():
				c.exitCode = exitFatal
			case res.HasErrors():
				c.exitCode = exitError
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.format, "format", "text", "output format: text, json")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "no output, exit code only")
	return cmd
}

func printDiagnostics(cmd *cobra.Command, diags []workspace.Diagnostic, format string) error {
	out := cmd.OutOrStdout()
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(diags)
	case "text":
		for _, d := range diags {
			fmt.Fprintln(out, d.String())
		}
		if len(diags) == 0 {
			fmt.Fprintln(out, "no issues found")
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}
