package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/structviz/godsl/internal/lexer"
	"github.com/structviz/godsl/internal/report"
)

func (c *cli) newTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <file.dsl>",
		Short: "Dump the token stream (lexer debugging)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tokens, diags := lexer.New(content, c.logger()).Tokenize()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "POS\tKIND\tTEXT")
			for _, tok := range tokens {
				line, col := report.Position(content, tok.Span.Start)
				text := string(content[tok.Span.Start:tok.Span.End])
				if len(text) > 40 {
					text = text[:37] + "..."
				}
				fmt.Fprintf(w, "%d:%d\t%s\t%q\n", line, col, tok.Kind.Name(), text)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			for _, d := range diags {
				line, col := report.Position(content, d.Span.Start)
				fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s at line %d, column %d\n",
					d.Severity, d.Message, line, col)
			}
			if len(diags) > 0 {
				c.exitCode = exitError
			}
			return nil
		},
	}
}
