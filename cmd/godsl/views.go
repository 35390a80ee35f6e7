package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (c *cli) newViewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "views <file.dsl>",
		Short: "List the views a workspace defines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.parseWorkspace(args[0])
			if err != nil {
				return err
			}
			if res.HasErrors() {
				c.exitCode = exitError
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tKIND\tANCHOR\tELEMENTS\tRELATIONSHIPS")
			for _, v := range res.Workspace.Views {
				anchor := v.AnchorID
				if anchor == "" {
					anchor = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
					v.Key, v.Kind, anchor, len(v.ElementIDs), len(v.Relationships))
			}
			return w.Flush()
		},
	}
}
