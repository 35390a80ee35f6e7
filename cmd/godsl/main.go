// Command godsl parses, lints, and exports Structurizr DSL workspaces.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/structviz/godsl"
)

// Exit codes.
const (
	exitOK    = 0 // success
	exitError = 1 // usage error or diagnostics at error severity
	exitFatal = 2 // parse aborted (error budget exceeded)
)

type cli struct {
	verbosity int
	ignore    []string
	maxErrors int

	exitCode int
}

func main() {
	c := &cli{}
	root := c.newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if c.exitCode == exitOK {
			c.exitCode = exitError
		}
	}
	os.Exit(c.exitCode)
}

func (c *cli) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "godsl",
		Short:         "Structurizr DSL parser and workspace tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().CountVarP(&c.verbosity, "verbose", "v",
		"debug logging (-vv for per-token trace output)")
	root.PersistentFlags().StringSliceVar(&c.ignore, "ignore", nil,
		"suppress diagnostic codes (supports globs like \"missing-*\")")
	root.PersistentFlags().IntVar(&c.maxErrors, "max-errors", 0,
		"override the error budget that aborts a parse")

	root.AddCommand(
		c.newLintCmd(),
		c.newDumpCmd(),
		c.newViewsCmd(),
		c.newTokensCmd(),
		newVersionCmd(),
	)
	return root
}

func (c *cli) logger() *slog.Logger {
	if c.verbosity == 0 {
		return nil
	}
	level := slog.LevelDebug
	if c.verbosity >= 2 {
		level = godsl.LevelTrace
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// parseWorkspace parses one DSL file with includes resolved relative
// to its directory.
func (c *cli) parseWorkspace(path string) (*godsl.Result, error) {
	opts := []godsl.ParseOption{
		godsl.WithSource(godsl.Dir(filepath.Dir(path))),
	}
	if logger := c.logger(); logger != nil {
		opts = append(opts, godsl.WithLogger(logger))
	}
	if len(c.ignore) > 0 {
		opts = append(opts, godsl.WithIgnore(c.ignore...))
	}
	if c.maxErrors > 0 {
		opts = append(opts, godsl.WithMaxErrors(c.maxErrors))
	}
	return godsl.ParseFile(path, opts...)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			version := "(devel)"
			if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
				version = info.Main.Version
			}
			fmt.Fprintln(cmd.OutOrStdout(), "godsl", version)
		},
	}
}
