package main

import (
	"context"

	"github.com/spf13/cobra"
)

// Execute builds the root command tree and runs it against ctx.
func Execute(ctx context.Context) error {
	root := &cobra.Command{
		Use:   "arbengine",
		Short: "Cross-venue arbitrage engine for binary prediction markets",
	}
	root.AddCommand(ingestCmd())
	root.AddCommand(matchCmd())
	root.AddCommand(signalCmd())
	root.AddCommand(executeCmd())
	root.AddCommand(backtestCmd())
	root.AddCommand(serveCmd())
	return root.ExecuteContext(ctx)
}
