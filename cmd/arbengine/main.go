// Command arbengine runs the cross-venue arbitrage pipeline: ingest,
// match, signal, execute, backtest, serve. Each stage is its own
// subcommand so it can be deployed and scaled independently, the way
// the teacher splits cryptorun's scan/bench/health subcommands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
