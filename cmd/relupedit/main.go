// Command relupedit applies transformation pipelines to release upgrade
// instruction sets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Frost/edeliver/internal/cli"
	"github.com/Frost/edeliver/internal/engine"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	_ = engine.Logger().Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "relupedit: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
