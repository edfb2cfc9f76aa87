package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asynkron/hiertext/internal/cli"
)

// main runs the hiertext command line.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
