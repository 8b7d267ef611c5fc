package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/wayfinder-cli/cmd"
)

func main() {
	// Interrupts cancel the context so an in-flight run shuts the browser
	// down cleanly and still persists its record.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
