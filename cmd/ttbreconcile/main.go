package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"WhiskeyIndex/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		logger := root.logger
		if logger == nil {
			logger = logging.New("info")
		}
		logger.Error("ttbreconcile failed", "error", err)
		stop()
		os.Exit(1)
	}
}
