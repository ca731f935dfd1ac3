// Command diarycal trains and applies confidence calibration profiles.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := execute(ctx, os.Args[1:])
	stop()
	if err != nil {
		// The logger may not be initialized when config loading fails.
		os.Stderr.WriteString("diarycal: " + err.Error() + "\n")
		os.Exit(1)
	}
}
