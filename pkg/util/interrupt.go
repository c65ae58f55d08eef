package util

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WaitForInterrupt blocks until SIGINT or SIGTERM arrives or ctx is done.
// It returns the signal, or nil when ctx ended the wait.
func WaitForInterrupt(ctx context.Context) os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	return waitForSignal(ctx, sigs)
}

func waitForSignal(ctx context.Context, sigs <-chan os.Signal) os.Signal {
	select {
	case sig := <-sigs:
		return sig
	case <-ctx.Done():
		return nil
	}
}
