package app

import (
	"context"
	"os/signal"
	"syscall"
)

// Run is the entrypoint used by `lms serve`.
// It returns an error instead of calling os.Exit so defers still run.
func Run(ctx context.Context) error {
	cfg := LoadConfig()
	log := NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := New(ctx, cfg, log)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}
