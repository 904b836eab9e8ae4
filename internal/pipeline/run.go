package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mediavault/internal/logging"
	"mediavault/internal/services"
	"mediavault/internal/transfer"
)

// terminalGrace bounds how long an abandoned run waits for a consumer to
// take its terminal status.
const terminalGrace = time.Second

// RunFunc is a blocking pipeline body that emits its statuses through emit
// and returns the terminal one.
type RunFunc func(ctx context.Context, emit transfer.Emitter) transfer.Status

// Start runs fn on its own goroutine. The returned channel delivers the
// status sequence in order and is closed after the terminal status. Progress
// is dropped once ctx is done so an abandoned run never blocks.
func Start(ctx context.Context, fn RunFunc) <-chan transfer.Status {
	out := make(chan transfer.Status, 1)
	go func() {
		defer close(out)
		fn(ctx, func(status transfer.Status) {
			if !status.Terminal() {
				select {
				case out <- status:
				case <-ctx.Done():
				}
				return
			}
			select {
			case out <- status:
				return
			case <-ctx.Done():
			}
			timer := time.NewTimer(terminalGrace)
			defer timer.Stop()
			select {
			case out <- status:
			case <-timer.C:
			}
		})
	}()
	return out
}

// runContext attaches a correlation id and operation name, returning the
// logger to use for the run.
func runContext(ctx context.Context, base *slog.Logger, component, operation string) (context.Context, *slog.Logger) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, uuid.NewString())
	}
	ctx = services.WithOperation(ctx, operation)
	return ctx, logging.WithContext(ctx, logging.NewComponentLogger(base, component))
}

// terminalGuard forwards progress immediately and withholds the terminal
// status so the pipeline can clean up before surfacing it.
type terminalGuard struct {
	emit    transfer.Emitter
	sampler *logging.ProgressSampler
	logger  *slog.Logger
}

func newTerminalGuard(emit transfer.Emitter, logger *slog.Logger) *terminalGuard {
	if emit == nil {
		emit = func(transfer.Status) {}
	}
	return &terminalGuard{emit: emit, sampler: logging.NewProgressSampler(10), logger: logger}
}

// progress is the Emitter handed to transfer.Copy.
func (g *terminalGuard) progress(status transfer.Status) {
	if status.Terminal() {
		return
	}
	if g.sampler.ShouldLog(status.Percent) {
		g.logger.Debug("pipeline progress", logging.Int("percent", status.Percent))
	}
	g.forward(status)
}

func (g *terminalGuard) forward(status transfer.Status) {
	defer func() { _ = recover() }()
	g.emit(status)
}

// recoverPanic converts a panic in the pipeline body into a terminal error.
func recoverPanic(r any) error {
	return fmt.Errorf("%w: pipeline panicked: %v", services.ErrIO, r)
}

// requireDistinct rejects runs whose source and destination resolve to the
// same file. Locking both would deadlock and writing dest would truncate src.
func requireDistinct(component, src, dest string) error {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "resolve source", src, err)
	}
	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "resolve destination", dest, err)
	}
	if srcAbs == destAbs {
		return services.Wrap(services.ErrValidation, component, "validate", "source and destination are the same file: "+srcAbs, nil)
	}
	return nil
}
