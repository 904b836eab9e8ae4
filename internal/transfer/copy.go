package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"mediavault/internal/services"
)

const (
	// DefaultNetworkChunkSize is used for network sources.
	DefaultNetworkChunkSize = 1024 * 1024
	// DefaultLocalChunkSize is used for local re-encryption.
	DefaultLocalChunkSize = 4096
)

// Transform rewrites a chunk in place before it reaches the sink.
type Transform interface {
	Apply(chunk []byte) error
}

// Emitter receives statuses in order. Panics raised by an Emitter are
// swallowed.
type Emitter func(Status)

// Options configures a Copy run.
type Options struct {
	// ChunkSize defaults to DefaultNetworkChunkSize when <= 0.
	ChunkSize int
	// Transform is optional.
	Transform Transform
	// TotalSize enables progress reporting when > 0.
	TotalSize int64
}

// Copy streams src into dst chunk by chunk. When TotalSize is known a
// Progress status follows every chunk written; percentages may repeat but
// never decrease. The terminal status is emitted last and also returned.
func Copy(ctx context.Context, src io.Reader, dst io.Writer, opts Options, emit Emitter) (final Status) {
	send := safeEmitter(emit)
	var written int64

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: copy panicked: %v", services.ErrIO, r)
			final = Failure(err.Error(), err)
			final.Written = written
			send(final)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultNetworkChunkSize
	}

	fail := func(err error) Status {
		status := Failure("", err)
		status.Written = written
		send(status)
		return status
	}

	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return fail(services.Wrap(services.ErrCanceled, "transfer", "copy", "canceled", err))
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			if opts.Transform != nil {
				if err := opts.Transform.Apply(chunk); err != nil {
					return fail(services.Wrap(services.ErrCipher, "transfer", "transform chunk", "", err))
				}
			}
			if _, err := dst.Write(chunk); err != nil {
				return fail(services.Wrap(services.ErrIO, "transfer", "write chunk", "", err))
			}
			written += int64(n)

			if opts.TotalSize > 0 {
				send(Progress(int(min(written*100/opts.TotalSize, 100))))
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fail(services.Wrap(services.ErrCanceled, "transfer", "copy", "canceled", ctxErr))
			}
			return fail(services.Wrap(services.ErrIO, "transfer", "read chunk", "", readErr))
		}
	}

	final = Success(written)
	send(final)
	return final
}

// safeEmitter shields the copy loop from panicking consumers.
func safeEmitter(emit Emitter) Emitter {
	if emit == nil {
		return func(Status) {}
	}
	return func(s Status) {
		defer func() { _ = recover() }()
		emit(s)
	}
}
