package pipeline

import (
	"context"
	"log/slog"

	"mediavault/internal/cipherstream"
	"mediavault/internal/logging"
	"mediavault/internal/media"
	"mediavault/internal/pathlock"
	"mediavault/internal/services"
	"mediavault/internal/storage"
	"mediavault/internal/transfer"
)

// DecryptFailurePrefix starts every decrypt error message shown to users.
const DecryptFailurePrefix = "Decrypt File Fail !"

// Decryptor turns stored files into temporary playable files.
type Decryptor struct {
	opts   Options
	logger *slog.Logger
	create func(path string) (fileSink, error)
}

// NewDecryptor builds a Decryptor.
func NewDecryptor(opts Options) *Decryptor {
	opts = opts.withDefaults()
	return &Decryptor{opts: opts, logger: opts.Logger, create: createSink}
}

// Decrypt starts a decrypt on its own goroutine and returns its status
// sequence.
func (d *Decryptor) Decrypt(ctx context.Context, src, dest string, kind media.FileKind) <-chan transfer.Status {
	return Start(ctx, func(ctx context.Context, emit transfer.Emitter) transfer.Status {
		return d.Run(ctx, src, dest, kind, emit)
	})
}

// Run decrypts src into dest, overwriting dest. When reading, decrypting, or
// writing fails the stored file src is deleted so it is downloaded again;
// dest is left as written. A canceled run keeps src and removes the partial
// dest instead.
func (d *Decryptor) Run(ctx context.Context, src, dest string, kind media.FileKind, emit transfer.Emitter) (final transfer.Status) {
	ctx, logger := runContext(ctx, d.logger, "decrypt", "decrypt")
	logger = logger.With(logging.String("source", src), logging.String("dest", dest), logging.String("kind", string(kind)))
	guard := newTerminalGuard(emit, logger)

	var releases []pathlock.Release
	defer func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}()

	fail := func(err error, purgeSource bool) transfer.Status {
		switch {
		case services.Kind(err) == "canceled" && len(releases) == 2:
			_ = storage.Remove(dest)
		case purgeSource:
			if rmErr := storage.Remove(src); rmErr != nil {
				logging.WarnWithContext(logger, "failed to purge stored file", "decrypt_cleanup_failed",
					logging.Error(rmErr),
					logging.String(logging.FieldErrorHint, "delete the stored file manually"),
					logging.String(logging.FieldImpact, "a corrupt stored file remains"),
				)
			} else {
				logger.Info("purged unreadable stored file", logging.String(logging.FieldEventType, "stored_file_purged"))
			}
		}
		status := transfer.Failure(failureMessage(DecryptFailurePrefix, err), err)
		if services.Kind(err) == "canceled" {
			logger.Info("decrypt canceled", logging.String(logging.FieldEventType, "decrypt_canceled"))
		} else {
			logging.ErrorWithContext(logger, "decrypt failed", "decrypt_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.String(logging.FieldErrorHint, "download the item again"),
			)
		}
		guard.forward(status)
		return status
	}

	defer func() {
		if r := recover(); r != nil {
			final = fail(recoverPanic(r), false)
		}
	}()

	if !kind.Valid() {
		return fail(services.Wrap(services.ErrValidation, "decrypt", "validate", "unknown file kind "+string(kind), nil), false)
	}
	if err := requireDistinct("decrypt", src, dest); err != nil {
		return fail(err, false)
	}

	for _, path := range []string{src, dest} {
		release, err := d.opts.Locker.Lock(ctx, path)
		if err != nil {
			return fail(err, false)
		}
		releases = append(releases, release)
	}

	total, err := storage.Size(src)
	if err != nil {
		return fail(err, false)
	}

	transform, err := cipherstream.New(d.opts.Cipher, cipherstream.Decrypt)
	if err != nil {
		return fail(err, false)
	}

	in, err := storage.Open(src)
	if err != nil {
		return fail(err, false)
	}
	defer in.Close()

	out, err := d.create(dest)
	if err != nil {
		return fail(err, false)
	}

	logger.Debug("decrypt started", logging.Int64("bytes", total))
	status := transfer.Copy(ctx, in, out, transfer.Options{
		ChunkSize: d.opts.LocalChunkSize,
		Transform: transform,
		TotalSize: total,
	}, guard.progress)

	closeErr := finishFile(out, false)
	if status.Kind != transfer.StatusSuccess {
		return fail(status.Err, true)
	}
	if closeErr != nil {
		return fail(closeErr, true)
	}

	logger.Info("decrypt completed",
		logging.Int64("bytes", status.Written),
		logging.String(logging.FieldEventType, "decrypt_completed"),
	)
	guard.forward(status)
	return status
}
