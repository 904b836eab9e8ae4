package pipeline

import (
	"context"
	"log/slog"

	"mediavault/internal/cipherstream"
	"mediavault/internal/logging"
	"mediavault/internal/pathlock"
	"mediavault/internal/services"
	"mediavault/internal/storage"
	"mediavault/internal/transfer"
)

// ImportFailurePrefix starts every import error message shown to users.
const ImportFailurePrefix = "Import File Fail !"

// Encryptor imports local plaintext files as encrypted stored files.
type Encryptor struct {
	opts   Options
	logger *slog.Logger
}

// NewEncryptor builds an Encryptor.
func NewEncryptor(opts Options) *Encryptor {
	opts = opts.withDefaults()
	return &Encryptor{opts: opts, logger: opts.Logger}
}

// Encrypt starts an import on its own goroutine and returns its status
// sequence.
func (e *Encryptor) Encrypt(ctx context.Context, src, dest string) <-chan transfer.Status {
	return Start(ctx, func(ctx context.Context, emit transfer.Emitter) transfer.Status {
		return e.Run(ctx, src, dest, emit)
	})
}

// Run encrypts src into dest using the local chunk size. A failed run
// removes dest and never touches src.
func (e *Encryptor) Run(ctx context.Context, src, dest string, emit transfer.Emitter) (final transfer.Status) {
	ctx, logger := runContext(ctx, e.logger, "import", "encrypt")
	logger = logger.With(logging.String("source", src), logging.String("dest", dest))
	guard := newTerminalGuard(emit, logger)

	var release pathlock.Release
	defer func() {
		if release != nil {
			release()
		}
	}()

	fail := func(err error) transfer.Status {
		if release != nil {
			_ = storage.Remove(dest)
		}
		status := transfer.Failure(failureMessage(ImportFailurePrefix, err), err)
		logging.ErrorWithContext(logger, "import failed", "import_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "check the source file path"),
		)
		guard.forward(status)
		return status
	}

	defer func() {
		if r := recover(); r != nil {
			final = fail(recoverPanic(r))
		}
	}()

	if err := requireDistinct("import", src, dest); err != nil {
		return fail(err)
	}

	lockRelease, err := e.opts.Locker.Lock(ctx, dest)
	if err != nil {
		return fail(err)
	}
	release = lockRelease

	total, err := storage.Size(src)
	if err != nil {
		return fail(err)
	}
	transform, err := cipherstream.New(e.opts.Cipher, cipherstream.Encrypt)
	if err != nil {
		return fail(err)
	}
	in, err := storage.Open(src)
	if err != nil {
		return fail(err)
	}
	defer in.Close()

	out, err := storage.Create(dest)
	if err != nil {
		return fail(err)
	}

	status := transfer.Copy(ctx, in, out, transfer.Options{
		ChunkSize: e.opts.LocalChunkSize,
		Transform: transform,
		TotalSize: total,
	}, guard.progress)

	closeErr := finishFile(out, status.Kind == transfer.StatusSuccess)
	if status.Kind != transfer.StatusSuccess {
		return fail(status.Err)
	}
	if closeErr != nil {
		return fail(closeErr)
	}

	logger.Info("import completed",
		logging.Int64("bytes", status.Written),
		logging.String(logging.FieldEventType, "import_completed"),
	)
	guard.forward(status)
	return status
}
