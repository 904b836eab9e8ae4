package cipherstream

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"io"

	"mediavault/internal/services"
)

// Mode selects the direction of a Transform.
type Mode int

const (
	Encrypt Mode = iota
	Decrypt
)

func (m Mode) String() string {
	switch m {
	case Encrypt:
		return "encrypt"
	case Decrypt:
		return "decrypt"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Params holds the key and IV used for every stored file.
type Params struct {
	Key []byte
	IV  []byte
}

// InitError reports unusable key material.
type InitError struct {
	KeyLen int
	IVLen  int
	Reason string
}

func (e *InitError) Error() string {
	return fmt.Sprintf("cipher init failed: %s (key %d bytes, iv %d bytes)", e.Reason, e.KeyLen, e.IVLen)
}

// Unwrap lets errors.Is match services.ErrCipher.
func (e *InitError) Unwrap() error {
	return services.ErrCipher
}

// Transform is a stateful AES-CTR keystream. It is not safe for concurrent use.
type Transform struct {
	mode   Mode
	stream cipher.Stream
}

// New validates params and returns a Transform positioned at the start of
// the stream.
func New(params Params, mode Mode) (*Transform, error) {
	if mode != Encrypt && mode != Decrypt {
		return nil, &InitError{KeyLen: len(params.Key), IVLen: len(params.IV), Reason: "unknown mode " + mode.String()}
	}
	switch len(params.Key) {
	case 16, 24, 32:
	default:
		return nil, &InitError{KeyLen: len(params.Key), IVLen: len(params.IV), Reason: "key must be 16, 24, or 32 bytes"}
	}
	if len(params.IV) != aes.BlockSize {
		return nil, &InitError{KeyLen: len(params.Key), IVLen: len(params.IV), Reason: fmt.Sprintf("iv must be %d bytes", aes.BlockSize)}
	}
	block, err := aes.NewCipher(params.Key)
	if err != nil {
		return nil, &InitError{KeyLen: len(params.Key), IVLen: len(params.IV), Reason: err.Error()}
	}
	iv := make([]byte, aes.BlockSize)
	copy(iv, params.IV)
	return &Transform{mode: mode, stream: cipher.NewCTR(block, iv)}, nil
}

// Mode reports the direction the Transform was built for.
func (t *Transform) Mode() Mode {
	return t.mode
}

// Apply transforms chunk in place and advances the counter by len(chunk).
func (t *Transform) Apply(chunk []byte) error {
	if t == nil || t.stream == nil {
		return services.Wrap(services.ErrCipher, "cipherstream", "apply", "transform not initialized", nil)
	}
	t.stream.XORKeyStream(chunk, chunk)
	return nil
}

// NewReader returns a reader that yields the transformed bytes of r.
func NewReader(r io.Reader, params Params, mode Mode) (io.Reader, error) {
	t, err := New(params, mode)
	if err != nil {
		return nil, err
	}
	return &cipher.StreamReader{S: t.stream, R: r}, nil
}

// NewWriter returns a writer that transforms bytes before writing them to w.
// Closing the returned writer closes w when w is an io.Closer.
func NewWriter(w io.Writer, params Params, mode Mode) (io.WriteCloser, error) {
	t, err := New(params, mode)
	if err != nil {
		return nil, err
	}
	return cipher.StreamWriter{S: t.stream, W: w}, nil
}
