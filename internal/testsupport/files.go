package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"mediavault/internal/cipherstream"
	"mediavault/internal/config"
)

// Payload returns size bytes of a deterministic, non-repeating-per-block
// pattern so chunk misalignment shows up in comparisons.
func Payload(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte((i*31 + i/251) % 256)
	}
	return data
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Encrypt returns plain encrypted with the config's cipher material, the
// form the media server serves and stored files hold.
func Encrypt(t testing.TB, cfg *config.Config, plain []byte) []byte {
	t.Helper()

	key, iv, err := cfg.CipherMaterial()
	if err != nil {
		t.Fatalf("cipher material: %v", err)
	}
	var buf bytes.Buffer
	w, err := cipherstream.NewWriter(&buf, cipherstream.Params{Key: key, IV: iv}, cipherstream.Encrypt)
	if err != nil {
		t.Fatalf("cipher writer: %v", err)
	}
	if _, err := w.Write(plain); err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close cipher writer: %v", err)
	}
	return buf.Bytes()
}

// WriteEncrypted encrypts plain and writes it to path, producing a stored
// file the decrypt pipeline accepts.
func WriteEncrypted(t testing.TB, cfg *config.Config, path string, plain []byte) {
	t.Helper()

	WriteFile(t, path, Encrypt(t, cfg, plain))
}

// ReadFile returns the contents of path or fails the test.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
