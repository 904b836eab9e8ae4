package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"mediavault/internal/config"
	"mediavault/internal/services"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	free, err := AvailableBytes(path)
	if err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok, %s free)", path, humanize.IBytes(free))}
}

// AvailableBytes reports the bytes available to unprivileged users on the
// filesystem holding path.
func AvailableBytes(path string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}

// CheckFreeSpace fails when dir cannot hold need more bytes. Unknown sizes
// (need <= 0) always pass.
func CheckFreeSpace(dir string, need int64) error {
	if need <= 0 {
		return nil
	}
	free, err := AvailableBytes(dir)
	if err != nil {
		return services.Wrap(services.ErrIO, "preflight", "free space", "", err)
	}
	if uint64(need) > free {
		return services.Wrap(services.ErrIO, "preflight", "free space",
			fmt.Sprintf("need %s, only %s free in %s", humanize.IBytes(uint64(need)), humanize.IBytes(free), dir), nil)
	}
	return nil
}

// CheckRemote verifies the media server answers at baseURL.
func CheckRemote(ctx context.Context, baseURL string) Result {
	const name = "Media server"

	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing base_url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"videos", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetworkError(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case resp.StatusCode == http.StatusUnauthorized:
		return Result{Name: name, Detail: "Your token is expired"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("catalog check failed (%d)", resp.StatusCode)}
	}
}

// CheckCipher verifies the configured key material builds a cipher.
func CheckCipher(cfg *config.Config) Result {
	const name = "Cipher key"

	key, iv, err := cfg.CipherMaterial()
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	detail := fmt.Sprintf("AES-%d CTR, %d-byte IV", len(key)*8, len(iv))
	if strings.TrimSpace(cfg.Cipher.KeyFile) == "" && string(key) == config.Default().Cipher.Key {
		detail += " (built-in default key)"
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

func summarizeNetworkError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out (media server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (media server unreachable)"
	}
	return err.Error()
}
