package mnist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBaseURL is the mirror the compressed files are fetched from.
const DefaultBaseURL = "https://storage.googleapis.com/cvdf-datasets/mnist/"

// DefaultCacheDir returns the user cache directory for downloaded files,
// falling back to the system temp directory.
func DefaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "digits", "mnist")
}

// download fetches url into dst through a temporary file in the same
// directory, so dst either holds the complete file or does not exist.
// An empty digest skips verification.
func download(ctx context.Context, client *http.Client, url, dst, digest string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("GET %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if digest != "" {
		if got := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(got, digest) {
			return fmt.Errorf("%w: %s has sha256 %s, want %s", ErrChecksum, url, got, digest)
		}
	}

	return os.Rename(tmp.Name(), dst)
}

func joinURL(base, name string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + name
}
