// pkg/download/download.go - installer artifact acquisition.

package download

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/windowsadmins/platformsetup/pkg/config"
	"github.com/windowsadmins/platformsetup/pkg/logging"
	"github.com/windowsadmins/platformsetup/pkg/platform"
	"github.com/windowsadmins/platformsetup/pkg/retry"
)

const Timeout = 10 * time.Minute

// installerFileFormat names the platform installer artifact for a version.
const installerFileFormat = "PlatformServer-%s.exe"

// InstallerPath returns where the installer for a version lands in the cache.
func InstallerPath(cfg *config.Configuration, ver platform.Version) string {
	return filepath.Join(cfg.CachePath, fmt.Sprintf(installerFileFormat, ver))
}

// FetchInstaller downloads the installer artifact for the requested version
// into the cache, skipping the download when a cached copy already exists and
// matches its configured SHA-256 hash. It returns the local path to the
// artifact.
func FetchInstaller(cfg *config.Configuration, ver platform.Version) (string, error) {
	if cfg.DownloadBaseURL == "" {
		return "", fmt.Errorf("no DownloadBaseURL configured")
	}

	expectedHash := cfg.InstallerSHA256[ver.String()]
	if expectedHash == "" {
		logging.Warn("No SHA-256 hash configured for installer; skipping verification",
			"version", ver,
		)
	}

	dest := InstallerPath(cfg, ver)
	if _, err := os.Stat(dest); err == nil {
		if expectedHash == "" || Verify(dest, expectedHash) {
			logging.Info("Installer already cached", "path", dest)
			return dest, nil
		}
		// A cached copy that fails verification is a leftover from an
		// interrupted or tampered download; discard and refetch.
		logging.Warn("Cached installer failed hash verification, re-downloading", "path", dest)
		if err := os.Remove(dest); err != nil {
			return "", fmt.Errorf("failed to remove corrupt cached installer %s: %v", dest, err)
		}
	}

	url := strings.TrimRight(cfg.DownloadBaseURL, "/") + "/" + fmt.Sprintf(installerFileFormat, ver)
	if err := DownloadFile(url, dest); err != nil {
		return "", err
	}

	if expectedHash != "" && !Verify(dest, expectedHash) {
		os.Remove(dest)
		return "", fmt.Errorf("downloaded installer %s failed SHA-256 verification", dest)
	}
	return dest, nil
}

// DownloadFile fetches url into dest with retries. The transfer lands in a
// temporary file that is renamed into place only after a complete response,
// so a failed attempt never leaves a partial artifact at dest.
func DownloadFile(url, dest string) error {
	if url == "" {
		return fmt.Errorf("invalid parameters: url cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory structure: %v", err)
	}

	tmp := dest + ".download"
	configRetry := retry.RetryConfig{MaxRetries: 3, InitialInterval: time.Second, Multiplier: 2.0}
	return retry.Retry(configRetry, func() error {
		logging.Info("Starting download", "url", url, "destination", dest)

		out, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("failed to open destination file: %v", err)
		}

		client := &http.Client{Timeout: Timeout}
		resp, err := client.Get(url)
		if err != nil {
			out.Close()
			os.Remove(tmp)
			return fmt.Errorf("failed to perform HTTP request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			out.Close()
			os.Remove(tmp)
			return fmt.Errorf("unexpected HTTP status code: %d", resp.StatusCode)
		}

		if _, err = io.Copy(out, resp.Body); err != nil {
			out.Close()
			os.Remove(tmp)
			return fmt.Errorf("failed to write downloaded data: %v", err)
		}

		if err := out.Close(); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to finish writing %s: %v", tmp, err)
		}
		if err := os.Rename(tmp, dest); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to move download into place: %v", err)
		}

		logging.Info("Download completed successfully", "file", dest)
		return nil
	})
}

// Verify checks if the given file matches the expected SHA-256 hash.
func Verify(file string, expectedHash string) bool {
	actualHash := calculateHash(file)
	return strings.EqualFold(actualHash, expectedHash)
}

func calculateHash(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return ""
	}
	return hex.EncodeToString(hasher.Sum(nil))
}
