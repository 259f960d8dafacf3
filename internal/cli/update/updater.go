package update

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// SelfUpdate replaces the running binary with the latest release. The
// downloaded artifact is verified against its published SHA256 before
// anything on disk is touched.
func SelfUpdate(currentVersion string) error {
	latest, err := latestReleaseTag()
	if err != nil {
		return fmt.Errorf("failed to check for updates: %w", err)
	}

	if !supersedes(latest, currentVersion) {
		fmt.Printf("Already up to date (version %s)\n", currentVersion)
		return nil
	}

	asset, err := releaseAssetName()
	if err != nil {
		return err
	}

	fmt.Printf("Updating %s -> %s\n", currentVersion, latest)
	assetURL := fmt.Sprintf("%s/%s/%s", releaseBaseURL, latest, asset)

	tmpPath, err := fetchToTemp(assetURL)
	if err != nil {
		return fmt.Errorf("failed to download release: %w", err)
	}
	defer os.Remove(tmpPath)

	if err := verifySHA256(tmpPath, assetURL+".sha256"); err != nil {
		return fmt.Errorf("checksum verification failed: %w", err)
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate current binary: %w", err)
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return fmt.Errorf("failed to resolve current binary: %w", err)
	}

	if err := installBinary(tmpPath, execPath); err != nil {
		return fmt.Errorf("failed to install update: %w", err)
	}

	fmt.Printf("\n✓ Updated to %s\n", latest)
	return nil
}

// releaseAssetName maps GOOS/GOARCH onto the release artifact naming scheme
func releaseAssetName() (string, error) {
	key := runtime.GOOS + "/" + runtime.GOARCH
	switch key {
	case "linux/amd64", "linux/arm64", "darwin/amd64", "darwin/arm64":
		return fmt.Sprintf("batsim-%s-%s", runtime.GOOS, runtime.GOARCH), nil
	case "windows/amd64":
		return "batsim-windows-amd64.exe", nil
	}
	return "", fmt.Errorf("no release artifact for %s", key)
}

func fetchToTemp(url string) (string, error) {
	// Generous timeout, release binaries run tens of megabytes
	httpClient := &http.Client{Timeout: 5 * time.Minute}

	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "batsim-update-*")
	if err != nil {
		return "", err
	}
	defer tmpFile.Close()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}

	return tmpFile.Name(), nil
}

// verifySHA256 fetches the sidecar checksum file ("<hash>  <name>") and
// compares it against the downloaded artifact
func verifySHA256(filePath, checksumURL string) error {
	httpClient := &http.Client{Timeout: 30 * time.Second}

	req, err := http.NewRequest("GET", checksumURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download checksum (status %d)", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	fields := strings.Fields(string(body))
	if len(fields) == 0 {
		return fmt.Errorf("empty checksum file")
	}
	want := fields[0]

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}
	got := fmt.Sprintf("%x", h.Sum(nil))

	if got != want {
		return fmt.Errorf("checksum mismatch: want %s, got %s", want, got)
	}
	return nil
}

// installBinary swaps the verified download into place. Windows cannot
// overwrite a running executable, so there the old binary is parked as
// .old instead of copied over.
func installBinary(newPath, currentPath string) error {
	if err := os.Chmod(newPath, 0755); err != nil {
		return err
	}

	if runtime.GOOS == "windows" {
		parked := currentPath + ".old"
		os.Remove(parked)
		if err := os.Rename(currentPath, parked); err != nil {
			return fmt.Errorf("failed to move current binary aside: %w", err)
		}
		if err := os.Rename(newPath, currentPath); err != nil {
			os.Rename(parked, currentPath)
			return fmt.Errorf("failed to install new binary: %w", err)
		}
		fmt.Println("\nNote: the previous binary was kept as .old and can be deleted")
		return nil
	}

	// Keep a copy of the working binary until the new one is in place
	backup := currentPath + ".backup"
	if err := copyFile(currentPath, backup); err != nil {
		return fmt.Errorf("failed to back up current binary: %w", err)
	}

	if err := copyFile(newPath, currentPath); err != nil {
		copyFile(backup, currentPath)
		return fmt.Errorf("failed to install new binary: %w", err)
	}

	os.Remove(backup)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, info.Mode())
}
