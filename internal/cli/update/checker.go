// Package update keeps the CLI binary current against the project's
// GitHub releases.
package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	releaseAPIURL  = "https://api.github.com/repos/hpcc-hcmut/batsim-web-portal/releases/latest"
	releaseBaseURL = "https://github.com/hpcc-hcmut/batsim-web-portal/releases/download"
	userAgent      = "batsim-portal-cli"
)

// latestReleaseTag asks the GitHub API for the tag of the newest release
func latestReleaseTag() (string, error) {
	httpClient := &http.Client{Timeout: 10 * time.Second}

	req, err := http.NewRequest("GET", releaseAPIURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach GitHub: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return "", fmt.Errorf("failed to parse release info: %w", err)
	}

	return release.TagName, nil
}

// supersedes reports whether latest is a different release than current.
// Development builds ("dev") always count as outdated.
func supersedes(latest, current string) bool {
	current = strings.TrimPrefix(current, "v")
	latest = strings.TrimPrefix(latest, "v")

	if current == "dev" {
		return true
	}
	return current != latest
}

// PrintUpdateNotification tells the user on stderr when a newer release
// exists. The check is best-effort: any failure is swallowed so an offline
// machine never sees an error from it.
func PrintUpdateNotification(currentVersion string) {
	latest, err := latestReleaseTag()
	if err != nil {
		return
	}

	if supersedes(latest, currentVersion) {
		fmt.Fprintf(os.Stderr, "A newer release is available (%s, you have %s). Run: batsim update\n\n",
			latest, currentVersion)
	}
}
