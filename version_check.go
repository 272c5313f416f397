package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/loopcorder/loopcorder/internal/types"
	"github.com/loopcorder/loopcorder/internal/util"
	"golang.org/x/mod/semver"
)

const (
	releasesURL         = "https://api.github.com/repos/loopcorder/loopcorder/releases/latest"
	updatePollInterval  = 24 * time.Hour
	updateStartupDelay  = 30 * time.Second
	updateFetchTimeout  = 30 * time.Second
	updateRetryInitial  = 1 * time.Minute
	updateRetryMax      = 5 * time.Minute
	updateRetryAttempts = 3
)

// VersionChecker polls GitHub for newer releases in the background.
// Info is safe to call from any goroutine.
type VersionChecker struct {
	mu        sync.RWMutex
	latest    string
	checkedAt string
	etag      string
	stopCh    chan struct{}
}

// NewVersionChecker starts the background poll loop.
func NewVersionChecker() *VersionChecker {
	vc := &VersionChecker{stopCh: make(chan struct{})}
	go vc.run()
	return vc
}

// Stop terminates the poll loop.
func (vc *VersionChecker) Stop() {
	close(vc.stopCh)
}

func (vc *VersionChecker) run() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in version checker", "panic", r)
		}
	}()

	// Let the server come up before the first outbound request.
	if !vc.sleep(updateStartupDelay) {
		return
	}
	vc.poll()

	ticker := time.NewTicker(updatePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			vc.poll()
		case <-vc.stopCh:
			return
		}
	}
}

// poll runs one check cycle, retrying transient failures with backoff.
func (vc *VersionChecker) poll() {
	backoff := util.NewBackoff(updateRetryInitial, updateRetryMax)
	for attempt := range updateRetryAttempts {
		err := vc.fetchLatest()
		if err == nil {
			return
		}
		slog.Debug("update check failed", "attempt", attempt+1, "error", err)
		if !vc.sleep(backoff.Next()) {
			return
		}
	}
}

// sleep waits for d and reports false when the checker is stopping.
func (vc *VersionChecker) sleep(d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-vc.stopCh:
		return false
	}
}

// fetchLatest asks the releases endpoint for the newest published release.
// A nil return means the cycle is done, including the cases where nothing
// changed (304) or no usable release exists. Errors are retryable.
func (vc *VersionChecker) fetchLatest() error {
	ctx, cancel := context.WithTimeout(context.Background(), updateFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, releasesURL, http.NoBody)
	if err != nil {
		return util.WrapError("build release request", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "loopcorder/"+Version)

	vc.mu.RLock()
	if vc.etag != "" {
		req.Header.Set("If-None-Match", vc.etag)
	}
	vc.mu.RUnlock()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return util.WrapError("fetch latest release", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified:
		vc.stamp(func() {})
		return nil
	case resp.StatusCode == http.StatusNotFound:
		// Repo has no releases yet.
		return nil
	case resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		return fmt.Errorf("release endpoint returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		// Other client errors will not resolve by retrying.
		return nil
	}

	var release struct {
		TagName    string `json:"tag_name"`
		Draft      bool   `json:"draft"`
		Prerelease bool   `json:"prerelease"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return util.WrapError("decode release", err)
	}
	if release.Draft || release.Prerelease || release.TagName == "" {
		return nil
	}

	vc.stamp(func() {
		vc.latest = normalizeVersion(release.TagName)
		if etag := resp.Header.Get("ETag"); etag != "" {
			vc.etag = etag
		}
	})
	return nil
}

// stamp records a successful check time, applying extra under the same lock.
func (vc *VersionChecker) stamp(extra func()) {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	extra()
	vc.checkedAt = util.HumanTime()
}

// Info reports the running version and whether a newer release is known.
func (vc *VersionChecker) Info() types.VersionInfo {
	vc.mu.RLock()
	defer vc.mu.RUnlock()

	current := normalizeVersion(Version)
	info := types.VersionInfo{
		Current:   current,
		Latest:    vc.latest,
		CheckedAt: vc.checkedAt,
	}
	if vc.latest != "" && current != "dev" && current != "unknown" {
		info.UpdateAvailable = isNewerVersion(vc.latest, current)
	}
	return info
}

// normalizeVersion strips whitespace and a leading "v".
func normalizeVersion(v string) string {
	return strings.TrimPrefix(strings.TrimSpace(v), "v")
}

// isNewerVersion reports whether latest sorts after current under semver.
func isNewerVersion(latest, current string) bool {
	withV := func(v string) string {
		v = strings.TrimSpace(v)
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		return v
	}
	return semver.Compare(withV(latest), withV(current)) > 0
}
