package sandbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"raven/internal/display"
	"raven/internal/recipe"
)

const (
	downloadInitialBackoff = time.Second
	downloadBackoffFactor  = 2
	downloadMaxAttempts    = 3
)

// downloadAndVerify fetches url with bounded exponential-backoff retries,
// writes the body to destPath, and verifies its SHA-256 against expectedSum
// before returning. On mismatch the partially written file is removed and
// *IntegrityError is returned.
func downloadAndVerify(ctx context.Context, url, destPath, expectedSum string, task display.Task) error {
	var lastErr error
	backoff := downloadInitialBackoff

	for attempt := 1; attempt <= downloadMaxAttempts; attempt++ {
		err := attemptDownload(ctx, url, destPath, task)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if attempt < downloadMaxAttempts {
			select {
			case <-ctx.Done():
				return &DownloadError{URL: url, Cause: ctx.Err(), Retries: attempt}
			case <-time.After(backoff):
			}
			backoff *= downloadBackoffFactor
		}
	}
	if lastErr != nil {
		return &DownloadError{URL: url, Cause: lastErr, Retries: downloadMaxAttempts}
	}

	sum, err := sha256File(destPath)
	if err != nil {
		return fmt.Errorf("hash downloaded source: %w", err)
	}
	if sum != expectedSum {
		os.Remove(destPath)
		return &IntegrityError{Expected: expectedSum, Actual: sum}
	}
	return nil
}

// fetchSource populates destPath with rec's verified source archive,
// consulting s.CacheDir first when set.
func (s *Sandbox) fetchSource(ctx context.Context, rec *recipe.Recipe, destPath string, task display.Task) error {
	if s.CacheDir != "" {
		cachePath := filepath.Join(s.CacheDir, rec.SHA256Sum)
		if sum, err := sha256File(cachePath); err == nil && sum == rec.SHA256Sum {
			return copyFile(cachePath, destPath)
		}
	}

	if err := downloadAndVerify(ctx, rec.SourceURL, destPath, rec.SHA256Sum, task); err != nil {
		return err
	}

	if s.CacheDir != "" {
		cachePath := filepath.Join(s.CacheDir, rec.SHA256Sum)
		os.MkdirAll(s.CacheDir, 0755)
		copyFile(destPath, cachePath)
	}
	return nil
}

// Prefetch downloads and verifies rec's source into cacheDir, keyed by its
// sha256_sum, without building anything. It is a no-op if the cache entry
// already exists and matches. Used by the Planner's bounded-concurrency
// pre-fetch pass ahead of the serial build loop.
func Prefetch(ctx context.Context, rec *recipe.Recipe, cacheDir string) error {
	cachePath := filepath.Join(cacheDir, rec.SHA256Sum)
	if sum, err := sha256File(cachePath); err == nil && sum == rec.SHA256Sum {
		return nil
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("create source cache dir: %w", err)
	}
	tmp := cachePath + ".tmp"
	if err := downloadAndVerify(ctx, rec.SourceURL, tmp, rec.SHA256Sum, nil); err != nil {
		return err
	}
	return os.Rename(tmp, cachePath)
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
	_, err = io.Copy(out, in)
	return err
}

func attemptDownload(ctx context.Context, url, destPath string, task display.Task) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 0}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	pw := &progressWriter{task: task, total: resp.ContentLength, start: time.Now()}
	_, err = io.Copy(io.MultiWriter(f, pw), resp.Body)
	return err
}

func sha256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// progressWriter reports download progress through a display.Task as a
// percentage with humanize.Bytes-formatted byte counts (bytes only when the
// total size is unknown); transfer speed is not reported.
type progressWriter struct {
	task    display.Task
	total   int64
	written int64
	start   time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	pw.written += int64(n)
	if pw.task == nil {
		return n, nil
	}
	if pw.total > 0 {
		percent := int((float64(pw.written) / float64(pw.total)) * 100)
		pw.task.Progress(percent, fmt.Sprintf("%s / %s", humanize.Bytes(uint64(pw.written)), humanize.Bytes(uint64(pw.total))))
	} else {
		pw.task.Progress(0, fmt.Sprintf("%s downloaded", humanize.Bytes(uint64(pw.written))))
	}
	return n, nil
}
