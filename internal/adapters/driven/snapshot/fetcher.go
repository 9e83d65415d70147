package snapshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/openpdpa/internal/core/ports/driven"
)

// MaxArchiveSize bounds the size of a downloaded snapshot.
const MaxArchiveSize = 1 << 30

// Ensure HTTPFetcher implements the interface.
var _ driven.SnapshotFetcher = (*HTTPFetcher)(nil)

// HTTPFetcher downloads snapshots over HTTP(S).
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher. A nil client gets a five minute timeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &HTTPFetcher{client: client}
}

// Fetch downloads the archive at url. GitHub blob URLs are fetched from
// raw.githubusercontent.com.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	url = RawGitHubURL(strings.TrimSpace(url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch snapshot from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch snapshot from %s: %s: %s", url, resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxArchiveSize+1))
	if err != nil {
		return nil, fmt.Errorf("read snapshot from %s: %w", url, err)
	}
	if len(data) > MaxArchiveSize {
		return nil, fmt.Errorf("snapshot at %s exceeds %d bytes", url, MaxArchiveSize)
	}
	return data, nil
}

// RawGitHubURL rewrites https://github.com/<owner>/<repo>/blob/<ref>/<path>
// to its raw.githubusercontent.com form. Other URLs are returned unchanged.
func RawGitHubURL(url string) string {
	_, rest, ok := strings.Cut(url, "github.com/")
	if !ok || strings.Contains(url, "raw.githubusercontent.com") {
		return url
	}
	repo, blob, ok := strings.Cut(rest, "/blob/")
	if !ok {
		return url
	}
	return "https://raw.githubusercontent.com/" + repo + "/" + blob
}
