// Package pypi looks up package release metadata from a PyPI-style JSON
// index. Lookups are best effort: timeouts, connection failures, and
// non-2xx responses all degrade to "no data" so that an unreachable index
// never blocks local package operations.
package pypi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/logging"
	"github.com/The-Tech-Idea/Beep.Python-sub006/internal/types"
)

// ReleaseInfo is the subset of index metadata the engine cares about.
type ReleaseInfo struct {
	Name    string
	Version string
	Summary string
}

// Client queries a JSON package index.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the given index base URL (e.g. https://pypi.org)
// with a bounded per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

// Lookup fetches release metadata for a package. Failures return a
// NetworkError; callers normally go through LookupLatest instead.
func (c *Client) Lookup(ctx context.Context, name string) (*ReleaseInfo, error) {
	url := fmt.Sprintf("%s/pypi/%s/json", c.base, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.NetworkError{URL: url, Cause: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.NetworkError{URL: url, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.NetworkError{URL: url, Cause: fmt.Errorf("status %d", resp.StatusCode)}
	}

	var payload struct {
		Info struct {
			Name    string `json:"name"`
			Version string `json:"version"`
			Summary string `json:"summary"`
		} `json:"info"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &types.NetworkError{URL: url, Cause: err}
	}

	return &ReleaseInfo{
		Name:    payload.Info.Name,
		Version: payload.Info.Version,
		Summary: payload.Info.Summary,
	}, nil
}

// LookupLatest is the degrading variant the engine uses: any failure is
// logged and reported as (nil, false).
func (c *Client) LookupLatest(ctx context.Context, name string) (*ReleaseInfo, bool) {
	info, err := c.Lookup(ctx, name)
	if err != nil {
		logging.NetDebug("Lookup for %s degraded to no data: %v", name, err)
		return nil, false
	}
	return info, true
}
