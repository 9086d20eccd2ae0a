package resolver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultSourceURL = "https://cds.unistra.fr/cgi-bin/nph-sesame/-oI/SNV"

	// maxBodyBytes bounds a single Sesame response.
	maxBodyBytes = 1 << 20
)

// Fetcher queries the CDS Sesame name resolver.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for the given Sesame endpoint.
func NewFetcher(sourceURL string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if sourceURL == "" {
		sourceURL = defaultSourceURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		sourceURL: strings.TrimRight(sourceURL, "?"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch resolves name remotely.
func (f *Fetcher) Fetch(ctx context.Context, name string) (ObjectInfo, error) {
	target := f.sourceURL + "?" + url.PathEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("resolving %q: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ObjectInfo{}, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, f.sourceURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return ObjectInfo{}, fmt.Errorf("sesame response exceeds %d byte limit", maxBodyBytes)
	}

	return Parse(strings.NewReader(string(body)), name, f.logger)
}
