package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// ErrNoSource is returned when no catalog source is configured.
var ErrNoSource = errors.New("no catalog source configured")

// DefaultTimeout bounds a catalog download.
const DefaultTimeout = 30 * time.Second

// Fetch reads the raw catalog from source, a file path or an http(s) URL.
func Fetch(ctx context.Context, client *http.Client, source string) ([]byte, error) {
	switch {
	case source == "":
		return nil, ErrNoSource
	case strings.HasPrefix(source, "http://"), strings.HasPrefix(source, "https://"):
		return fetchURL(ctx, client, source)
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("reading catalog: %w", err)
		}
		return data, nil
	}
}

func fetchURL(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching catalog: %s returned %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading catalog response: %w", err)
	}
	return data, nil
}
