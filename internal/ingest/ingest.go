// Package ingest is the I/O boundary that turns one of the supported input
// sources into raw GeoJSON bytes. It does no parsing beyond that; a failed
// load must leave whatever the caller held before untouched.
package ingest

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/woozymasta/geocheck/internal/config"
)

// maxBodySize bounds a remote document read so a misbehaving server cannot
// exhaust memory. Large collections are a declared non-goal.
const maxBodySize = 256 << 20

// ValidateURL checks that a user-supplied URL carries a scheme and a host.
// Runs before any network call is attempted.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("ingest: invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("ingest: URL %q must include scheme and host", raw)
	}
	return nil
}

// FromURL fetches a document over HTTP. Single synchronous attempt, no retry.
func FromURL(client *http.Client, rawURL string) ([]byte, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	log.Debug().Str("url", rawURL).Msg("Fetching GeoJSON")

	resp, err := client.Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ingest: fetch %s: %w", rawURL, err)
	}
	// Explicitly ignore close error as it's a read-only operation
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("ingest: fetch %s: status %d", rawURL, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", rawURL, err)
	}

	return data, nil
}

// FromFile reads a document from the local filesystem.
func FromFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	return data, nil
}

// FromSource resolves a configured preset source to document bytes.
func FromSource(client *http.Client, s config.Source) ([]byte, error) {
	switch {
	case s.Inline != "":
		log.Debug().Str("source", s.Name).Msg("Using inline GeoJSON from config")
		return []byte(s.Inline), nil
	case s.File != "":
		return FromFile(s.File)
	case s.URL != "":
		return FromURL(client, s.URL)
	default:
		return nil, fmt.Errorf("ingest: source %q has no location", s.Name)
	}
}
