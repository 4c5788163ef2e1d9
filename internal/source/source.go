package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tailscale/hujson"
)

// Kind classifies why a data source could not be loaded.
type Kind int

const (
	Unreachable Kind = iota + 1 // transport failure, missing file, non-2xx response
	Malformed                   // parse or shape failure
)

func (k Kind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Malformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against a *LoadError.
var (
	ErrUnreachable = errors.New("source unreachable")
	ErrMalformed   = errors.New("source malformed")
)

// LoadError reports a failed load of one named data source.
type LoadError struct {
	Source   string // "records" or "capabilities"
	Location string
	Kind     Kind
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s source %s (%s): %v", e.Source, e.Kind, e.Location, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnreachable) and errors.Is(err, ErrMalformed) see through the wrapper.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == Unreachable
	case ErrMalformed:
		return e.Kind == Malformed
	}
	return false
}

// Wrap builds a LoadError unless err is nil or already a LoadError.
func Wrap(name, location string, kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var le *LoadError
	if errors.As(err, &le) {
		return err
	}
	return &LoadError{Source: name, Location: location, Kind: kind, Err: err}
}

// Fetcher reads raw bytes from a file path, a file:// URL or an http(s) URL.
type Fetcher struct {
	Client  *http.Client
	Timeout time.Duration // 0 = no per-fetch timeout
}

// NewFetcher returns a Fetcher with its own HTTP client.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{Client: &http.Client{}, Timeout: timeout}
}

// IsRemote reports whether location is fetched over HTTP.
func IsRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

// LocalPath returns the filesystem path for a local location.
func LocalPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}

// Resolve joins a relative local location onto base. Remote and absolute locations are returned as-is.
func Resolve(base, location string) string {
	if location == "" || IsRemote(location) {
		return location
	}
	p := LocalPath(location)
	if filepath.IsAbs(p) || base == "" {
		return p
	}
	return filepath.Join(base, p)
}

// Fetch returns the raw content at location. Every failure is Unreachable.
func (f *Fetcher) Fetch(ctx context.Context, name, location string) ([]byte, error) {
	if location == "" {
		return nil, Wrap(name, location, Unreachable, fmt.Errorf("no location configured"))
	}
	if !IsRemote(location) {
		data, err := os.ReadFile(LocalPath(location))
		if err != nil {
			return nil, Wrap(name, location, Unreachable, err)
		}
		return data, nil
	}

	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, Wrap(name, location, Unreachable, err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, Wrap(name, location, Unreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, Wrap(name, location, Unreachable, fmt.Errorf("unexpected status %s", resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Wrap(name, location, Unreachable, fmt.Errorf("failed to read body: %w", err))
	}
	return data, nil
}

// Decode parses JSON into v, tolerating comments and trailing commas.
func Decode(data []byte, v any) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := json.Unmarshal(standardized, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
