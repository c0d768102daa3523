// Package asset fetches the static map assets: GeoJSON boundaries and masks,
// the station dataset and the per-variable background rasters.
//
// A fetch either returns the whole document or fails; there is no partial
// or streamed delivery and no retry.
package asset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

// DefaultTimeout bounds a single HTTP asset fetch.
const DefaultTimeout = 30 * time.Second

// Fetcher retrieves an asset by name.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// FetchError reports a failed asset fetch.
type FetchError struct {
	Name   string
	Status int // HTTP status, 0 when not applicable
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Name, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Name, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a fetch of a missing asset.
func IsNotFound(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Status == http.StatusNotFound {
		return true
	}
	return errors.Is(err, fs.ErrNotExist)
}

// validName rejects names that could escape the asset root.
func validName(name string) error {
	if name == "" || strings.Contains(name, "\\") || strings.Contains(name, "..") || path.IsAbs(name) {
		return errors.New("invalid asset name")
	}
	return nil
}

// DirFetcher reads assets from a local directory.
type DirFetcher struct {
	root string
	fsys fs.FS
}

// Dir returns a fetcher rooted at dir.
func Dir(dir string) *DirFetcher {
	return &DirFetcher{root: dir, fsys: os.DirFS(dir)}
}

// Root returns the directory assets are read from.
func (d *DirFetcher) Root() string {
	return d.root
}

// Fetch reads the named asset.
func (d *DirFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, &FetchError{Name: name, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{Name: name, Err: err}
	}
	data, err := fs.ReadFile(d.fsys, name)
	if err != nil {
		status := 0
		if errors.Is(err, fs.ErrNotExist) {
			status = http.StatusNotFound
		}
		return nil, &FetchError{Name: name, Status: status, Err: err}
	}
	return data, nil
}

// HTTPFetcher fetches assets relative to a base URL.
type HTTPFetcher struct {
	base   *url.URL
	client *http.Client
}

// HTTP returns a fetcher for assets under baseURL. A nil client gets a
// client with DefaultTimeout.
func HTTP(baseURL string, client *http.Client) (*HTTPFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing asset url: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPFetcher{base: u, client: client}, nil
}

// Fetch downloads the named asset. Any non-2xx status is a failure.
func (h *HTTPFetcher) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := validName(name); err != nil {
		return nil, &FetchError{Name: name, Err: err}
	}
	target := h.base.ResolveReference(&url.URL{Path: name})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &FetchError{Name: name, Err: err}
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &FetchError{Name: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &FetchError{Name: name, Status: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Name: name, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}
