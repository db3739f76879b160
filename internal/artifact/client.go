package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cephinstaller/envstep/internal/logging"
	"github.com/cephinstaller/envstep/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	// DefaultCacheDuration is the default validity of a cached directory listing
	DefaultCacheDuration = 30 * time.Second

	filesEndpoint    = "/api/v1/files"
	contentsEndpoint = "/api/v1/iso/contents"
	pingEndpoint     = "/api/v1/ping"
)

// fileList is the install service's directory listing response
type fileList struct {
	Files []string `json:"files"`
}

type cachedListing struct {
	listing string
	at      time.Time
}

// Client reads the image directory and image contents through the install
// service's HTTP API
type Client struct {
	// BaseURL is the base URL of the install service (e.g., "https://installer:5001")
	BaseURL string

	// Username for HTTP Basic Auth (empty disables auth)
	Username string

	// Password for HTTP Basic Auth
	Password string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// CacheDuration is how long to cache directory listings (0 = no cache)
	CacheDuration time.Duration

	cache      map[string]cachedListing
	cacheMutex sync.RWMutex
}

// NewClient creates a new install service client
// baseURL: Full base URL (e.g., "http://192.168.122.10:5001")
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		CacheDuration:         DefaultCacheDuration,
		cache:                 make(map[string]cachedListing),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetAuth sets HTTP Basic Auth credentials
func (c *Client) SetAuth(username, password string) {
	c.Username = username
	c.Password = password
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping performs a simple health check on the install service
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, pingEndpoint, nil)
	return err
}

// ListDirectory returns the files in dir as a space-separated list of paths.
// Listings are cached for CacheDuration.
func (c *Client) ListDirectory(ctx context.Context, dir string) (string, error) {
	if c.CacheDuration > 0 {
		c.cacheMutex.RLock()
		entry, ok := c.cache[dir]
		c.cacheMutex.RUnlock()
		if ok && time.Since(entry.at) < c.CacheDuration {
			return entry.listing, nil
		}
	}

	body, err := c.withRetry(ctx, func() ([]byte, error) {
		return c.get(ctx, filesEndpoint, url.Values{"path": {dir}})
	})
	if err != nil {
		return "", withPath(err, dir)
	}

	var list fileList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", NewParseError("failed to parse file list", err)
	}
	listing := strings.Join(list.Files, " ")

	if c.CacheDuration > 0 {
		c.cacheMutex.Lock()
		if c.cache == nil {
			c.cache = make(map[string]cachedListing)
		}
		c.cache[dir] = cachedListing{listing: listing, at: time.Now()}
		c.cacheMutex.Unlock()
	}
	return listing, nil
}

// ReadContents returns the newline-separated content listing of an image
func (c *Client) ReadContents(ctx context.Context, image string) (string, error) {
	body, err := c.withRetry(ctx, func() ([]byte, error) {
		return c.get(ctx, contentsEndpoint, url.Values{"path": {image}})
	})
	if err != nil {
		return "", withPath(err, image)
	}
	return string(body), nil
}

// InvalidateCache clears all cached directory listings
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	defer c.cacheMutex.Unlock()
	c.cache = make(map[string]cachedListing)
}

// withRetry runs attempt until it succeeds, fails with a non-retryable error,
// runs out of retries or ctx is done
func (c *Client) withRetry(ctx context.Context, attempt func() ([]byte, error)) ([]byte, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		body, err := attempt()
		if err == nil {
			return body, nil
		}
		lastErr = err

		// Don't retry non-retryable errors
		if !IsRetryable(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// get performs a single GET request and returns the body of a 200 response
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	u := c.BaseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, NewNetworkError("failed to create GET request", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("GET request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()
	logging.LogHTTPRequest(http.MethodGet, u, resp.StatusCode)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, NewAuthError("authentication failed (check credentials)")
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewHTTPError(resp.StatusCode, fmt.Sprintf("unexpected status code: %d %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewNetworkError("failed to read response body", err)
	}
	return body, nil
}

func withPath(err error, path string) error {
	if se, ok := asSourceError(err); ok && se.Path == "" {
		se.Path = path
	}
	return err
}
