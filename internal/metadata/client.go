package metadata

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when upstream cannot find the requested movie.
var ErrNotFound = errors.New("metadata: not found")

const releaseDateLayout = "2006-01-02"

// Result contains the data used to complete a movie record.
type Result struct {
	Title       string
	ReleaseDate *time.Time
}

// Client defines the contract for querying the upstream metadata API.
type Client interface {
	Fetch(ctx context.Context, title string) (*Result, error)
}

// NopClient is used when no upstream is configured; it never finds anything.
type NopClient struct{}

// Fetch always returns ErrNotFound.
func (NopClient) Fetch(context.Context, string) (*Result, error) {
	return nil, ErrNotFound
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPClient constructs a new HTTP-backed metadata client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse metadata url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("parse metadata url: %q is not absolute", baseURL)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger.With().Str("component", "metadata").Logger(),
	}, nil
}

// Fetch retrieves movie metadata by title.
func (c *HTTPClient) Fetch(ctx context.Context, title string) (*Result, error) {
	rel := &url.URL{Path: c.baseURL.Path + "/movies"}
	q := rel.Query()
	q.Set("title", title)
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode metadata response: %w", err)
		}
		return convertToResult(title, payload), nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		c.logger.Warn().Int("status", resp.StatusCode).Str("title", title).Msg("unexpected upstream status")
		return nil, fmt.Errorf("metadata: upstream returned %d", resp.StatusCode)
	}
}

type apiResponse struct {
	Title       string  `json:"title"`
	ReleaseDate *string `json:"releaseDate"`
}

// convertToResult drops unparseable dates instead of failing the lookup.
func convertToResult(requested string, payload apiResponse) *Result {
	result := &Result{Title: payload.Title}
	if result.Title == "" {
		result.Title = requested
	}
	if payload.ReleaseDate != nil {
		if date, err := time.Parse(releaseDateLayout, strings.TrimSpace(*payload.ReleaseDate)); err == nil {
			result.ReleaseDate = &date
		}
	}
	return result
}
