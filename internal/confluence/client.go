// Package confluence implements the read-only content API client used by the
// exporter: single page lookup and offset-paginated child listing.
package confluence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"git.home.luguber.info/inful/confexport/internal/config"
	"git.home.luguber.info/inful/confexport/internal/foundation/errors"
	"git.home.luguber.info/inful/confexport/internal/logfields"
	"git.home.luguber.info/inful/confexport/internal/metrics"
	"git.home.luguber.info/inful/confexport/internal/retry"
	"git.home.luguber.info/inful/confexport/internal/version"
)

const contentPath = "rest/api/content"

// Client talks to the content API with a bearer token.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	token         string
	userAgent     string
	pageSize      int
	policy        retry.Policy
	skipMalformed bool
	recorder      metrics.Recorder
	logger        *slog.Logger

	skipped int
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithPageSize sets the limit parameter of child listings.
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRetryPolicy enables retries of transient failures.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithSkipMalformed drops child results that miss required fields instead of failing.
func WithSkipMalformed(skip bool) Option {
	return func(c *Client) { c.skipMalformed = skip }
}

// WithRecorder records request metrics.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) { c.recorder = metrics.OrNoop(r) }
}

// WithLogger sets the logger used for retries and skipped results.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: config.DefaultTimeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		userAgent:  "confexport/" + version.Version,
		pageSize:   config.DefaultPageSize,
		policy:     retry.DefaultPolicy(),
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig creates a client from the confluence and retry sections.
func NewClientFromConfig(cfg *config.Config, token string, opts ...Option) *Client {
	base := []Option{
		WithHTTPClient(&http.Client{Timeout: cfg.Confluence.Timeout}),
		WithPageSize(cfg.Confluence.PageSize),
		WithRetryPolicy(retry.FromConfig(cfg.Retry)),
		WithSkipMalformed(cfg.Confluence.SkipMalformed),
	}
	return NewClient(cfg.Confluence.BaseURL, token, append(base, opts...)...)
}

// PageSize returns the limit used for child listings.
func (c *Client) PageSize() int { return c.pageSize }

// Skipped returns how many malformed child results were dropped so far.
func (c *Client) Skipped() int { return c.skipped }

// FetchPage retrieves a single page. Its body is not expanded.
func (c *Client) FetchPage(ctx context.Context, id string) (Page, error) {
	var result contentResult
	endpoint := contentPath + "/" + url.PathEscape(id)
	if err := c.get(ctx, metrics.EndpointPage, endpoint, &result); err != nil {
		return Page{}, err
	}
	title, ok := result.title()
	if result.ID == "" || !ok {
		return Page{}, errors.DataShapeError("page response is missing id or title").
			WithContext("page_id", id).
			Build()
	}
	body, _ := result.bodyValue()
	return Page{ID: result.ID, Title: title, Body: body}, nil
}

// FetchChildren retrieves every direct child of id, following offset
// pagination until a response carries fewer results than the page size.
// A child count that is an exact multiple of the page size costs one extra
// empty request.
func (c *Client) FetchChildren(ctx context.Context, id string) ([]Page, error) {
	var children []Page
	for start := 0; ; start += c.pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		q := url.Values{}
		q.Set("expand", "body.storage")
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("start", strconv.Itoa(start))
		endpoint := fmt.Sprintf("%s/%s/child/page?%s", contentPath, url.PathEscape(id), q.Encode())

		var resp childrenResponse
		if err := c.get(ctx, metrics.EndpointChildren, endpoint, &resp); err != nil {
			return nil, err
		}

		for i, r := range resp.Results {
			page, err := c.toChild(id, start+i, r)
			if err != nil {
				if !c.skipMalformed {
					return nil, err
				}
				c.skipped++
				c.recorder.IncPageSkipped(metrics.SkipMalformed)
				c.logger.Warn("Skipping malformed child page",
					logfields.ParentID(id),
					logfields.PageID(r.ID),
					logfields.Error(err))
				continue
			}
			children = append(children, page)
		}

		if len(resp.Results) < c.pageSize {
			return children, nil
		}
	}
}

func (c *Client) toChild(parentID string, index int, r contentResult) (Page, error) {
	title, hasTitle := r.title()
	body, hasBody := r.bodyValue()
	if r.ID == "" || !hasTitle || !hasBody {
		return Page{}, errors.DataShapeError("child result is missing id, title or body.storage.value").
			WithContext("parent_id", parentID).
			WithContext("index", index).
			WithContext("page_id", r.ID).
			Build()
	}
	return Page{ID: r.ID, Title: title, Body: body}, nil
}

// get performs a GET with retries according to the client policy.
func (c *Client) get(ctx context.Context, endpointLabel, endpoint string, result any) error {
	return c.policy.Do(ctx,
		func() error {
			start := time.Now()
			err := c.doOnce(ctx, endpoint, result)
			switch {
			case err == nil:
				c.recorder.ObserveRequest(endpointLabel, time.Since(start), metrics.ResultSuccess)
			case ctx.Err() != nil:
				c.recorder.ObserveRequest(endpointLabel, time.Since(start), metrics.ResultCanceled)
			default:
				c.recorder.ObserveRequest(endpointLabel, time.Since(start), metrics.ResultFailed)
			}
			return err
		},
		func(err error) bool { return ctx.Err() == nil && errors.IsRetryable(err) },
		func(attempt int, err error) {
			c.logger.Warn("Retrying content API request",
				logfields.URL(endpoint),
				logfields.Attempt(attempt),
				logfields.Error(err))
		},
	)
}

func (c *Client) doOnce(ctx context.Context, endpoint string, result any) error {
	req, err := c.newRequest(ctx, endpoint)
	if err != nil {
		return err
	}
	return c.doRequest(req, result)
}

// newRequest builds a GET request for an endpoint relative to the base URL,
// preserving any path prefix of the base URL.
func (c *Client) newRequest(ctx context.Context, endpoint string) (*http.Request, error) {
	cleanEndpoint := strings.TrimPrefix(endpoint, "/")

	var rawQuery string
	if idx := strings.Index(cleanEndpoint, "?"); idx != -1 {
		rawQuery = cleanEndpoint[idx+1:]
		cleanEndpoint = cleanEndpoint[:idx]
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, errors.ConfigError("failed to parse base URL").
			WithCause(err).
			WithContext("base_url", c.baseURL).
			Build()
	}
	u.Path = path.Join(strings.TrimSuffix(u.Path, "/"), cleanEndpoint)
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, errors.InternalError("failed to create request").
			WithCause(err).
			WithContext("url", u.String()).
			Build()
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// doRequest executes req and decodes the JSON response into result.
func (c *Client) doRequest(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NetworkError("failed to execute content API request").
			WithCause(err).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		limitedBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		bodyStr := strings.ReplaceAll(string(limitedBody), "\n", " ")

		var b *errors.ErrorBuilder
		msg := "content API error: " + resp.Status
		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			b = errors.AuthError(msg)
		case resp.StatusCode == http.StatusNotFound:
			b = errors.NotFoundError(msg)
		case resp.StatusCode == http.StatusTooManyRequests:
			b = errors.ContentAPIError(msg).RateLimit()
		case resp.StatusCode >= 500:
			b = errors.ContentAPIError(msg).Retryable()
		default:
			b = errors.ContentAPIError(msg)
		}
		return b.
			WithContext("status", resp.Status).
			WithContext("code", resp.StatusCode).
			WithContext("url", req.URL.String()).
			WithContext("response", bodyStr).
			Build()
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.DataShapeError("failed to decode content API response").
			WithCause(err).
			WithContext("url", req.URL.String()).
			Build()
	}
	return nil
}
