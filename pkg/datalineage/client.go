// Package datalineage is a client for the managed data-lineage REST API:
// process, run and lineage-event creation plus link search.
package datalineage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/sells-group/lineage-cli/internal/resilience"
)

// ErrMissingName is the cause when a create call succeeds without returning
// the new resource's name.
var ErrMissingName = eris.New("response has no name")

// Client performs lineage API operations.
type Client interface {
	CreateProcess(ctx context.Context, loc Location, p Process) (string, error)
	CreateRun(ctx context.Context, process string, r Run) (string, error)
	CreateLineageEvent(ctx context.Context, run string, e Event) (string, error)
	SearchLinks(ctx context.Context, loc Location, q LinkQuery) (*SearchResult, error)
}

// BaseURL returns the regional API endpoint.
func BaseURL(region string) string {
	return "https://" + region + "-datalineage.googleapis.com/v1"
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the regional API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithTokenSource sets the bearer credential source. Callers should pass a
// caching source; Token is invoked before every request.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *httpClient) {
		c.tokens = ts
	}
}

// WithRateLimiter caps the request rate across all operations.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

// WithRetry overrides the retry policy for transient SearchLinks failures.
// Create calls are never retried.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
	tokens  oauth2.TokenSource
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a lineage API client for the given region.
func NewClient(region string, opts ...Option) Client {
	c := &httpClient{
		baseURL: BaseURL(region),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		retry: resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type nameResponse struct {
	Name string `json:"name"`
}

func (c *httpClient) CreateProcess(ctx context.Context, loc Location, p Process) (string, error) {
	return c.create(ctx, "create_process", "/"+loc.Parent()+"/processes", p)
}

func (c *httpClient) CreateRun(ctx context.Context, process string, r Run) (string, error) {
	return c.create(ctx, "create_run", "/"+process+"/runs", r)
}

func (c *httpClient) CreateLineageEvent(ctx context.Context, run string, e Event) (string, error) {
	return c.create(ctx, "create_event", "/"+run+"/lineageEvents", e)
}

// create sends a single attempt. Creates are not idempotent: a POST that
// failed after the server committed it would leave a duplicate on retry.
func (c *httpClient) create(ctx context.Context, op, path string, payload any) (string, error) {
	once := c.retry
	once.MaxAttempts = 1

	var resp nameResponse
	if err := c.post(ctx, op, path, payload, &resp, once); err != nil {
		return "", err
	}
	if resp.Name == "" {
		return "", &Error{Kind: KindMalformed, Op: op, Err: ErrMissingName}
	}
	return resp.Name, nil
}

type searchEntity struct {
	FullyQualifiedName string `json:"fully_qualified_name"`
	Location           string `json:"location"`
}

type searchRequest struct {
	Source    *searchEntity `json:"source,omitempty"`
	Target    *searchEntity `json:"target,omitempty"`
	PageToken string        `json:"pageToken,omitempty"`
}

type searchResponse struct {
	Links         []Link `json:"links"`
	NextPageToken string `json:"nextPageToken"`
}

// SearchLinks returns every link matching q, following pagination. A
// response without links is an empty result, not an error.
func (c *httpClient) SearchLinks(ctx context.Context, loc Location, q LinkQuery) (*SearchResult, error) {
	const op = "search_links"

	var req searchRequest
	switch {
	case q.Source != "" && q.Target == "":
		req.Source = &searchEntity{FullyQualifiedName: q.Source, Location: loc.Region}
	case q.Target != "" && q.Source == "":
		req.Target = &searchEntity{FullyQualifiedName: q.Target, Location: loc.Region}
	default:
		return nil, eris.New("datalineage: search links: exactly one of source or target is required")
	}

	path := "/" + loc.Parent() + ":searchLinks"
	result := &SearchResult{}
	seen := make(map[string]bool)
	for {
		var resp searchResponse
		if err := c.post(ctx, op, path, req, &resp, c.retry); err != nil {
			return nil, err
		}
		result.Links = append(result.Links, resp.Links...)

		if resp.NextPageToken == "" {
			return result, nil
		}
		if seen[resp.NextPageToken] {
			return nil, &Error{Kind: KindMalformed, Op: op, Err: eris.Errorf("repeated page token %q", resp.NextPageToken)}
		}
		seen[resp.NextPageToken] = true
		req.PageToken = resp.NextPageToken
	}
}

func (c *httpClient) post(ctx context.Context, op, path string, payload, out any, retry resilience.RetryConfig) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrapf(err, "datalineage: %s: marshal request", op)
	}

	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("datalineage", op)
	}
	return resilience.Do(ctx, retry, func(ctx context.Context) error {
		return c.postOnce(ctx, op, path, body, out)
	})
}

func (c *httpClient) postOnce(ctx context.Context, op, path string, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Kind: KindUnavailable, Op: op, Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return eris.Wrapf(err, "datalineage: %s: create request", op)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return &Error{Kind: KindAuth, Op: op, Err: err}
		}
		tok.SetAuthHeader(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindUnavailable, Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:       kindForStatus(resp.StatusCode),
			Op:         op,
			StatusCode: resp.StatusCode,
			RetryDelay: resilience.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Err:        eris.New(strings.TrimSpace(string(respBody))),
		}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Kind: KindMalformed, Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
