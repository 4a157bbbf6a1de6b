// Package github provides the upstream GitHub REST client used by the API
// handlers: authenticated requests, optional pacing, response mapping and
// error classification.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for GitHub client operations.
var (
	githubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_requests_total",
		Help: "Total GitHub requests by endpoint and status",
	}, []string{"endpoint", "status"})

	githubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "github_request_duration_seconds",
		Help:    "GitHub request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	githubErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_errors_total",
		Help: "Total GitHub errors by class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	// APIVersion is sent as X-GitHub-Api-Version.
	APIVersion = "2022-11-28"

	// DefaultUserAgent identifies the service when none is configured.
	DefaultUserAgent = "github-api-cache"

	// DefaultPerPage and DefaultPage apply when a request omits them.
	DefaultPerPage = 10
	DefaultPage    = 1

	// GoodFirstIssueLabel selects beginner friendly issues.
	GoodFirstIssueLabel = "good first issue"

	// RepositoriesQuery is the search query behind the repository listing.
	RepositoriesQuery = "language:rust"
)

// Endpoint labels used for metrics and logs.
const (
	endpointSearchRepositories = "search_repositories"
	endpointGoodFirstIssues    = "good_first_issues"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the GitHub REST API.
	BaseURL string

	// Token is sent as a bearer token (REQUIRED).
	Token string

	// UserAgent header (GitHub rejects requests without one).
	UserAgent string

	// Timeout bounds a single upstream request.
	Timeout time.Duration

	// MaxRPS paces outbound requests. Zero disables pacing.
	MaxRPS float64
}

// DefaultConfig returns a default configuration for token.
func DefaultConfig(token string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		Token:     token,
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// Client talks to the GitHub REST API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	limiter    *rate.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates a new GitHub client.
func New(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxRPS < 0 {
		return nil, fmt.Errorf("max rps must be >= 0 (got %v)", cfg.MaxRPS)
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	var limiter *rate.Limiter
	if cfg.MaxRPS > 0 {
		burst := int(cfg.MaxRPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), burst)
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		limiter:    limiter,
		config:     cfg,
		logger:     zerolog.Nop(),
	}, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// SetLogger sets the component logger. Clients log nothing until one is set.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
}

// SearchRepositories lists Rust repositories ordered by help-wanted issues.
func (c *Client) SearchRepositories(ctx context.Context, p PageParams) (*RepositoriesResponse, error) {
	q := url.Values{}
	q.Set("q", RepositoriesQuery)
	q.Set("sort", "help-wanted-issues")
	q.Set("order", "desc")
	setPage(q, p)

	var payload apiSearchResponse
	if err := c.get(ctx, endpointSearchRepositories, "/search/repositories", q, &payload); err != nil {
		return nil, err
	}

	resp := &RepositoriesResponse{
		TotalCount: payload.TotalCount,
		Items:      make([]Repository, 0, len(payload.Items)),
	}
	for _, r := range payload.Items {
		resp.Items = append(resp.Items, r.toRepository())
	}
	return resp, nil
}

// GoodFirstIssues lists the open issues of owner/repo labelled as good first
// issues, most recently updated first.
func (c *Client) GoodFirstIssues(ctx context.Context, owner, repo string, p PageParams) (*GoodFirstIssuesResponse, error) {
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("owner and repo are required")
	}

	q := url.Values{}
	q.Set("labels", GoodFirstIssueLabel)
	q.Set("sort", "updated")
	q.Set("direction", "desc")
	setPage(q, p)

	path := "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/issues"

	var payload []apiIssue
	if err := c.get(ctx, endpointGoodFirstIssues, path, q, &payload); err != nil {
		return nil, err
	}

	resp := &GoodFirstIssuesResponse{Items: make([]Issue, 0, len(payload))}
	for _, i := range payload {
		resp.Items = append(resp.Items, i.toIssue())
	}
	return resp, nil
}

func setPage(q url.Values, p PageParams) {
	perPage, page := p.PerPage, p.Page
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = DefaultPage
	}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))
}

// get performs a GET request and decodes a successful JSON body into out.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values, out any) error {
	startTime := time.Now()
	defer func() {
		githubRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for request slot: %w", err)
		}
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("X-GitHub-Api-Version", APIVersion)
	req.Header.Set("User-Agent", c.config.UserAgent)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("path", path).
		Msg("Executing GitHub request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		githubErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		githubRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		return &APIError{
			Class:   ErrorClassNetwork,
			Message: "request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()

	githubRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := c.toError(resp)
		githubErrorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(apiErr.Class)).
			Str("message", apiErr.Message).
			Msg("GitHub request error")
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		githubErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		return &APIError{
			StatusCode: http.StatusBadGateway,
			Class:      ErrorClassServer,
			Message:    "invalid response body",
			Err:        err,
		}
	}
	return nil
}

// toError builds an APIError from a non-2xx response.
func (c *Client) toError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Class:      classify(resp.StatusCode, resp.Header),
		Header:     resp.Header.Clone(),
		Message:    http.StatusText(resp.StatusCode),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		apiErr.Err = err
		return apiErr
	}

	var payload apiErrorPayload
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}

// StatusCode returns the HTTP status a handler should answer with for err.
// Upstream failures keep GitHub's status, transport failures map to 502.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode > 0 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
