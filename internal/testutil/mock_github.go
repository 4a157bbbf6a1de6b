// Package testutil provides test doubles for the GitHub API and the shared store.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// MockResponse defines the behavior for a mock GitHub endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockGitHub is a configurable mock GitHub API server for testing.
type MockGitHub struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	requestCount      int
	pathCounts        map[string]int
	LastRequestHeader http.Header
	LastRequestQuery  string
}

// NewMockGitHub creates a new mock GitHub server.
func NewMockGitHub() *MockGitHub {
	mock := &MockGitHub{
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.requestCount++
		mock.pathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastRequestQuery = r.URL.RawQuery
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Not Found"}`))
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockGitHub) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockGitHub) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockGitHub) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.pathCounts = make(map[string]int)
	m.LastRequestHeader = nil
	m.LastRequestQuery = ""
}

// SetHandler sets a custom handler for a specific path.
func (m *MockGitHub) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockGitHub) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}

		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// RequestCount returns the number of requests made to the server.
func (m *MockGitHub) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// PathCount returns the number of requests made to path.
func (m *MockGitHub) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// LastHeader returns the headers of the most recent request.
func (m *MockGitHub) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// LastQuery returns the raw query of the most recent request.
func (m *MockGitHub) LastQuery() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestQuery
}

// SearchRepositoriesBody is a minimal GitHub repository search payload.
const SearchRepositoriesBody = `{
  "total_count": 1,
  "incomplete_results": false,
  "items": [
    {
      "id": 724712,
      "full_name": "rust-lang/rust",
      "private": false,
      "html_url": "https://github.com/rust-lang/rust",
      "description": "Empowering everyone to build reliable and efficient software.",
      "stargazers_count": 98000,
      "open_issues_count": 9800,
      "has_issues": true,
      "owner": {"login": "rust-lang", "avatar_url": "https://avatars.githubusercontent.com/u/5430905?v=4"},
      "license": {"key": "other", "name": "Other"}
    }
  ]
}`

// IssuesBody is a minimal GitHub issue list payload.
const IssuesBody = `[
  {
    "id": 1,
    "title": "Improve diagnostics",
    "body": "Some body",
    "html_url": "https://github.com/rust-lang/rust/issues/1",
    "state": "open",
    "labels": [{"name": "good first issue"}]
  },
  {
    "id": 2,
    "title": "Fix typo",
    "body": null,
    "html_url": "https://github.com/rust-lang/rust/pull/2",
    "state": "open",
    "pull_request": {"html_url": "https://github.com/rust-lang/rust/pull/2"}
  }
]`

// NewHealthyResponse creates a standard 200 OK response with GitHub rate limit headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "30",
			"X-RateLimit-Remaining": "29",
			"X-RateLimit-Reset":     strconv.FormatInt(time.Now().Add(time.Minute).Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewRetryAfterResponse creates a 429 response carrying a Retry-After header.
func NewRetryAfterResponse(seconds int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"API rate limit exceeded"}`,
		Headers: map[string]string{
			"Retry-After":  strconv.Itoa(seconds),
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewExhaustedResponse creates a 403 response for an exhausted primary rate limit.
func NewExhaustedResponse(reset time.Time) MockResponse {
	return MockResponse{
		StatusCode: http.StatusForbidden,
		Body:       `{"message":"API rate limit exceeded"}`,
		Headers: map[string]string{
			"X-RateLimit-Limit":     "30",
			"X-RateLimit-Remaining": "0",
			"X-RateLimit-Reset":     strconv.FormatInt(reset.Unix(), 10),
			"Content-Type":          "application/json; charset=utf-8",
		},
	}
}

// NewErrorResponse creates an error response without rate limit headers.
func NewErrorResponse(status int, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Body:       `{"message":"` + message + `"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}
