package github

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/github-api-cache/internal/testutil"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, mock *testutil.MockGitHub) *Client {
	t.Helper()
	cfg := DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.UserAgent = "test-agent"
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultConfig("token"), wantErr: false},
		{name: "missing token", cfg: DefaultConfig(""), wantErr: true},
		{name: "relative base url", cfg: Config{Token: "t", BaseURL: "api.github.com"}, wantErr: true},
		{name: "negative rps", cfg: Config{Token: "t", MaxRPS: -1}, wantErr: true},
		{name: "empty base url falls back", cfg: Config{Token: "t"}, wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_SilentByDefault(t *testing.T) {
	client, err := New(DefaultConfig("token"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.logger.GetLevel() != zerolog.Disabled {
		t.Errorf("default logger level = %v, want disabled", client.logger.GetLevel())
	}

	buf := &bytes.Buffer{}
	client.SetLogger(zerolog.New(buf))
	client.logger.Info().Msg("configured")
	if !strings.Contains(buf.String(), "configured") {
		t.Errorf("SetLogger output = %q", buf.String())
	}
}

func TestSearchRepositories(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/search/repositories", testutil.NewHealthyResponse(testutil.SearchRepositoriesBody))

	client := newTestClient(t, mock)
	resp, err := client.SearchRepositories(context.Background(), PageParams{Page: 3})
	if err != nil {
		t.Fatalf("SearchRepositories() error = %v", err)
	}

	header := mock.LastHeader()
	expectedHeaders := map[string]string{
		"Accept":               "application/vnd.github+json",
		"Authorization":        "Bearer test-token",
		"X-Github-Api-Version": APIVersion,
		"User-Agent":           "test-agent",
	}
	for k, v := range expectedHeaders {
		if got := header.Get(k); got != v {
			t.Errorf("header %s = %q, want %q", k, got, v)
		}
	}

	query := mock.LastQuery()
	expectedQuery := "order=desc&page=3&per_page=10&q=language%3Arust&sort=help-wanted-issues"
	if query != expectedQuery {
		t.Errorf("query = %q, want %q", query, expectedQuery)
	}

	if resp.TotalCount != 1 || len(resp.Items) != 1 {
		t.Fatalf("response = %+v, want one repository", resp)
	}
	repo := resp.Items[0]
	if repo.Name != "rust-lang/rust" {
		t.Errorf("Name = %q, want rust-lang/rust", repo.Name)
	}
	if repo.URL != "https://github.com/rust-lang/rust" {
		t.Errorf("URL = %q", repo.URL)
	}
	if repo.AvatarURL == "" {
		t.Error("AvatarURL should be mapped from owner")
	}
	if repo.StarsCount != 98000 {
		t.Errorf("StarsCount = %d, want 98000", repo.StarsCount)
	}
	if repo.License == nil || *repo.License != "Other" {
		t.Errorf("License = %v, want Other", repo.License)
	}
}

func TestSearchRepositories_EmptyItems(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/search/repositories", testutil.NewHealthyResponse(`{"total_count":0,"items":[]}`))

	resp, err := newTestClient(t, mock).SearchRepositories(context.Background(), PageParams{})
	if err != nil {
		t.Fatalf("SearchRepositories() error = %v", err)
	}
	if resp.Items == nil {
		t.Error("Items should be an empty slice, not nil")
	}
}

func TestGoodFirstIssues(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/repos/rust-lang/rust/issues", testutil.NewHealthyResponse(testutil.IssuesBody))

	client := newTestClient(t, mock)
	resp, err := client.GoodFirstIssues(context.Background(), "rust-lang", "rust", PageParams{PerPage: 5, Page: 2})
	if err != nil {
		t.Fatalf("GoodFirstIssues() error = %v", err)
	}

	expectedQuery := "direction=desc&labels=good+first+issue&page=2&per_page=5&sort=updated"
	if query := mock.LastQuery(); query != expectedQuery {
		t.Errorf("query = %q, want %q", query, expectedQuery)
	}

	if len(resp.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(resp.Items))
	}
	if resp.Items[0].PullRequest != nil {
		t.Error("first issue should not link a pull request")
	}
	if resp.Items[0].Body == nil || *resp.Items[0].Body != "Some body" {
		t.Errorf("Body = %v, want Some body", resp.Items[0].Body)
	}
	if resp.Items[1].Body != nil {
		t.Errorf("null body should stay nil, got %q", *resp.Items[1].Body)
	}
	if resp.Items[1].PullRequest == nil || resp.Items[1].PullRequest.URL != "https://github.com/rust-lang/rust/pull/2" {
		t.Errorf("PullRequest = %+v", resp.Items[1].PullRequest)
	}
}

func TestGoodFirstIssues_MissingOwner(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()

	_, err := newTestClient(t, mock).GoodFirstIssues(context.Background(), "", "rust", PageParams{})
	if err == nil {
		t.Fatal("expected error for missing owner")
	}
	if mock.RequestCount() != 0 {
		t.Errorf("RequestCount = %d, want 0", mock.RequestCount())
	}
}

func TestClient_UpstreamErrors(t *testing.T) {
	reset := time.Now().Add(5 * time.Minute)

	tests := []struct {
		name        string
		response    testutil.MockResponse
		wantStatus  int
		wantClass   ErrorClass
		wantMessage string
		wantHeader  string
	}{
		{
			name:        "secondary rate limit",
			response:    testutil.NewRetryAfterResponse(60),
			wantStatus:  http.StatusTooManyRequests,
			wantClass:   ErrorClassRateLimit,
			wantMessage: "API rate limit exceeded",
			wantHeader:  "Retry-After",
		},
		{
			name:        "primary rate limit exhausted",
			response:    testutil.NewExhaustedResponse(reset),
			wantStatus:  http.StatusForbidden,
			wantClass:   ErrorClassRateLimit,
			wantMessage: "API rate limit exceeded",
			wantHeader:  "X-RateLimit-Reset",
		},
		{
			name:        "forbidden without rate limit",
			response:    testutil.NewErrorResponse(http.StatusForbidden, "Resource not accessible"),
			wantStatus:  http.StatusForbidden,
			wantClass:   ErrorClassClient,
			wantMessage: "Resource not accessible",
		},
		{
			name:        "validation failed",
			response:    testutil.NewErrorResponse(http.StatusUnprocessableEntity, "Validation Failed"),
			wantStatus:  http.StatusUnprocessableEntity,
			wantClass:   ErrorClassClient,
			wantMessage: "Validation Failed",
		},
		{
			name:        "server error without json body",
			response:    testutil.MockResponse{StatusCode: http.StatusBadGateway, Body: "<html>bad gateway</html>"},
			wantStatus:  http.StatusBadGateway,
			wantClass:   ErrorClassServer,
			wantMessage: "Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockGitHub()
			defer mock.Close()
			mock.SetResponse("/search/repositories", tt.response)

			_, err := newTestClient(t, mock).SearchRepositories(context.Background(), PageParams{})

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
			if apiErr.Class != tt.wantClass {
				t.Errorf("Class = %q, want %q", apiErr.Class, tt.wantClass)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
			if tt.wantHeader != "" && apiErr.Header.Get(tt.wantHeader) == "" {
				t.Errorf("header %s not forwarded", tt.wantHeader)
			}
			if StatusCode(err) != tt.wantStatus {
				t.Errorf("StatusCode(err) = %d, want %d", StatusCode(err), tt.wantStatus)
			}
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	mock := testutil.NewMockGitHub()
	client := newTestClient(t, mock)
	mock.Close()

	_, err := client.SearchRepositories(context.Background(), PageParams{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Class != ErrorClassNetwork {
		t.Errorf("Class = %q, want network", apiErr.Class)
	}
	if StatusCode(err) != http.StatusBadGateway {
		t.Errorf("StatusCode(err) = %d, want 502", StatusCode(err))
	}
}

func TestClient_InvalidBody(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/search/repositories", testutil.NewHealthyResponse(`{"items": "nope"}`))

	_, err := newTestClient(t, mock).SearchRepositories(context.Background(), PageParams{})
	if StatusCode(err) != http.StatusBadGateway {
		t.Errorf("StatusCode(err) = %d, want 502 (err = %v)", StatusCode(err), err)
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	resp := testutil.NewHealthyResponse(testutil.SearchRepositoriesBody)
	resp.Delay = 2 * time.Second
	mock.SetResponse("/search/repositories", resp)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, mock).SearchRepositories(ctx, PageParams{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}

func TestClient_Pacing(t *testing.T) {
	mock := testutil.NewMockGitHub()
	defer mock.Close()
	mock.SetResponse("/search/repositories", testutil.NewHealthyResponse(testutil.SearchRepositoriesBody))

	cfg := DefaultConfig("test-token")
	cfg.BaseURL = mock.URL()
	cfg.MaxRPS = 0.1
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := client.SearchRepositories(context.Background(), PageParams{}); err != nil {
		t.Fatalf("first request error = %v", err)
	}

	// The next slot is ~10s away, beyond the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := client.SearchRepositories(ctx, PageParams{}); err == nil {
		t.Error("second request should fail to get a slot")
	}
	if mock.RequestCount() != 1 {
		t.Errorf("RequestCount = %d, want 1", mock.RequestCount())
	}
}
