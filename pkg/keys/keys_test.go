package keys

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		query    string
		expected string
	}{
		{
			name:     "path only",
			path:     "/repositories",
			expected: "repositories",
		},
		{
			name:     "path with query",
			path:     "/repositories",
			query:    "page=3",
			expected: "repositories:page=3",
		},
		{
			name:     "nested path and sorted query",
			path:     "/api/v1/users",
			query:    "name=John&age=30",
			expected: "api:v1:users:age=30:name=John",
		},
		{
			name:     "trailing slash",
			path:     "/api/v1/users/",
			expected: "api:v1:users",
		},
		{
			name:     "query only",
			path:     "/",
			query:    "b=2&a=1",
			expected: "a=1:b=2",
		},
		{
			name:     "empty tokens ignored",
			path:     "/x",
			query:    "b=2&&a=1&",
			expected: "x:a=1:b=2",
		},
		{
			name:     "sorted by raw token not by name",
			path:     "/x",
			query:    "a=2&a=10",
			expected: "x:a=10:a=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Derive(tt.path, tt.query)
			if err != nil {
				t.Fatalf("Derive() error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("Derive() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestDerive_OrderIndependent(t *testing.T) {
	orders := []string{
		"per_page=5&page=3&owner=rust-lang",
		"page=3&owner=rust-lang&per_page=5",
		"owner=rust-lang&per_page=5&page=3",
	}

	first, err := Derive("/repositories", orders[0])
	if err != nil {
		t.Fatalf("Derive() error = %v", err)
	}

	for _, q := range orders[1:] {
		got, err := Derive("/repositories", q)
		if err != nil {
			t.Fatalf("Derive(%q) error = %v", q, err)
		}
		if got != first {
			t.Errorf("Derive(%q) = %q, want %q", q, got, first)
		}
	}
}

func TestDerive_DifferentValues(t *testing.T) {
	k1, _ := Derive("/repositories", "page=1")
	k2, _ := Derive("/repositories", "page=2")

	if k1 == k2 {
		t.Errorf("different query values produced the same key %q", k1)
	}
}

func TestDerive_Empty(t *testing.T) {
	for _, path := range []string{"", "/", "//"} {
		if _, err := Derive(path, ""); !errors.Is(err, ErrEmptyKey) {
			t.Errorf("Derive(%q, \"\") error = %v, want ErrEmptyKey", path, err)
		}
	}
}

func TestRateLimit(t *testing.T) {
	got := RateLimit("/api/v1/github/repositories")
	want := "errors:rate_limit:api:v1:github:repositories"
	if got != want {
		t.Errorf("RateLimit() = %q, want %q", got, want)
	}
}

func TestRoutePath(t *testing.T) {
	var seen []string
	record := func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, RoutePath(r))
	}

	r := chi.NewRouter()
	r.Get("/health", record)
	r.Route("/api/v1/github", func(r chi.Router) {
		r.Get("/repositories", record)
		r.Get("/repositories/{repo}/good-first-issues", record)
	})

	for _, target := range []string{
		"/health",
		"/api/v1/github/repositories?page=3",
		"/api/v1/github/repositories/rust/good-first-issues?owner=rust-lang",
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	expected := []string{"/health", "/repositories", "/repositories/rust/good-first-issues"}
	if len(seen) != len(expected) {
		t.Fatalf("RoutePath calls = %v, want %v", seen, expected)
	}
	for i := range expected {
		if seen[i] != expected[i] {
			t.Errorf("RoutePath() = %q, want %q", seen[i], expected[i])
		}
	}
}

func TestRoutePath_WithoutRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/repositories?page=1", nil)
	if got := RoutePath(req); got != "/repositories" {
		t.Errorf("RoutePath() = %q, want /repositories", got)
	}
}
