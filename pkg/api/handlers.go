package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Sternrassler/github-api-cache/pkg/github"
	"github.com/Sternrassler/github-api-cache/pkg/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// maxPerPage is GitHub's page size limit.
const maxPerPage = 100

type handlers struct {
	github Upstream
	ready  Pinger
}

// errorResponse is the body of every non-2xx API answer.
type errorResponse struct {
	Message string `json:"message"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *handlers) readiness(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := h.ready.Ping(ctx); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("Readiness check failed")
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: "store unavailable"})
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *handlers) repositories(w http.ResponseWriter, r *http.Request) {
	page, err := parsePage(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	resp, err := h.github.SearchRepositories(r.Context(), page)
	if err != nil {
		h.writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) goodFirstIssues(w http.ResponseWriter, r *http.Request) {
	repo := chi.URLParam(r, "repo")
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "owner query parameter is required"})
		return
	}

	page, err := parsePage(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	resp, err := h.github.GoodFirstIssues(r.Context(), owner, repo, page)
	if err != nil {
		h.writeUpstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeUpstreamError answers with GitHub's status and message and forwards
// the rate limit headers the breaker reads.
func (h *handlers) writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	status := github.StatusCode(err)
	message := http.StatusText(status)

	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			message = apiErr.Message
		}
		for _, name := range ratelimit.Headers {
			if v := apiErr.Header.Get(name); v != "" {
				w.Header().Set(name, v)
			}
		}
	}

	if r.Context().Err() == nil {
		hlog.FromRequest(r).Warn().Err(err).Int("status", status).Msg("GitHub request failed")
	}
	writeJSON(w, status, errorResponse{Message: message})
}

// parsePage reads per_page and page, leaving zero for the client defaults.
func parsePage(r *http.Request) (github.PageParams, error) {
	q := r.URL.Query()

	perPage, err := positiveInt(q.Get("per_page"), "per_page")
	if err != nil {
		return github.PageParams{}, err
	}
	if perPage > maxPerPage {
		return github.PageParams{}, fmt.Errorf("per_page must be at most %d", maxPerPage)
	}

	page, err := positiveInt(q.Get("page"), "page")
	if err != nil {
		return github.PageParams{}, err
	}
	return github.PageParams{PerPage: perPage, Page: page}, nil
}

func positiveInt(value, name string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}

// writeJSON writes v in compact form, the same bytes the cache stores.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("encode response: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
