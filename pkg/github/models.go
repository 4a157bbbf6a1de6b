package github

// Repository is a repository as served to API clients.
type Repository struct {
	ID              int64   `json:"id"`
	URL             string  `json:"url"`
	Name            string  `json:"name"`
	Private         bool    `json:"private"`
	AvatarURL       string  `json:"avatar_url"`
	Description     *string `json:"description"`
	StarsCount      int64   `json:"stars_count"`
	OpenIssuesCount int64   `json:"open_issues_count"`
	HasIssues       bool    `json:"has_issues"`
	License         *string `json:"license"`
}

// RepositoriesResponse is the payload of the repository search route.
type RepositoriesResponse struct {
	TotalCount int64        `json:"total_count"`
	Items      []Repository `json:"items"`
}

// PullRequest links an issue to its pull request.
type PullRequest struct {
	URL string `json:"url"`
}

// Issue is an issue as served to API clients.
type Issue struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description *string      `json:"description"`
	Body        *string      `json:"body"`
	URL         string       `json:"url"`
	State       string       `json:"state"`
	PullRequest *PullRequest `json:"pull_request"`
}

// GoodFirstIssuesResponse is the payload of the good-first-issues route.
type GoodFirstIssuesResponse struct {
	Items []Issue `json:"items"`
}

// PageParams selects a page of results.
type PageParams struct {
	PerPage int
	Page    int
}

// Upstream payloads, reduced to the fields the service maps.

type apiSearchResponse struct {
	TotalCount int64           `json:"total_count"`
	Items      []apiRepository `json:"items"`
}

type apiRepository struct {
	ID              int64   `json:"id"`
	HTMLURL         string  `json:"html_url"`
	FullName        string  `json:"full_name"`
	Private         bool    `json:"private"`
	Description     *string `json:"description"`
	StargazersCount int64   `json:"stargazers_count"`
	OpenIssuesCount int64   `json:"open_issues_count"`
	HasIssues       bool    `json:"has_issues"`
	Owner           struct {
		AvatarURL string `json:"avatar_url"`
	} `json:"owner"`
	License *struct {
		Name string `json:"name"`
	} `json:"license"`
}

type apiIssue struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Body        *string `json:"body"`
	HTMLURL     string  `json:"html_url"`
	State       string  `json:"state"`
	PullRequest *struct {
		HTMLURL string `json:"html_url"`
	} `json:"pull_request"`
}

type apiErrorPayload struct {
	Message string `json:"message"`
}

func (r apiRepository) toRepository() Repository {
	repo := Repository{
		ID:              r.ID,
		URL:             r.HTMLURL,
		Name:            r.FullName,
		Private:         r.Private,
		AvatarURL:       r.Owner.AvatarURL,
		Description:     r.Description,
		StarsCount:      r.StargazersCount,
		OpenIssuesCount: r.OpenIssuesCount,
		HasIssues:       r.HasIssues,
	}
	if r.License != nil {
		name := r.License.Name
		repo.License = &name
	}
	return repo
}

func (i apiIssue) toIssue() Issue {
	issue := Issue{
		ID:          i.ID,
		Title:       i.Title,
		Description: i.Description,
		Body:        i.Body,
		URL:         i.HTMLURL,
		State:       i.State,
	}
	if i.PullRequest != nil {
		issue.PullRequest = &PullRequest{URL: i.PullRequest.HTMLURL}
	}
	return issue
}
