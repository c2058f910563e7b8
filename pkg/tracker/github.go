package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// GitHubClient talks to the GitHub issues API for a single repository.
type GitHubClient struct {
	BaseURL string
	Owner   string
	Repo    string
	client  *http.Client
}

func NewGitHubClient(token, owner, repo string) *GitHubClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	hc := oauth2.NewClient(context.Background(), src)
	hc.Timeout = 30 * time.Second
	return &GitHubClient{
		BaseURL: "https://api.github.com",
		Owner:   owner,
		Repo:    repo,
		client:  hc,
	}
}

type ghIssue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	Labels    []struct {
		Name string `json:"name"`
	} `json:"labels"`
	PullRequest *struct{} `json:"pull_request"`
}

func (g ghIssue) toIssue() Issue {
	labels := make([]string, 0, len(g.Labels))
	for _, l := range g.Labels {
		labels = append(labels, l.Name)
	}
	return Issue{
		Number:    g.Number,
		Title:     g.Title,
		URL:       g.HTMLURL,
		Labels:    labels,
		CreatedAt: g.CreatedAt,
	}
}

func (c *GitHubClient) CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	payload, _ := json.Marshal(map[string]interface{}{
		"title":  title,
		"body":   body,
		"labels": labels,
	})
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues", c.BaseURL, c.Owner, c.Repo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create issue: %d %s", resp.StatusCode, string(respBody))
	}
	var out ghIssue
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	issue := out.toIssue()
	return &issue, nil
}

// ListIssues returns issues in the given state ("open", "closed" or "all"),
// oldest first. Pull requests share the issues endpoint and are filtered out.
func (c *GitHubClient) ListIssues(ctx context.Context, state string) ([]Issue, error) {
	q := url.Values{}
	q.Set("state", state)
	q.Set("sort", "created")
	q.Set("direction", "asc")
	q.Set("per_page", "100")
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues?%s", c.BaseURL, c.Owner, c.Repo, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list issues: %d %s", resp.StatusCode, string(respBody))
	}
	var raw []ghIssue
	if err := json.Unmarshal(respBody, &raw); err != nil {
		return nil, err
	}
	issues := make([]Issue, 0, len(raw))
	for _, g := range raw {
		if g.PullRequest != nil {
			continue
		}
		issues = append(issues, g.toIssue())
	}
	return issues, nil
}
