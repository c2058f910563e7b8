// Package tracker is the issue-tracking collaborator: every verified build
// request becomes one issue, and the live queue is the set of open issues.
package tracker

import (
	"context"
	"time"
)

// Issue is the downstream work item. The queue ranker only consumes the
// number, title, labels and creation time.
type Issue struct {
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	URL       string    `json:"html_url"`
	Labels    []string  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Client is implemented by the GitHub client and by test fakes.
type Client interface {
	CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error)
	ListIssues(ctx context.Context, state string) ([]Issue, error)
}
