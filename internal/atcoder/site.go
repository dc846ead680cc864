package atcoder

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

// DefaultSiteURL is the contest site root.
const DefaultSiteURL = "https://atcoder.jp"

// Credentials log the site client in. Empty credentials skip login.
type Credentials struct {
	Username string
	Password string
}

// ProblemPage is a fetched task statement.
type ProblemPage struct {
	URL  string
	HTML string
}

// SiteClient scrapes HTML pages of the contest site.
type SiteClient struct {
	baseURL string
	creds   Credentials
	fetch   *fetcher

	mu       sync.Mutex
	loggedIn bool
}

// NewSiteClient builds a client rooted at baseURL.
func NewSiteClient(baseURL string, creds Credentials, cfg Config, limiter Waiter) *SiteClient {
	if baseURL == "" {
		baseURL = DefaultSiteURL
	}
	return &SiteClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		creds:   creds,
		fetch:   newFetcher(cfg, limiter),
	}
}

// Login posts the credentials until it succeeds once. The session cookie is
// then reused by every later request of this client.
func (c *SiteClient) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loggedIn {
		return nil
	}
	if err := c.login(ctx); err != nil {
		return err
	}
	c.loggedIn = true
	return nil
}

func (c *SiteClient) login(ctx context.Context) error {
	if c.creds.Username == "" {
		return nil
	}
	loginURL := c.baseURL + "/login"
	form, err := c.fetch.get(ctx, loginURL)
	if err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	token, err := parseCSRFToken(form.Body)
	if err != nil {
		return err
	}
	resp, err := c.fetch.post(ctx, loginURL, map[string]string{
		"username":   c.creds.Username,
		"password":   c.creds.Password,
		"csrf_token": token,
	})
	if err != nil {
		return fmt.Errorf("post login: %w", err)
	}
	if hasPasswordField(resp.Body) {
		return fmt.Errorf("%w: user %s", ErrLogin, c.creds.Username)
	}
	return nil
}

// FetchProblemPage downloads a task statement and minifies it.
func (c *SiteClient) FetchProblemPage(ctx context.Context, contestID, problemID string) (ProblemPage, error) {
	taskURL := fmt.Sprintf("%s/contests/%s/tasks/%s", c.baseURL, url.PathEscape(contestID), url.PathEscape(problemID))
	p, err := c.fetch.get(ctx, taskURL)
	if err != nil {
		return ProblemPage{}, fmt.Errorf("problem %s: %w", problemID, err)
	}
	return ProblemPage{URL: taskURL, HTML: MinifyHTML(string(p.Body))}, nil
}

// FetchSubmissions returns one page (1-based) of a contest's submissions,
// newest first. A page past the end is empty.
func (c *SiteClient) FetchSubmissions(ctx context.Context, contestID string, page int) ([]store.Submission, error) {
	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	pageURL := fmt.Sprintf("%s/contests/%s/submissions?page=%d", c.baseURL, url.PathEscape(contestID), page)
	p, err := c.fetch.get(ctx, pageURL)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("contest %s page %d: %w", contestID, page, err)
	}
	return parseSubmissions(contestID, p.Body)
}

// FetchRanking returns one page (1-based) of the algorithm rating ranking.
func (c *SiteClient) FetchRanking(ctx context.Context, page int) ([]store.User, error) {
	pageURL := fmt.Sprintf("%s/ranking/all?contestType=algo&page=%d", c.baseURL, page)
	p, err := c.fetch.get(ctx, pageURL)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("ranking page %d: %w", page, err)
	}
	return parseRanking(p.Body)
}
