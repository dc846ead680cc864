package atcoder

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

// DefaultAggregatorURL is the public aggregator API root.
const DefaultAggregatorURL = "https://kenkoooo.com/atcoder"

// AggregatorClient reads the aggregator's static JSON resources.
type AggregatorClient struct {
	baseURL string
	fetch   *fetcher
}

// NewAggregatorClient builds a client rooted at baseURL.
func NewAggregatorClient(baseURL string, cfg Config, limiter Waiter) *AggregatorClient {
	if baseURL == "" {
		baseURL = DefaultAggregatorURL
	}
	return &AggregatorClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		fetch:   newFetcher(cfg, limiter),
	}
}

// Contests lists every contest. Category is left empty.
func (c *AggregatorClient) Contests(ctx context.Context) ([]store.Contest, error) {
	var contests []store.Contest
	if err := c.getJSON(ctx, "/resources/contests.json", &contests); err != nil {
		return nil, err
	}
	return contests, nil
}

// Problems lists every problem. URL and HTML are left empty.
func (c *AggregatorClient) Problems(ctx context.Context) ([]store.Problem, error) {
	var problems []store.Problem
	if err := c.getJSON(ctx, "/resources/problems.json", &problems); err != nil {
		return nil, err
	}
	return problems, nil
}

// ProblemModels returns the difficulty model of every estimated problem.
func (c *AggregatorClient) ProblemModels(ctx context.Context) ([]store.Difficulty, error) {
	var models map[string]store.Difficulty
	if err := c.getJSON(ctx, "/resources/problem-models.json", &models); err != nil {
		return nil, err
	}
	out := make([]store.Difficulty, 0, len(models))
	for id, m := range models {
		m.ProblemID = id
		out = append(out, m)
	}
	return out, nil
}

func (c *AggregatorClient) getJSON(ctx context.Context, path string, dst any) error {
	p, err := c.fetch.get(ctx, c.baseURL+path)
	if err != nil {
		return fmt.Errorf("aggregator %s: %w", path, err)
	}
	if err := json.Unmarshal(p.Body, dst); err != nil {
		return decodeError(path, err)
	}
	return nil
}
