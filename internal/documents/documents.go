// Package documents projects stored rows into search engine documents.
package documents

import (
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

// DefaultBaseURL is the contest site used to build document links.
const DefaultBaseURL = "https://atcoder.jp"

// ProblemDoc is the indexed form of a problem.
type ProblemDoc struct {
	ProblemID      string    `json:"problem_id"`
	ProblemTitle   string    `json:"problem_title"`
	ProblemURL     string    `json:"problem_url"`
	ContestID      string    `json:"contest_id"`
	ContestTitle   string    `json:"contest_title"`
	ContestURL     string    `json:"contest_url"`
	Category       string    `json:"category"`
	StartAt        time.Time `json:"start_at"`
	Duration       int64     `json:"duration"`
	RateChange     string    `json:"rate_change"`
	Difficulty     *int64    `json:"difficulty,omitempty"`
	Color          Color     `json:"color,omitempty"`
	IsExperimental bool      `json:"is_experimental"`
	StatementJA    string    `json:"statement_ja"`
	StatementEN    string    `json:"statement_en"`
}

// UserDoc is the indexed form of a user.
type UserDoc struct {
	UserID        string  `json:"user_id"`
	Rating        int32   `json:"rating"`
	HighestRating int32   `json:"highest_rating"`
	Color         Color   `json:"color"`
	HighestColor  Color   `json:"highest_color"`
	Affiliation   *string `json:"affiliation,omitempty"`
	BirthYear     *int32  `json:"birth_year,omitempty"`
	Country       *string `json:"country,omitempty"`
	Crown         *string `json:"crown,omitempty"`
	JoinCount     int32   `json:"join_count"`
	Rank          int32   `json:"rank"`
	ActiveRank    *int32  `json:"active_rank,omitempty"`
	Wins          int32   `json:"wins"`
	UserURL       string  `json:"user_url"`
}

// SubmissionDoc is the indexed form of a submission.
type SubmissionDoc struct {
	SubmissionID  int64     `json:"submission_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
	SubmissionURL string    `json:"submission_url"`
	ProblemID     string    `json:"problem_id"`
	ProblemTitle  string    `json:"problem_title"`
	ContestID     string    `json:"contest_id"`
	ContestTitle  string    `json:"contest_title"`
	Category      string    `json:"category"`
	UserID        string    `json:"user_id"`
	Language      string    `json:"language"`
	LanguageGroup string    `json:"language_group"`
	Point         float64   `json:"point"`
	Length        int64     `json:"length"`
	Result        string    `json:"result"`
	ExecutionTime *int64    `json:"execution_time,omitempty"`
}

// Builder turns rows into documents with links under one site.
type Builder struct {
	baseURL string
}

// NewBuilder returns a Builder. An empty baseURL uses DefaultBaseURL.
func NewBuilder(baseURL string) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Builder{baseURL: strings.TrimRight(baseURL, "/")}
}

// Problem builds a ProblemDoc. It fails when the stored page cannot be
// parsed.
func (b *Builder) Problem(row store.ProblemRow) (ProblemDoc, error) {
	ja, en, err := ExtractStatement(row.HTML)
	if err != nil {
		return ProblemDoc{}, fmt.Errorf("problem %s: %w", row.ID, err)
	}
	problemURL := row.URL
	if problemURL == "" {
		problemURL = fmt.Sprintf("%s/contests/%s/tasks/%s", b.baseURL, row.ContestID, row.ID)
	}
	doc := ProblemDoc{
		ProblemID:      row.ID,
		ProblemTitle:   row.Title,
		ProblemURL:     problemURL,
		ContestID:      row.ContestID,
		ContestTitle:   row.ContestTitle,
		ContestURL:     fmt.Sprintf("%s/contests/%s", b.baseURL, row.ContestID),
		Category:       row.Category,
		StartAt:        time.Unix(row.StartEpochSecond, 0).UTC(),
		Duration:       row.DurationSecond,
		RateChange:     row.RateChange,
		IsExperimental: row.IsExperimental,
		StatementJA:    ja,
		StatementEN:    en,
	}
	if row.Difficulty != nil {
		clipped := ClipDifficulty(*row.Difficulty)
		doc.Difficulty = &clipped
		doc.Color = RatingColor(clipped)
	}
	return doc, nil
}

// User builds a UserDoc.
func (b *Builder) User(u store.User) (UserDoc, error) {
	return UserDoc{
		UserID:        u.UserID,
		Rating:        u.Rating,
		HighestRating: u.HighestRating,
		Color:         RatingColor(int64(u.Rating)),
		HighestColor:  RatingColor(int64(u.HighestRating)),
		Affiliation:   u.Affiliation,
		BirthYear:     u.BirthYear,
		Country:       u.Country,
		Crown:         u.Crown,
		JoinCount:     u.JoinCount,
		Rank:          u.Rank,
		ActiveRank:    u.ActiveRank,
		Wins:          u.Wins,
		UserURL:       fmt.Sprintf("%s/users/%s", b.baseURL, u.UserID),
	}, nil
}

// Submission builds a SubmissionDoc.
func (b *Builder) Submission(row store.SubmissionRow) (SubmissionDoc, error) {
	return SubmissionDoc{
		SubmissionID:  row.ID,
		SubmittedAt:   time.Unix(row.EpochSecond, 0).UTC(),
		SubmissionURL: fmt.Sprintf("%s/contests/%s/submissions/%d", b.baseURL, row.ContestID, row.ID),
		ProblemID:     row.ProblemID,
		ProblemTitle:  row.ProblemTitle,
		ContestID:     row.ContestID,
		ContestTitle:  row.ContestTitle,
		Category:      row.Category,
		UserID:        row.UserID,
		Language:      row.Language,
		LanguageGroup: LanguageGroup(row.Language),
		Point:         row.Point,
		Length:        row.Length,
		Result:        row.Result,
		ExecutionTime: row.ExecutionTime,
	}, nil
}
