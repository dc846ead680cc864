package store

// Contest is a contest as listed by the aggregator. Category is derived by the
// categorizer and never taken from the remote listing.
type Contest struct {
	ID               string `json:"id"`
	StartEpochSecond int64  `json:"start_epoch_second"`
	DurationSecond   int64  `json:"duration_second"`
	Title            string `json:"title"`
	RateChange       string `json:"rate_change"`
	Category         string `json:"-"`
}

// Problem is a task page. HTML holds the minified raw page so statement text
// can be extracted again without re-fetching.
type Problem struct {
	ID           string `json:"id"`
	ContestID    string `json:"contest_id"`
	ProblemIndex string `json:"problem_index"`
	Name         string `json:"name"`
	Title        string `json:"title"`
	URL          string `json:"-"`
	HTML         string `json:"-"`
}

// Difficulty is the estimated model for one problem.
type Difficulty struct {
	ProblemID        string   `json:"-"`
	Slope            *float64 `json:"slope"`
	Intercept        *float64 `json:"intercept"`
	Variance         *float64 `json:"variance"`
	Difficulty       *int64   `json:"difficulty"`
	Discrimination   *float64 `json:"discrimination"`
	IrtLoglikelihood *float64 `json:"irt_loglikelihood"`
	IrtUsers         *float64 `json:"irt_users"`
	IsExperimental   bool     `json:"is_experimental"`
}

// Submission is unique by (ID, EpochSecond): a rejudge produces a new row for
// the same ID.
type Submission struct {
	ID            int64
	EpochSecond   int64
	ProblemID     string
	ContestID     string
	UserID        string
	Language      string
	Point         float64
	Length        int64
	Result        string
	ExecutionTime *int64
}

// User is one row of the rating ranking.
type User struct {
	UserID        string
	Rating        int32
	HighestRating int32
	Affiliation   *string
	BirthYear     *int32
	Country       *string
	Crown         *string
	JoinCount     int32
	Rank          int32
	ActiveRank    *int32
	Wins          int32
}

// ProblemRow is the joined row the problem indexer reads.
type ProblemRow struct {
	Problem
	ContestTitle     string
	StartEpochSecond int64
	DurationSecond   int64
	RateChange       string
	Category         string
	Difficulty       *int64
	IsExperimental   bool
}

// SubmissionRow is the joined row the submission indexer reads.
type SubmissionRow struct {
	Submission
	ProblemTitle string
	ContestTitle string
	Category     string
}
