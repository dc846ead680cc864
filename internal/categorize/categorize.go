// Package categorize derives a contest's category from its id, title and
// rated range.
package categorize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

// Category labels a contest series.
type Category string

// Categories assigned by Categorize.
const (
	ABC            Category = "ABC"
	ARC            Category = "ARC"
	AGC            Category = "AGC"
	AHC            Category = "AHC"
	ABCLike        Category = "ABC-Like"
	ARCLike        Category = "ARC-Like"
	AGCLike        Category = "AGC-Like"
	PAST           Category = "PAST"
	JOI            Category = "JOI"
	JAG            Category = "JAG"
	Marathon       Category = "Marathon"
	OtherSponsored Category = "Other Sponsored"
	OtherContests  Category = "Other Contests"
)

// AGC001Start is the start of AGC 001. Contests before it predate the
// current rating system and are always unrated.
const AGC001Start int64 = 1468670400

// TargetKind classifies a contest's rated range.
type TargetKind int

// Rated range kinds.
const (
	Unrated TargetKind = iota
	All
	LowerBound
	UpperBound
)

// RatedTarget is the parsed rate_change of a contest.
type RatedTarget struct {
	Kind  TargetKind
	Bound int
}

// RatedTargetOf parses rate_change ("-", "All", " ~ 1999", "1200 ~ ").
// The left bound is checked first, so a closed range such as "1200 ~ 2799"
// is a LowerBound target.
func RatedTargetOf(c store.Contest) RatedTarget {
	if c.StartEpochSecond < AGC001Start {
		return RatedTarget{Kind: Unrated}
	}
	switch strings.TrimSpace(c.RateChange) {
	case "-", "":
		return RatedTarget{Kind: Unrated}
	case "All":
		return RatedTarget{Kind: All}
	}
	left, right, _ := strings.Cut(c.RateChange, "~")
	if v, err := strconv.Atoi(strings.TrimSpace(left)); err == nil {
		return RatedTarget{Kind: LowerBound, Bound: v}
	}
	if v, err := strconv.Atoi(strings.TrimSpace(right)); err == nil {
		return RatedTarget{Kind: UpperBound, Bound: v}
	}
	return RatedTarget{Kind: Unrated}
}

// PrefixRule maps contest ids starting with any of Prefixes to Category.
type PrefixRule struct {
	Category Category
	Prefixes []string
}

func (r PrefixRule) match(id string) bool {
	for _, p := range r.Prefixes {
		if strings.HasPrefix(id, p) {
			return true
		}
	}
	return false
}

// PatternSet maps contests whose title or id matches to Category. IDs lists
// exact ids that match regardless of the patterns.
type PatternSet struct {
	Category      Category
	TitlePatterns []*regexp.Regexp
	IDPatterns    []*regexp.Regexp
	IDs           []string
}

func (s PatternSet) match(c store.Contest) bool {
	for _, id := range s.IDs {
		if c.ID == id {
			return true
		}
	}
	for _, re := range s.TitlePatterns {
		if re.MatchString(c.Title) {
			return true
		}
	}
	for _, re := range s.IDPatterns {
		if re.MatchString(c.ID) {
			return true
		}
	}
	return false
}

// Rules is the full ordered rule table. Every slice is evaluated in order.
type Rules struct {
	// Series is checked first, before the rated range.
	Series []PrefixRule
	// UnratedSeries applies only to unrated contests.
	UnratedSeries []PrefixRule
	// Patterns applies only to unrated contests, after UnratedSeries.
	Patterns []PatternSet
}

// Categorizer owns its rule table. It is safe for concurrent use.
type Categorizer struct {
	rules Rules
}

// New returns a Categorizer with the default rule table.
func New() *Categorizer {
	return NewWithRules(DefaultRules())
}

// NewWithRules returns a Categorizer over rules.
func NewWithRules(rules Rules) *Categorizer {
	return &Categorizer{rules: rules}
}

// Categorize returns exactly one category for any contest.
func (c *Categorizer) Categorize(contest store.Contest) Category {
	for _, r := range c.rules.Series {
		if r.match(contest.ID) {
			return r.Category
		}
	}
	switch RatedTargetOf(contest).Kind {
	case All:
		return AGCLike
	case UpperBound:
		return ABCLike
	case LowerBound:
		return ARCLike
	}
	for _, r := range c.rules.UnratedSeries {
		if r.match(contest.ID) {
			return r.Category
		}
	}
	for _, s := range c.rules.Patterns {
		if s.match(contest) {
			return s.Category
		}
	}
	return OtherContests
}

// DefaultRules builds the rule table for the contest site's series. The
// patterns are compiled on every call so each Categorizer owns its own set.
func DefaultRules() Rules {
	return Rules{
		Series: []PrefixRule{
			{Category: ABC, Prefixes: []string{"abc"}},
			{Category: ARC, Prefixes: []string{"arc"}},
			{Category: AGC, Prefixes: []string{"agc"}},
			{Category: AHC, Prefixes: []string{"ahc"}},
		},
		UnratedSeries: []PrefixRule{
			{Category: PAST, Prefixes: []string{"past"}},
			{Category: JOI, Prefixes: []string{"joi"}},
			{Category: JAG, Prefixes: []string{"jag", "JAG"}},
		},
		Patterns: []PatternSet{
			{
				Category: Marathon,
				TitlePatterns: compileAll(
					`^Chokudai Contest`,
					`ハーフマラソン`,
					`^HACK TO THE FUTURE`,
					`Asprova`,
					`Heuristics Contest`,
				),
				IDPatterns: compileAll(
					`^future-meets-you-contest`,
					`^hokudai-hitachi`,
					`^toyota-hc`,
				),
				IDs: []string{
					"toyota2023summer-final-open",
					"genocon2021",
					"stage0-2021",
					"caddi2019",
					"pakencamp-2019-day2",
					"kuronekoyamato-contest2019",
					"wn2017_1",
				},
			},
			{
				Category: OtherSponsored,
				TitlePatterns: compileAll(
					`ドワンゴ`,
					`^Mujin`,
					`SoundHound`,
					`^codeFlyer`,
					`^COLOCON`,
					`みんなのプロコン`,
					`CODE FESTIVAL`,
					`^DISCO`,
					`日本最強プログラマー学生選手権`,
					`全国統一プログラミング王`,
					`Indeed`,
					`^Xmas Contest`,
					`^Code Formula`,
					`^天下一プログラマーコンテスト`,
					`^AtCoder Petrozavodsk Contest`,
				),
				IDPatterns: compileAll(
					`^code-festival`,
					`^yahoo-prog`,
					`^cf\d{2}`,
					`^mujin-pc`,
					`^s8pc`,
					`^tenka1`,
					`^xmascon`,
					`^kupc`,
				),
			},
		},
	}
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(p))
	}
	return out
}
