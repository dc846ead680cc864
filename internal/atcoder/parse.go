package atcoder

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/atcoder-search/internal/store"
)

const submissionTimeLayout = "2006-01-02 15:04:05-0700"

var (
	betweenTags = regexp.MustCompile(`>\s+<`)
	execTimeRe  = regexp.MustCompile(`^(\d+)\s*ms$`)
)

// MinifyHTML collapses whitespace between tags.
func MinifyHTML(html string) string {
	html = betweenTags.ReplaceAllString(html, "><")
	return strings.TrimSpace(html)
}

func parseDocument(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, decodeError("html", err)
	}
	return doc, nil
}

// parseCSRFToken reads the hidden csrf_token input of the login form.
func parseCSRFToken(body []byte) (string, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return "", err
	}
	token, ok := doc.Find(`input[name="csrf_token"]`).First().Attr("value")
	if !ok || token == "" {
		return "", decodeError("login page", errors.New("csrf_token not found"))
	}
	return token, nil
}

// hasPasswordField reports whether body still renders a login form.
func hasPasswordField(body []byte) bool {
	doc, err := parseDocument(body)
	if err != nil {
		return false
	}
	return doc.Find(`input[name="password"]`).Length() > 0
}

// parseSubmissions reads the submissions table of one contest page, newest
// first. A page without a table yields no submissions.
func parseSubmissions(contestID string, body []byte) ([]store.Submission, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	var (
		out      []store.Submission
		parseErr error
	)
	doc.Find("table tbody tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		sub, err := parseSubmissionRow(contestID, row)
		if err != nil {
			parseErr = decodeError(fmt.Sprintf("submission row %d", i), err)
			return false
		}
		out = append(out, sub)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

func parseSubmissionRow(contestID string, row *goquery.Selection) (store.Submission, error) {
	cells := row.Find("td")
	if cells.Length() < 7 {
		return store.Submission{}, fmt.Errorf("expected at least 7 cells, got %d", cells.Length())
	}
	cell := func(i int) *goquery.Selection { return cells.Eq(i) }

	submitted, err := time.Parse(submissionTimeLayout, strings.TrimSpace(cell(0).Text()))
	if err != nil {
		return store.Submission{}, fmt.Errorf("submission time: %w", err)
	}
	id, err := submissionID(row)
	if err != nil {
		return store.Submission{}, err
	}
	taskHref, _ := cell(1).Find("a").First().Attr("href")
	userHref, _ := cell(2).Find(`a[href^="/users/"]`).First().Attr("href")
	point, err := strconv.ParseFloat(strings.TrimSpace(cell(4).Text()), 64)
	if err != nil {
		return store.Submission{}, fmt.Errorf("score: %w", err)
	}
	length, err := strconv.ParseInt(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(cell(5).Text()), "Byte")), 10, 64)
	if err != nil {
		return store.Submission{}, fmt.Errorf("code size: %w", err)
	}

	sub := store.Submission{
		ID:          id,
		EpochSecond: submitted.Unix(),
		ProblemID:   path.Base(taskHref),
		ContestID:   contestID,
		UserID:      path.Base(userHref),
		Language:    strings.TrimSpace(cell(3).Text()),
		Point:       point,
		Length:      length,
		Result:      strings.TrimSpace(cell(6).Text()),
	}
	cells.Slice(7, cells.Length()).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := execTimeRe.FindStringSubmatch(strings.TrimSpace(s.Text())); m != nil {
			if ms, err := strconv.ParseInt(m[1], 10, 64); err == nil {
				sub.ExecutionTime = &ms
			}
			return false
		}
		return true
	})
	if sub.ProblemID == "." || sub.UserID == "." {
		return store.Submission{}, errors.New("missing task or user link")
	}
	return sub, nil
}

func submissionID(row *goquery.Selection) (int64, error) {
	if v, ok := row.Find("td.submission-score").Attr("data-id"); ok {
		return strconv.ParseInt(v, 10, 64)
	}
	var href string
	row.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if strings.Contains(h, "/submissions/") {
			href = h
			return false
		}
		return true
	})
	if href == "" {
		return 0, errors.New("submission id not found")
	}
	id, err := strconv.ParseInt(path.Base(href), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("submission id: %w", err)
	}
	return id, nil
}

// parseRanking reads one page of the rating ranking. ActiveRank is not shown
// on the page and is left nil.
func parseRanking(body []byte) ([]store.User, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	var (
		out      []store.User
		parseErr error
	)
	doc.Find("table tbody tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		u, err := parseRankingRow(row)
		if err != nil {
			parseErr = decodeError(fmt.Sprintf("ranking row %d", i), err)
			return false
		}
		out = append(out, u)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return out, nil
}

func parseRankingRow(row *goquery.Selection) (store.User, error) {
	cells := row.Find("td")
	if cells.Length() < 7 {
		return store.User{}, fmt.Errorf("expected 7 cells, got %d", cells.Length())
	}
	num := func(i int) (int32, error) {
		v, err := strconv.ParseInt(strings.TrimSpace(cells.Eq(i).Text()), 10, 32)
		return int32(v), err
	}

	userCell := cells.Eq(1)
	userID := strings.TrimSpace(userCell.Find("a.username").First().Text())
	if userID == "" {
		return store.User{}, errors.New("missing user name")
	}
	u := store.User{UserID: userID}

	var err error
	if u.Rank, err = num(0); err != nil {
		return store.User{}, fmt.Errorf("rank: %w", err)
	}
	if u.Rating, err = num(3); err != nil {
		return store.User{}, fmt.Errorf("rating: %w", err)
	}
	if u.HighestRating, err = num(4); err != nil {
		return store.User{}, fmt.Errorf("highest rating: %w", err)
	}
	if u.JoinCount, err = num(5); err != nil {
		return store.User{}, fmt.Errorf("join count: %w", err)
	}
	if u.Wins, err = num(6); err != nil {
		return store.User{}, fmt.Errorf("wins: %w", err)
	}
	if by, err := num(2); err == nil {
		u.BirthYear = &by
	}
	userCell.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		name := strings.TrimSuffix(path.Base(src), path.Ext(src))
		switch {
		case strings.Contains(src, "/flag/"):
			u.Country = &name
		case strings.Contains(src, "/icon/"):
			u.Crown = &name
		}
	})
	if aff := strings.TrimSpace(userCell.Find(".ranking-affiliation").Text()); aff != "" {
		u.Affiliation = &aff
	}
	return u, nil
}
