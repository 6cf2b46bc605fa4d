// Package keywords builds the job-description keyword set and scores resumes
// by literal token overlap.
package keywords

import (
	"math"
	"regexp"
	"strings"
)

// MinTokenLength is the shortest token kept on either side of the match.
const MinTokenLength = 3

var (
	separators = regexp.MustCompile(`[^a-z0-9+]+`)

	stopwords = map[string]struct{}{
		"and": {}, "or": {}, "the": {}, "a": {}, "an": {}, "for": {}, "to": {}, "of": {},
		"in": {}, "with": {}, "on": {}, "at": {}, "by": {}, "is": {}, "are": {}, "as": {},
		"be": {}, "this": {}, "that": {}, "will": {}, "you": {}, "we": {}, "our": {}, "your": {},
	}
)

// Match is the overlap between a keyword list and one candidate text.
type Match struct {
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
	Percent int      `json:"percent"`
	Score   float64  `json:"score"`
}

// Build lowercases jobDescription, splits it and drops short tokens and
// stopwords. Order and duplicates are preserved.
func Build(jobDescription string) []string {
	out := []string{}
	for _, tok := range split(jobDescription) {
		if len(tok) < MinTokenLength {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// Tokenize returns the set of tokens present in text. Stopwords are kept.
func Tokenize(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range split(text) {
		if len(tok) >= MinTokenLength {
			set[tok] = struct{}{}
		}
	}
	return set
}

// Compute scores candidateText against keywords. An empty keyword list
// yields a zero score.
func Compute(keywords []string, candidateText string) Match {
	tokens := Tokenize(candidateText)
	m := Match{Matched: []string{}, Missing: []string{}}
	for _, kw := range keywords {
		if _, ok := tokens[kw]; ok {
			m.Matched = append(m.Matched, kw)
		} else {
			m.Missing = append(m.Missing, kw)
		}
	}
	total := len(keywords)
	if total == 0 {
		total = 1
	}
	m.Percent = int(math.Round(float64(len(m.Matched)) / float64(total) * 100))
	m.Score = float64(m.Percent) / 100
	return m
}

func split(s string) []string {
	parts := separators.Split(strings.ToLower(s), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
