// Package insights turns keyword overlap into short recruiter-facing
// strengths, gaps and a one-line summary. Nothing here affects scores.
package insights

import (
	"fmt"
	"strings"
)

const (
	maxLines        = 3
	maxExamples     = 4
	summaryExamples = 5
)

// Buckets maps each category to the keywords classified into it.
type Buckets map[Category][]string

// Bundle holds the narrative lines shown next to a ranked candidate.
type Bundle struct {
	Strengths []string `json:"strengths"`
	Gaps      []string `json:"gaps"`
}

// Bucketize places every keyword in exactly one category.
func Bucketize(keywords []string) Buckets {
	out := Buckets{}
	for _, kw := range keywords {
		c := Categorize(kw)
		out[c] = append(out[c], kw)
	}
	return out
}

// PickTop dedupes list case-insensitively, keeping first-seen order, and
// returns at most max items.
func PickTop(list []string, max int) []string {
	out := []string{}
	if max <= 0 {
		return out
	}
	seen := make(map[string]struct{}, len(list))
	for _, item := range list {
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
		if len(out) == max {
			break
		}
	}
	return out
}

// Make builds the strengths and gaps for a candidate.
func Make(percent int, matched, missing []string) Bundle {
	strengths := []string{overview(percent)}

	if c, words, ok := firstCategory(Bucketize(matched)); ok {
		strengths = append(strengths, fmt.Sprintf("Relevant %s experience: %s.", labels[c], strings.Join(words, ", ")))
	} else if top := PickTop(matched, maxExamples); len(top) > 0 {
		strengths = append(strengths, fmt.Sprintf("Matches job keywords such as %s.", strings.Join(top, ", ")))
	} else {
		strengths = append(strengths, "No direct keyword overlap yet; transferable experience may still apply.")
	}
	strengths = append(strengths, "Add measurable outcomes to the strongest bullet points.")

	var gaps []string
	missingBuckets := Bucketize(missing)
	if c, words, ok := firstCategory(missingBuckets); ok {
		gaps = append(gaps, fmt.Sprintf("Limited evidence of %s (%s). %s", labels[c], strings.Join(words, ", "), gapAdvice[c]))
	} else if top := PickTop(missingBuckets[General], maxExamples); len(top) > 0 {
		gaps = append(gaps, fmt.Sprintf("Missing job keywords: %s.", strings.Join(top, ", ")))
	} else {
		gaps = append(gaps, "No major keyword gaps against this job description.")
	}
	gaps = append(gaps, "Quantified achievements would make the fit easier to judge.")

	return Bundle{Strengths: truncate(strengths), Gaps: truncate(gaps)}
}

// Summary renders a single-line fit summary for name.
func Summary(name string, percent int, matched, missing []string) string {
	band := "low"
	switch {
	case percent >= 80:
		band = "strong"
	case percent >= 60:
		band = "moderate"
	}
	parts := []string{fmt.Sprintf("%s is a %s match (%d%%).", name, band, percent)}
	if len(matched) > 0 {
		parts = append(parts, fmt.Sprintf("Strengths: %s.", strings.Join(head(matched, summaryExamples), ", ")))
	} else {
		parts = append(parts, "No overlapping strengths found.")
	}
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("Missing/weak: %s.", strings.Join(head(missing, summaryExamples), ", ")))
	}
	return strings.Join(parts, " ")
}

func overview(percent int) string {
	switch {
	case percent >= 80:
		return "Strong alignment with the role: most key requirements are covered."
	case percent >= 60:
		return "Good baseline alignment with the role, with a few requirements left to show."
	default:
		return "Some alignment with the role, but several key requirements are missing."
	}
}

func firstCategory(b Buckets) (Category, []string, bool) {
	for _, c := range Priority {
		if words := b[c]; len(words) > 0 {
			return c, PickTop(words, maxExamples), true
		}
	}
	return "", nil, false
}

func truncate(lines []string) []string {
	if len(lines) > maxLines {
		return lines[:maxLines]
	}
	return lines
}

func head(list []string, n int) []string {
	if len(list) > n {
		return list[:n]
	}
	return list
}
