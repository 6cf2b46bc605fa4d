package llm

import (
	"context"
	"strings"

	"resume-ranker/internal/keywords"
)

const (
	// BoostTarget is the keyword match percent the boost loop aims for.
	BoostTarget      = 80
	maxBoostAttempts = 5
)

// BoostResult reports the keyword match before and after rewriting. Scores
// are nil when no job description was given.
type BoostResult struct {
	BeforeScore *int   `json:"beforeScore"`
	AfterScore  *int   `json:"afterScore"`
	Attempts    int    `json:"attempts"`
	Text        string `json:"text"`
}

// Boost rewrites resumeText until its keyword match against jd reaches
// BoostTarget or the attempt budget runs out. Scores come from the same
// keyword model the ranker uses, never from the model output. Without a job
// description it performs a single general rewrite.
func Boost(ctx context.Context, c Completer, resumeText, jd string) (BoostResult, error) {
	if strings.TrimSpace(jd) == "" {
		out, err := c.Complete(ctx, RewriteResumePrompt(resumeText, ""))
		if err != nil {
			return BoostResult{}, err
		}
		return BoostResult{Attempts: 1, Text: orDefault(out, resumeText)}, nil
	}

	kws := keywords.Build(jd)
	current := resumeText
	match := keywords.Compute(kws, current)
	before := match.Percent

	attempts := 0
	// A job description without keywords cannot be improved on.
	for len(kws) > 0 && match.Percent < BoostTarget && attempts < maxBoostAttempts {
		attempts++
		out, err := c.Complete(ctx, BoostToTargetPrompt(current, jd, match.Missing))
		if err != nil {
			return BoostResult{}, err
		}
		current = orDefault(out, current)
		match = keywords.Compute(kws, current)
	}

	after := match.Percent
	return BoostResult{BeforeScore: &before, AfterScore: &after, Attempts: attempts, Text: current}, nil
}

func orDefault(out, fallback string) string {
	if trimmed := strings.TrimSpace(out); trimmed != "" {
		return trimmed
	}
	return fallback
}
