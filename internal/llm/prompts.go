package llm

import (
	_ "embed"
	"strconv"
	"strings"
)

// CandidateSummaryVersion identifies the embedded candidate summary template.
const CandidateSummaryVersion = "candidate_summary_v1"

var (
	//go:embed prompts/candidate_summary_v1.txt
	candidateSummaryV1 string
	//go:embed prompts/rewrite_jd_v1.txt
	rewriteJDV1 string
	//go:embed prompts/rewrite_resume_v1.txt
	rewriteResumeV1 string
	//go:embed prompts/rewrite_resume_jd_v1.txt
	rewriteResumeJDV1 string
	//go:embed prompts/boost_resume_v1.txt
	boostResumeV1 string
	//go:embed prompts/improve_score_v1.txt
	improveScoreV1 string
	//go:embed prompts/recruiter_summary_v1.txt
	recruiterSummaryV1 string
	//go:embed prompts/screening_summary_v1.txt
	screeningSummaryV1 string
	//go:embed prompts/boost_to_target_v1.txt
	boostToTargetV1 string
)

func renderPrompt(tmpl string, pairs ...string) string {
	for i := 1; i < len(pairs); i += 2 {
		pairs[i] = strings.TrimSpace(pairs[i])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// CandidateSummaryPrompt renders the recruiter summary prompt for one resume.
func CandidateSummaryPrompt(resumeText string, score float64) string {
	return renderPrompt(candidateSummaryV1,
		"{{SCORE}}", strconv.FormatFloat(score, 'f', -1, 64),
		"{{RESUME_TEXT}}", resumeText,
	)
}

// RewriteJDPrompt asks for a clearer, ATS-friendly job description.
func RewriteJDPrompt(jd string) string {
	return renderPrompt(rewriteJDV1, "{{JD}}", jd)
}

// RewriteResumePrompt rewrites a resume, aligned to jd when it is non-empty.
func RewriteResumePrompt(resumeText, jd string) string {
	if strings.TrimSpace(jd) == "" {
		return renderPrompt(rewriteResumeV1, "{{RESUME_TEXT}}", resumeText)
	}
	return renderPrompt(rewriteResumeJDV1, "{{JD}}", jd, "{{RESUME_TEXT}}", resumeText)
}

// BoostResumePrompt rephrases a resume toward the job description keywords.
func BoostResumePrompt(resumeText, jd string) string {
	return renderPrompt(boostResumeV1, "{{JD}}", jd, "{{RESUME_TEXT}}", resumeText)
}

// ImproveScorePrompt works the missing keywords into a resume.
func ImproveScorePrompt(resumeText string, missing []string) string {
	return renderPrompt(improveScoreV1,
		"{{MISSING_KEYWORDS}}", strings.Join(missing, ", "),
		"{{RESUME_TEXT}}", resumeText,
	)
}

// RecruiterSummaryPrompt asks for a 5-7 bullet recruiter summary.
func RecruiterSummaryPrompt(resumeText string) string {
	return renderPrompt(recruiterSummaryV1, "{{RESUME_TEXT}}", resumeText)
}

// ScreeningSummaryPrompt asks for a screening summary with red flags.
func ScreeningSummaryPrompt(resumeText string) string {
	return renderPrompt(screeningSummaryV1, "{{RESUME_TEXT}}", resumeText)
}

// BoostToTargetPrompt is one iteration of the boost loop.
func BoostToTargetPrompt(resumeText, jd string, missing []string) string {
	return renderPrompt(boostToTargetV1,
		"{{RESUME_TEXT}}", resumeText,
		"{{JD}}", jd,
		"{{MISSING_KEYWORDS}}", strings.Join(missing, ", "),
	)
}
