package ranking

import (
	"time"

	"resume-ranker/internal/profiles"
)

const (
	// candidateNameLimit is the exclusive rune limit for using a heading as the name.
	candidateNameLimit = 80
	snippetLength      = 400
)

// Upload is one resume file received with a ranking request.
type Upload struct {
	FileName string
	MimeType string
	Data     []byte
}

// RankRequest is the input of one ranking run.
type RankRequest struct {
	UserID         string
	JobDescription string
	Files          []Upload
	RequestID      string
}

// ResultRow is the persisted and returned form of one ranked candidate.
type ResultRow struct {
	ID                  string   `json:"-"`
	Position            int      `json:"-"`
	CandidateName       string   `json:"candidate_name"`
	FileName            string   `json:"file_name"`
	StoragePath         string   `json:"storage_path"`
	Snippet             string   `json:"snippet"`
	FullText            string   `json:"full_text"`
	Score               float64  `json:"score"`
	KeywordMatchPercent int      `json:"keyword_match_percent"`
	MatchedKeywords     []string `json:"matched_keywords"`
	MissingKeywords     []string `json:"missing_keywords"`
	Summary             string   `json:"summary"`
	Strengths           []string `json:"strengths"`
	Gaps                []string `json:"gaps"`
	ExtractionFailed    bool     `json:"extraction_failed"`
}

// Session is one persisted ranking run.
type Session struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	JobDescription string      `json:"jobDescription"`
	KeywordCount   int         `json:"keywordCount"`
	FileCount      int         `json:"fileCount"`
	CreatedAt      time.Time   `json:"createdAt"`
	Results        []ResultRow `json:"results,omitempty"`
}

// RankResult is returned by a successful run.
type RankResult struct {
	SessionID          string          `json:"sessionId"`
	Results            []ResultRow     `json:"results"`
	CreditsUsed        int             `json:"creditsUsed"`
	CreditsLimit       int             `json:"creditsLimit"`
	RemainingCredits   int             `json:"remainingCredits"`
	SubscriptionStatus profiles.Status `json:"subscriptionStatus"`
}

// normalizeRow replaces nil slices so rows always encode JSON arrays.
func normalizeRow(r ResultRow) ResultRow {
	if r.MatchedKeywords == nil {
		r.MatchedKeywords = []string{}
	}
	if r.MissingKeywords == nil {
		r.MissingKeywords = []string{}
	}
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.Gaps == nil {
		r.Gaps = []string{}
	}
	return r
}
