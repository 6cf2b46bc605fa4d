package ranking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"resume-ranker/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// NewPGRepo constructs a PGRepo.
func NewPGRepo(database *sql.DB) *PGRepo {
	return &PGRepo{DB: database}
}

// CreateSession inserts the session and its rows in one transaction.
func (r *PGRepo) CreateSession(ctx context.Context, session Session) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO ranking_sessions (id, user_id, job_description, keyword_count, file_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
			session.ID,
			session.UserID,
			session.JobDescription,
			session.KeywordCount,
			session.FileCount,
			session.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert ranking session: %w", err)
		}

		for i, row := range session.Results {
			if err := insertResult(ctx, tx, session.ID, i, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertResult(ctx context.Context, tx *sql.Tx, sessionID string, position int, row ResultRow) error {
	matched, err := marshalList(row.MatchedKeywords)
	if err != nil {
		return err
	}
	missing, err := marshalList(row.MissingKeywords)
	if err != nil {
		return err
	}
	strengths, err := marshalList(row.Strengths)
	if err != nil {
		return err
	}
	gaps, err := marshalList(row.Gaps)
	if err != nil {
		return err
	}
	id := row.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO ranking_results (
	id, session_id, position, candidate_name, file_name, storage_path, snippet, full_text,
	score, keyword_match_percent, matched_keywords, missing_keywords, summary, strengths, gaps,
	extraction_failed
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		id,
		sessionID,
		position,
		row.CandidateName,
		row.FileName,
		row.StoragePath,
		row.Snippet,
		row.FullText,
		row.Score,
		row.KeywordMatchPercent,
		matched,
		missing,
		row.Summary,
		strengths,
		gaps,
		row.ExtractionFailed,
	)
	if err != nil {
		return fmt.Errorf("insert ranking result %d: %w", position, err)
	}
	return nil
}

// DeleteSession removes a session; result rows cascade.
func (r *PGRepo) DeleteSession(ctx context.Context, userID, sessionID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM ranking_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
	return err
}

// ListSessions returns sessions newest first without their rows.
func (r *PGRepo) ListSessions(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	rows, err := r.DB.QueryContext(ctx, `
SELECT id, user_id, job_description, keyword_count, file_count, created_at
FROM ranking_sessions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.JobDescription, &s.KeywordCount, &s.FileCount, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetSession loads one session owned by userID with its rows.
func (r *PGRepo) GetSession(ctx context.Context, userID, sessionID string) (Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return Session{}, ErrSessionNotFound
	}

	var s Session
	err := r.DB.QueryRowContext(ctx, `
SELECT id, user_id, job_description, keyword_count, file_count, created_at
FROM ranking_sessions
WHERE id = $1 AND user_id = $2`, sessionID, userID).
		Scan(&s.ID, &s.UserID, &s.JobDescription, &s.KeywordCount, &s.FileCount, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, err
	}

	rows, err := r.DB.QueryContext(ctx, `
SELECT id, position, candidate_name, file_name, storage_path, snippet, full_text, score,
       keyword_match_percent, matched_keywords, missing_keywords, summary, strengths, gaps,
       extraction_failed
FROM ranking_results
WHERE session_id = $1
ORDER BY score DESC, position ASC`, sessionID)
	if err != nil {
		return Session{}, err
	}
	defer rows.Close()

	s.Results = []ResultRow{}
	for rows.Next() {
		var row ResultRow
		var matched, missing, strengths, gaps []byte
		if err := rows.Scan(
			&row.ID,
			&row.Position,
			&row.CandidateName,
			&row.FileName,
			&row.StoragePath,
			&row.Snippet,
			&row.FullText,
			&row.Score,
			&row.KeywordMatchPercent,
			&matched,
			&missing,
			&row.Summary,
			&strengths,
			&gaps,
			&row.ExtractionFailed,
		); err != nil {
			return Session{}, err
		}
		if row.MatchedKeywords, err = unmarshalList(matched); err != nil {
			return Session{}, err
		}
		if row.MissingKeywords, err = unmarshalList(missing); err != nil {
			return Session{}, err
		}
		if row.Strengths, err = unmarshalList(strengths); err != nil {
			return Session{}, err
		}
		if row.Gaps, err = unmarshalList(gaps); err != nil {
			return Session{}, err
		}
		s.Results = append(s.Results, row)
	}
	return s, rows.Err()
}

func marshalList(list []string) ([]byte, error) {
	if list == nil {
		list = []string{}
	}
	return json.Marshal(list)
}

func unmarshalList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode jsonb list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

var _ Repo = (*PGRepo)(nil)
