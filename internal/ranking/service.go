package ranking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"resume-ranker/internal/extract"
	"resume-ranker/internal/insights"
	"resume-ranker/internal/keywords"
	"resume-ranker/internal/profiles"
	"resume-ranker/internal/queue"
	"resume-ranker/internal/shared/metrics"
	"resume-ranker/internal/shared/storage/object"
	"resume-ranker/internal/shared/telemetry"
	"resume-ranker/internal/shared/util"
)

const (
	defaultWorkers        = 4
	defaultExtractTimeout = 20 * time.Second
	defaultSignedURLTTL   = 10 * time.Minute
	defaultContentType    = "application/octet-stream"
)

// ExtractFunc turns one upload into text within timeout.
type ExtractFunc func(ctx context.Context, timeout time.Duration, data []byte, fileName, mimeType string) extract.Result

// Deps configures a Service. Store and Queue are optional.
type Deps struct {
	Repo           Repo
	Profiles       *profiles.Service
	Store          object.ObjectStore
	Queue          queue.Client
	Workers        int
	ExtractTimeout time.Duration
	SignedURLTTL   time.Duration
	Extract        ExtractFunc
	Now            func() time.Time
}

// Service runs ranking sessions.
type Service struct {
	repo           Repo
	profiles       *profiles.Service
	store          object.ObjectStore
	queue          queue.Client
	workers        int
	extractTimeout time.Duration
	signedURLTTL   time.Duration
	extract        ExtractFunc
	now            func() time.Time
	locks          *keyedLock
}

// NewService constructs a Service, filling defaults for zero values.
func NewService(d Deps) *Service {
	s := &Service{
		repo:           d.Repo,
		profiles:       d.Profiles,
		store:          d.Store,
		queue:          d.Queue,
		workers:        d.Workers,
		extractTimeout: d.ExtractTimeout,
		signedURLTTL:   d.SignedURLTTL,
		extract:        d.Extract,
		now:            d.Now,
		locks:          newKeyedLock(),
	}
	if s.repo == nil {
		s.repo = NewMemoryRepo()
	}
	if s.profiles == nil {
		s.profiles = profiles.NewService(profiles.DefaultFreeCredits)
	}
	if s.workers <= 0 {
		s.workers = defaultWorkers
	}
	if s.extractTimeout <= 0 {
		s.extractTimeout = defaultExtractTimeout
	}
	if s.signedURLTTL <= 0 {
		s.signedURLTTL = defaultSignedURLTTL
	}
	if s.extract == nil {
		s.extract = extract.ExtractWithTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Precheck applies the identity and quota gate without touching any file.
func (s *Service) Precheck(ctx context.Context, userID string) (profiles.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return profiles.Profile{}, ErrUnauthenticated
	}
	p, err := s.profiles.Check(ctx, userID)
	if err != nil {
		if errors.Is(err, profiles.ErrNotFound) {
			return profiles.Profile{}, ErrProfileNotFound
		}
		return p, err
	}
	return p, nil
}

// Rank scores every file against the job description, persists the session
// and charges one credit.
func (s *Service) Rank(ctx context.Context, req RankRequest) (RankResult, error) {
	start := time.Now()
	metrics.IncRankStarted()

	res, err := s.rank(ctx, req)
	metrics.ObserveRankDurationMs(metrics.SinceMillis(start))
	if err != nil {
		metrics.IncRankFailed()
		return RankResult{}, err
	}
	metrics.IncRankCompleted()
	metrics.AddFilesProcessed(len(res.Results))
	return res, nil
}

func (s *Service) rank(ctx context.Context, req RankRequest) (RankResult, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return RankResult{}, ErrUnauthenticated
	}

	release, err := s.locks.Acquire(ctx, req.UserID)
	if err != nil {
		return RankResult{}, err
	}
	defer release()

	if _, err := s.Precheck(ctx, req.UserID); err != nil {
		return RankResult{}, err
	}

	// A whitespace-only job description is present; it yields no keywords.
	if req.JobDescription == "" || len(req.Files) == 0 {
		return RankResult{}, ErrBadRequest
	}

	jd := extract.Normalize(req.JobDescription)
	kws := keywords.Build(jd)
	sessionID := uuid.NewString()

	rows := make([]ResultRow, len(req.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, f := range req.Files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows[i] = s.processFile(gctx, req.UserID, sessionID, kws, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.cleanupObjects(rows)
		return RankResult{}, err
	}
	if err := ctx.Err(); err != nil {
		s.cleanupObjects(rows)
		return RankResult{}, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
	for i := range rows {
		rows[i].Position = i
	}

	session := Session{
		ID:             sessionID,
		UserID:         req.UserID,
		JobDescription: jd,
		KeywordCount:   len(kws),
		FileCount:      len(rows),
		CreatedAt:      s.now().UTC(),
		Results:        rows,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		telemetry.Error("rank.persist_failed", map[string]any{
			"session_id": sessionID,
			"user_id":    req.UserID,
			"error":      err.Error(),
		})
		s.cleanupObjects(rows)
		return RankResult{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	charged, err := s.profiles.Charge(ctx, req.UserID)
	if err != nil {
		s.compensate(req.UserID, sessionID, rows, err)
		if errors.Is(err, profiles.ErrFreeLimitReached) || errors.Is(err, profiles.ErrSubscriptionInactive) {
			return RankResult{}, err
		}
		return RankResult{}, fmt.Errorf("%w: charge credit: %v", ErrPersistence, err)
	}

	s.publish(ctx, req, sessionID, len(rows))

	telemetry.Info("rank.completed", map[string]any{
		"session_id":    sessionID,
		"user_id":       req.UserID,
		"file_count":    len(rows),
		"keyword_count": len(kws),
		"credits_used":  charged.CreditsUsed,
	})

	return RankResult{
		SessionID:          sessionID,
		Results:            rows,
		CreditsUsed:        charged.CreditsUsed,
		CreditsLimit:       charged.CreditsLimit,
		RemainingCredits:   charged.CreditsLimit - charged.CreditsUsed,
		SubscriptionStatus: charged.SubscriptionStatus,
	}, nil
}

func (s *Service) processFile(ctx context.Context, userID, sessionID string, kws []string, f Upload) ResultRow {
	path := s.upload(ctx, userID, sessionID, f)

	res := s.extract(ctx, s.extractTimeout, f.Data, f.FileName, f.MimeType)
	if res.Degraded {
		metrics.IncExtractionDegraded()
		telemetry.Warn("rank.extraction_degraded", map[string]any{
			"session_id": sessionID,
			"file_name":  f.FileName,
			"format":     string(res.Format),
			"reason":     res.Reason,
		})
	}

	name := candidateName(res.Heading, f.FileName)
	match := keywords.Compute(kws, res.Text)
	bundle := insights.Make(match.Percent, match.Matched, match.Missing)

	return normalizeRow(ResultRow{
		CandidateName:       name,
		FileName:            f.FileName,
		StoragePath:         path,
		Snippet:             snippet(res.Text),
		FullText:            res.Text,
		Score:               match.Score,
		KeywordMatchPercent: match.Percent,
		MatchedKeywords:     match.Matched,
		MissingKeywords:     match.Missing,
		Summary:             insights.Summary(name, match.Percent, match.Matched, match.Missing),
		Strengths:           bundle.Strengths,
		Gaps:                bundle.Gaps,
		ExtractionFailed:    res.Degraded,
	})
}

// upload stores the raw file. Failures are logged and yield an empty path.
func (s *Service) upload(ctx context.Context, userID, sessionID string, f Upload) string {
	if s.store == nil {
		return ""
	}
	key := StorageKey(userID, sessionID, f.FileName, s.now())
	contentType := strings.TrimSpace(f.MimeType)
	if contentType == "" {
		contentType = defaultContentType
	}
	if _, err := s.store.SaveWithKey(ctx, key, contentType, bytes.NewReader(f.Data)); err != nil {
		telemetry.Error("rank.upload_failed", map[string]any{
			"session_id": sessionID,
			"file_name":  f.FileName,
			"error":      err.Error(),
		})
		return ""
	}
	return key
}

// StorageKey builds <userKey>/<sessionId>/<unixms>_<safeName>.
func StorageKey(userID, sessionID, fileName string, at time.Time) string {
	return util.UserKeyPrefix(userID) + sessionID + "/" +
		strconv.FormatInt(at.UnixMilli(), 10) + "_" + util.SafeStorageName(fileName)
}

func (s *Service) compensate(userID, sessionID string, rows []ResultRow, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.DeleteSession(ctx, userID, sessionID); err != nil {
		telemetry.Error("rank.compensate_failed", map[string]any{
			"session_id": sessionID,
			"user_id":    userID,
			"error":      err.Error(),
		})
	}
	s.cleanupObjects(rows)
	telemetry.Warn("rank.charge_rejected", map[string]any{
		"session_id": sessionID,
		"user_id":    userID,
		"error":      cause.Error(),
	})
}

func (s *Service) cleanupObjects(rows []ResultRow) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, r := range rows {
		if r.StoragePath == "" {
			continue
		}
		if err := s.store.Delete(ctx, r.StoragePath); err != nil {
			telemetry.Warn("rank.object_cleanup_failed", map[string]any{
				"storage_path": r.StoragePath,
				"error":        err.Error(),
			})
		}
	}
}

func (s *Service) publish(ctx context.Context, req RankRequest, sessionID string, count int) {
	if s.queue == nil {
		return
	}
	msg := queue.Message{
		Type:        queue.TypeRankingCompleted,
		SessionID:   sessionID,
		UserID:      req.UserID,
		ResultCount: count,
		RequestID:   req.RequestID,
		EnqueuedAt:  s.now().UTC().Format(time.RFC3339),
		Version:     queue.MessageVersion,
	}
	if err := s.queue.Send(ctx, msg); err != nil {
		telemetry.Warn("rank.publish_failed", map[string]any{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// ListSessions returns the user's sessions newest first.
func (s *Service) ListSessions(ctx context.Context, userID string, limit, offset int) ([]Session, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListSessions(ctx, userID, limit, offset)
}

// GetSession returns one of the user's sessions with its rows.
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (Session, error) {
	if strings.TrimSpace(userID) == "" {
		return Session{}, ErrUnauthenticated
	}
	return s.repo.GetSession(ctx, userID, sessionID)
}

// DownloadURL signs a time-limited link to a stored resume owned by userID.
func (s *Service) DownloadURL(ctx context.Context, userID, path string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrUnauthenticated
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", ErrMissingPath
	}
	if !util.OwnsKey(userID, path) {
		return "", ErrForbiddenPath
	}
	if s.store == nil {
		return "", ErrStoreUnavailable
	}
	url, err := s.store.SignedURL(ctx, path, s.signedURLTTL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return url, nil
}

func candidateName(heading, fileName string) string {
	heading = strings.TrimSpace(heading)
	if heading != "" && len([]rune(heading)) < candidateNameLimit {
		return heading
	}
	base := filepath.Base(strings.ReplaceAll(fileName, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func snippet(text string) string {
	r := []rune(text)
	if len(r) > snippetLength {
		return string(r[:snippetLength])
	}
	return text
}
