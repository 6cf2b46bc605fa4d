package ranking

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"resume-ranker/internal/extract"
	"resume-ranker/internal/profiles"
	"resume-ranker/internal/queue"
	"resume-ranker/internal/shared/util"
)

const exampleJD = "Looking for a Senior AWS and Kubernetes engineer with strong leadership skills."

type fixture struct {
	svc      *Service
	profiles *profiles.MemoryStore
	repo     *MemoryRepo
}

func newFixture(t *testing.T, p profiles.Profile, mutate ...func(*Deps)) fixture {
	t.Helper()
	store := profiles.NewMemoryStore()
	if p.UserID != "" {
		store.Put(p)
	}
	repo := NewMemoryRepo()
	deps := Deps{
		Repo:     repo,
		Profiles: profiles.NewStoreService(store, 10),
		Workers:  3,
	}
	for _, m := range mutate {
		m(&deps)
	}
	return fixture{svc: NewService(deps), profiles: store, repo: repo}
}

func freeProfile(used int) profiles.Profile {
	return profiles.Profile{UserID: "u1", CreditsUsed: used, CreditsLimit: 10, SubscriptionStatus: profiles.StatusFree}
}

func textFile(name, body string) Upload {
	return Upload{FileName: name, MimeType: "text/plain", Data: []byte(body)}
}

func TestRankMatchesWorkedExample(t *testing.T) {
	f := newFixture(t, freeProfile(2))

	res, err := f.svc.Rank(context.Background(), RankRequest{
		UserID:         "u1",
		JobDescription: exampleJD,
		Files: []Upload{textFile("jane.txt",
			"Jane Doe\nSenior engineer with 5 years AWS and Docker experience, mentored junior team")},
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(res.Results))
	}
	row := res.Results[0]
	if row.KeywordMatchPercent != 38 || row.Score != 0.38 {
		t.Fatalf("expected 38%%/0.38, got %d/%v", row.KeywordMatchPercent, row.Score)
	}
	if strings.Join(row.MatchedKeywords, ",") != "senior,aws,engineer" {
		t.Fatalf("unexpected matched %v", row.MatchedKeywords)
	}
	if strings.Join(row.MissingKeywords, ",") != "looking,kubernetes,strong,leadership,skills" {
		t.Fatalf("unexpected missing %v", row.MissingKeywords)
	}
	if row.CandidateName != "Jane Doe" {
		t.Fatalf("expected heading as name, got %q", row.CandidateName)
	}
	if !strings.HasPrefix(row.Summary, "Jane Doe is a low match (38%).") {
		t.Fatalf("unexpected summary %q", row.Summary)
	}
	if len(row.Strengths) == 0 || len(row.Gaps) == 0 {
		t.Fatalf("expected insight lines, got %+v", row)
	}
	if res.CreditsUsed != 3 || res.CreditsLimit != 10 || res.RemainingCredits != 7 {
		t.Fatalf("unexpected credits %+v", res)
	}
	if res.SubscriptionStatus != profiles.StatusFree {
		t.Fatalf("unexpected status %q", res.SubscriptionStatus)
	}
}

func TestRankSortsDescendingAndKeepsTies(t *testing.T) {
	f := newFixture(t, freeProfile(0))

	res, err := f.svc.Rank(context.Background(), RankRequest{
		UserID:         "u1",
		JobDescription: "golang postgres kafka terraform",
		Files: []Upload{
			textFile("first-tie.txt", "golang"),
			textFile("best.txt", "golang postgres kafka terraform"),
			textFile("second-tie.txt", "postgres"),
			textFile("none.txt", "painter"),
		},
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}

	var order []string
	for _, r := range res.Results {
		order = append(order, r.FileName)
	}
	want := "best.txt,first-tie.txt,second-tie.txt,none.txt"
	if got := strings.Join(order, ","); got != want {
		t.Fatalf("order = %s, want %s", got, want)
	}
	for i := 1; i < len(res.Results); i++ {
		if res.Results[i-1].Score < res.Results[i].Score {
			t.Fatalf("results not sorted descending at %d", i)
		}
	}

	stored, err := f.repo.GetSession(context.Background(), "u1", res.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.FileCount != 4 || stored.KeywordCount != 4 || len(stored.Results) != 4 {
		t.Fatalf("unexpected stored session %+v", stored)
	}
}

func TestRankCorruptFileScoresZero(t *testing.T) {
	f := newFixture(t, freeProfile(0))

	res, err := f.svc.Rank(context.Background(), RankRequest{
		UserID:         "u1",
		JobDescription: "golang postgres",
		Files: []Upload{
			{FileName: "broken.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4 not really")},
			textFile("ok.txt", "golang postgres"),
		},
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(res.Results) != 2 {
		t.Fatalf("expected both files ranked, got %d", len(res.Results))
	}
	broken := res.Results[1]
	if broken.FileName != "broken.pdf" || broken.Score != 0 || !broken.ExtractionFailed {
		t.Fatalf("unexpected broken row %+v", broken)
	}
	if broken.CandidateName != "broken" {
		t.Fatalf("expected filename fallback, got %q", broken.CandidateName)
	}
	if broken.MatchedKeywords == nil || broken.FullText != "" {
		t.Fatalf("expected empty text with non-nil arrays, got %+v", broken)
	}
}

func TestGateStopsBeforeExtraction(t *testing.T) {
	tests := []struct {
		name    string
		profile profiles.Profile
		want    error
	}{
		{
			name:    "inactive",
			profile: profiles.Profile{UserID: "u1", CreditsUsed: 0, CreditsLimit: 10, SubscriptionStatus: profiles.StatusInactive},
			want:    profiles.ErrSubscriptionInactive,
		},
		{
			name:    "free exhausted",
			profile: freeProfile(10),
			want:    profiles.ErrFreeLimitReached,
		},
		{
			name: "missing profile",
			want: ErrProfileNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			spy := func(ctx context.Context, timeout time.Duration, data []byte, fileName, mimeType string) extract.Result {
				atomic.AddInt32(&calls, 1)
				return extract.Result{Text: "golang"}
			}
			f := newFixture(t, tt.profile, func(d *Deps) { d.Extract = spy })

			_, err := f.svc.Rank(context.Background(), RankRequest{
				UserID:         "u1",
				JobDescription: "golang",
				Files:          []Upload{textFile("a.txt", "golang")},
			})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if atomic.LoadInt32(&calls) != 0 {
				t.Fatalf("extractor called %d times for gated user", calls)
			}
			if tt.profile.UserID != "" {
				p, _ := f.profiles.Get(context.Background(), "u1")
				if p.CreditsUsed != tt.profile.CreditsUsed {
					t.Fatalf("credits changed from %d to %d", tt.profile.CreditsUsed, p.CreditsUsed)
				}
			}
			sessions, _ := f.repo.ListSessions(context.Background(), "u1", 10, 0)
			if len(sessions) != 0 {
				t.Fatalf("expected no persisted sessions, got %d", len(sessions))
			}
		})
	}
}

func TestRankChargesOneCreditPerRun(t *testing.T) {
	for _, n := range []int{1, 20} {
		t.Run(fmt.Sprintf("%d files", n), func(t *testing.T) {
			f := newFixture(t, freeProfile(4))
			files := make([]Upload, n)
			for i := range files {
				files[i] = textFile(fmt.Sprintf("cv-%d.txt", i), "golang")
			}
			res, err := f.svc.Rank(context.Background(), RankRequest{UserID: "u1", JobDescription: "golang", Files: files})
			if err != nil {
				t.Fatalf("rank: %v", err)
			}
			if len(res.Results) != n {
				t.Fatalf("expected %d results, got %d", n, len(res.Results))
			}
			p, _ := f.profiles.Get(context.Background(), "u1")
			if p.CreditsUsed != 5 || res.CreditsUsed != 5 {
				t.Fatalf("expected exactly one credit charged, profile=%d result=%d", p.CreditsUsed, res.CreditsUsed)
			}
		})
	}
}

func TestPaidPlansAreNotLimited(t *testing.T) {
	f := newFixture(t, profiles.Profile{UserID: "u1", CreditsUsed: 12, CreditsLimit: 10, SubscriptionStatus: profiles.StatusPro})
	res, err := f.svc.Rank(context.Background(), RankRequest{UserID: "u1", JobDescription: "golang", Files: []Upload{textFile("a.txt", "golang")}})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if res.RemainingCredits != -3 {
		t.Fatalf("expected negative remaining credits, got %d", res.RemainingCredits)
	}
}

func TestRankEmptyKeywordsScoreZero(t *testing.T) {
	f := newFixture(t, freeProfile(0))
	res, err := f.svc.Rank(context.Background(), RankRequest{
		UserID:         "u1",
		JobDescription: "a to be or an",
		Files:          []Upload{textFile("a.txt", "golang engineer")},
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	row := res.Results[0]
	if row.KeywordMatchPercent != 0 || row.Score != 0 {
		t.Fatalf("expected zero score, got %+v", row)
	}
	if len(row.MatchedKeywords) != 0 || len(row.MissingKeywords) != 0 {
		t.Fatalf("expected empty keyword lists, got %+v", row)
	}
}

func TestRankRejectsMissingInput(t *testing.T) {
	tests := []struct {
		name string
		req  RankRequest
	}{
		{name: "empty job description", req: RankRequest{UserID: "u1", JobDescription: "", Files: []Upload{textFile("a.txt", "x")}}},
		{name: "no files", req: RankRequest{UserID: "u1", JobDescription: "golang"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, freeProfile(0))
			if _, err := f.svc.Rank(context.Background(), tt.req); !errors.Is(err, ErrBadRequest) {
				t.Fatalf("expected ErrBadRequest, got %v", err)
			}
		})
	}

	f := newFixture(t, freeProfile(0))
	if _, err := f.svc.Rank(context.Background(), RankRequest{JobDescription: "golang"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestRankAcceptsWhitespaceJobDescription(t *testing.T) {
	for _, jd := range []string{"   ", "a an of"} {
		t.Run(jd, func(t *testing.T) {
			f := newFixture(t, freeProfile(0))
			res, err := f.svc.Rank(context.Background(), RankRequest{
				UserID:         "u1",
				JobDescription: jd,
				Files:          []Upload{textFile("a.txt", "golang engineer")},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(res.Results) != 1 || res.Results[0].KeywordMatchPercent != 0 {
				t.Fatalf("expected one zero-percent row, got %+v", res.Results)
			}
		})
	}
}

type racingProfiles struct {
	*profiles.MemoryStore
	chargeErr error
}

func (r racingProfiles) Charge(ctx context.Context, userID string) (profiles.Profile, error) {
	return profiles.Profile{}, r.chargeErr
}

func TestLostChargeRaceRemovesSession(t *testing.T) {
	mem := profiles.NewMemoryStore()
	mem.Put(freeProfile(9))
	repo := NewMemoryRepo()
	objects := newFakeStore()
	svc := NewService(Deps{
		Repo:     repo,
		Profiles: profiles.NewStoreService(racingProfiles{MemoryStore: mem, chargeErr: profiles.ErrFreeLimitReached}, 10),
		Store:    objects,
	})

	_, err := svc.Rank(context.Background(), RankRequest{UserID: "u1", JobDescription: "golang", Files: []Upload{textFile("a.txt", "golang")}})
	if !errors.Is(err, profiles.ErrFreeLimitReached) {
		t.Fatalf("expected ErrFreeLimitReached, got %v", err)
	}
	sessions, _ := repo.ListSessions(context.Background(), "u1", 10, 0)
	if len(sessions) != 0 {
		t.Fatalf("expected compensating delete, found %d sessions", len(sessions))
	}
	if objects.count() != 0 {
		t.Fatalf("expected uploaded objects removed, found %d", objects.count())
	}
}

type failingRepo struct{ *MemoryRepo }

func (failingRepo) CreateSession(ctx context.Context, session Session) error {
	return errors.New("connection reset")
}

func TestPersistenceFailureChargesNothing(t *testing.T) {
	f := newFixture(t, freeProfile(1), func(d *Deps) { d.Repo = failingRepo{NewMemoryRepo()} })

	_, err := f.svc.Rank(context.Background(), RankRequest{UserID: "u1", JobDescription: "golang", Files: []Upload{textFile("a.txt", "golang")}})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
	p, _ := f.profiles.Get(context.Background(), "u1")
	if p.CreditsUsed != 1 {
		t.Fatalf("expected no charge, got credits_used=%d", p.CreditsUsed)
	}
}

func TestCancelledRunChargesNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	spy := func(c context.Context, timeout time.Duration, data []byte, fileName, mimeType string) extract.Result {
		cancel()
		return extract.Result{Degraded: true, Reason: "canceled"}
	}
	f := newFixture(t, freeProfile(0), func(d *Deps) { d.Extract = spy; d.Workers = 1 })

	_, err := f.svc.Rank(ctx, RankRequest{UserID: "u1", JobDescription: "golang", Files: []Upload{textFile("a.txt", "golang"), textFile("b.txt", "golang")}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	p, _ := f.profiles.Get(context.Background(), "u1")
	if p.CreditsUsed != 0 {
		t.Fatalf("expected no charge, got %d", p.CreditsUsed)
	}
}

func TestConcurrentRunsRespectFreeLimit(t *testing.T) {
	f := newFixture(t, freeProfile(7))

	var wg sync.WaitGroup
	var ok, limited int32
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Rank(context.Background(), RankRequest{UserID: "u1", JobDescription: "golang", Files: []Upload{textFile("a.txt", "golang")}})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, profiles.ErrFreeLimitReached):
				atomic.AddInt32(&limited, 1)
			default:
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 3 || limited != 5 {
		t.Fatalf("expected 3 successes and 5 rejections, got %d/%d", ok, limited)
	}
	p, _ := f.profiles.Get(context.Background(), "u1")
	if p.CreditsUsed != 10 {
		t.Fatalf("expected credits_used to stop at the limit, got %d", p.CreditsUsed)
	}
}

func TestRankUploadsRawFiles(t *testing.T) {
	objects := newFakeStore()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, freeProfile(0), func(d *Deps) {
		d.Store = objects
		d.Now = func() time.Time { return at }
	})

	res, err := f.svc.Rank(context.Background(), RankRequest{
		UserID:         "u1",
		JobDescription: "golang",
		Files:          []Upload{textFile("my cv (final).txt", "golang")},
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	want := util.HashUserKey("u1") + "/" + res.SessionID + "/" + fmt.Sprint(at.UnixMilli()) + "_my_cv__final_.txt"
	if got := res.Results[0].StoragePath; got != want {
		t.Fatalf("storage path = %q, want %q", got, want)
	}
	if string(objects.get(want)) != "golang" {
		t.Fatalf("object not stored under %q", want)
	}
}

func TestRankUploadFailureLeavesEmptyPath(t *testing.T) {
	objects := newFakeStore()
	objects.saveErr = errors.New("bucket gone")
	f := newFixture(t, freeProfile(0), func(d *Deps) { d.Store = objects })

	res, err := f.svc.Rank(context.Background(), RankRequest{UserID: "u1", JobDescription: "golang", Files: []Upload{textFile("a.txt", "golang")}})
	if err != nil {
		t.Fatalf("rank must tolerate upload failures: %v", err)
	}
	if res.Results[0].StoragePath != "" || res.Results[0].Score != 1 {
		t.Fatalf("unexpected row %+v", res.Results[0])
	}
}

func TestRankPublishesCompletedEvent(t *testing.T) {
	rec := &queue.Recorder{}
	f := newFixture(t, freeProfile(0), func(d *Deps) { d.Queue = rec })

	res, err := f.svc.Rank(context.Background(), RankRequest{
		UserID:         "u1",
		JobDescription: "golang",
		Files:          []Upload{textFile("a.txt", "golang"), textFile("b.txt", "rust")},
		RequestID:      "req-1",
	})
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	msgs := rec.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(msgs))
	}
	if msgs[0].Type != queue.TypeRankingCompleted || msgs[0].SessionID != res.SessionID || msgs[0].ResultCount != 2 || msgs[0].RequestID != "req-1" {
		t.Fatalf("unexpected message %+v", msgs[0])
	}
}

func TestDownloadURL(t *testing.T) {
	objects := newFakeStore()
	f := newFixture(t, freeProfile(0), func(d *Deps) { d.Store = objects })
	own := util.HashUserKey("u1") + "/s1/1_cv.pdf"

	url, err := f.svc.DownloadURL(context.Background(), "u1", own)
	if err != nil || url != "signed://"+own {
		t.Fatalf("unexpected url %q err %v", url, err)
	}
	if _, err := f.svc.DownloadURL(context.Background(), "u1", ""); !errors.Is(err, ErrMissingPath) {
		t.Fatalf("expected ErrMissingPath, got %v", err)
	}
	other := util.HashUserKey("u2") + "/s1/1_cv.pdf"
	if _, err := f.svc.DownloadURL(context.Background(), "u1", other); !errors.Is(err, ErrForbiddenPath) {
		t.Fatalf("expected ErrForbiddenPath, got %v", err)
	}
	objects.signErr = errors.New("kms denied")
	if _, err := f.svc.DownloadURL(context.Background(), "u1", own); !errors.Is(err, ErrSigning) {
		t.Fatalf("expected ErrSigning, got %v", err)
	}
}

func TestCandidateName(t *testing.T) {
	long := strings.Repeat("x", 80)
	tests := []struct {
		heading, file, want string
	}{
		{"Jane Doe", "jane.pdf", "Jane Doe"},
		{"", "jane.doe.pdf", "jane.doe"},
		{long, "resume.docx", "resume"},
		{strings.Repeat("y", 79), "r.txt", strings.Repeat("y", 79)},
		{"", "dir/cv.DOC", "cv"},
	}
	for _, tt := range tests {
		if got := candidateName(tt.heading, tt.file); got != tt.want {
			t.Fatalf("candidateName(%q, %q) = %q, want %q", tt.heading, tt.file, got, tt.want)
		}
	}
}

func TestSnippetCountsRunes(t *testing.T) {
	text := strings.Repeat("é", 450)
	if got := snippet(text); len([]rune(got)) != 400 {
		t.Fatalf("expected 400 runes, got %d", len([]rune(got)))
	}
	if got := snippet("short"); got != "short" {
		t.Fatalf("unexpected snippet %q", got)
	}
}

type fakeStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	saveErr error
	signErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte)}
}

func (s *fakeStore) SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.objects[key] = buf.Bytes()
	s.mu.Unlock()
	return n, nil
}

func (s *fakeStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.get(key))), nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.objects, key)
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.signErr != nil {
		return "", s.signErr
	}
	return "signed://" + key, nil
}

func (s *fakeStore) get(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[key]
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
