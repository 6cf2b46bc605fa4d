package ranking

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-ranker/internal/profiles"
	"resume-ranker/internal/shared/server/middleware"
	"resume-ranker/internal/shared/util"
)

func newTestRouter(t *testing.T, p profiles.Profile, maxFiles int) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, p, func(d *Deps) { d.Store = newFakeStore() })
	h := NewHandler(f.svc, maxFiles, 1<<20)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Auth("dev"))
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	h.RegisterHistoryRoutes(api)
	return r, f.svc
}

func multipartBody(t *testing.T, jd *string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if jd != nil {
		if err := w.WriteField("jobDescription", *jd); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, content := range files {
		fw, err := w.CreateFormFile("resumes", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, w.FormDataContentType()
}

func doRank(t *testing.T, r *gin.Engine, identity map[string]string, body *bytes.Buffer, contentType string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rank", body)
	req.Header.Set("Content-Type", contentType)
	for k, v := range identity {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var out map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON (%d): %q", resp.Code, resp.Body.String())
	}
	return resp, out
}

var signedIn = map[string]string{"X-User-Id": "u1"}

func jdPtr(s string) *string { return &s }

func TestRankHandlerSuccess(t *testing.T) {
	r, _ := newTestRouter(t, freeProfile(0), 5)
	body, ct := multipartBody(t, jdPtr("golang postgres"), map[string]string{
		"a.txt": "Alex\ngolang postgres",
		"b.txt": "Blair\nrust",
	})

	resp, out := doRank(t, r, signedIn, body, ct)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.Code, out)
	}
	results, ok := out["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("unexpected results %v", out["results"])
	}
	top := results[0].(map[string]any)
	if top["candidate_name"] != "Alex" || top["keyword_match_percent"] != float64(100) {
		t.Fatalf("unexpected top row %v", top)
	}
	second := results[1].(map[string]any)
	if _, isList := second["matched_keywords"].([]any); !isList {
		t.Fatalf("matched_keywords must be an array, got %v", second["matched_keywords"])
	}
	if out["creditsUsed"] != float64(1) || out["remainingCredits"] != float64(9) || out["subscriptionStatus"] != "free" {
		t.Fatalf("unexpected quota fields %v", out)
	}
	if out["sessionId"] == "" {
		t.Fatalf("missing sessionId")
	}
}

func TestRankHandlerErrors(t *testing.T) {
	tests := []struct {
		name       string
		profile    profiles.Profile
		identity   map[string]string
		jd         *string
		files      map[string]string
		wantStatus int
		wantError  string
		wantMsg    string
	}{
		{
			name:       "guest",
			profile:    freeProfile(0),
			identity:   map[string]string{"X-Guest-Id": "g1"},
			jd:         jdPtr("golang"),
			files:      map[string]string{"a.txt": "golang"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Not authenticated",
		},
		{
			name:       "no profile",
			identity:   signedIn,
			jd:         jdPtr("golang"),
			files:      map[string]string{"a.txt": "golang"},
			wantStatus: http.StatusBadRequest,
			wantError:  "User profile not found",
		},
		{
			name:       "inactive",
			profile:    profiles.Profile{UserID: "u1", CreditsLimit: 10, SubscriptionStatus: profiles.StatusInactive},
			identity:   signedIn,
			jd:         jdPtr("golang"),
			files:      map[string]string{"a.txt": "golang"},
			wantStatus: http.StatusPaymentRequired,
			wantError:  "Your subscription is inactive. Please upgrade.",
		},
		{
			name:       "free limit",
			profile:    freeProfile(10),
			identity:   signedIn,
			jd:         jdPtr("golang"),
			files:      map[string]string{"a.txt": "golang"},
			wantStatus: http.StatusPaymentRequired,
			wantError:  "Free-tier limit reached",
			wantMsg:    upgradeHint,
		},
		{
			name:       "missing job description",
			profile:    freeProfile(0),
			identity:   signedIn,
			files:      map[string]string{"a.txt": "golang"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing job description or files",
		},
		{
			name:       "no files",
			profile:    freeProfile(0),
			identity:   signedIn,
			jd:         jdPtr("golang"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing job description or files",
		},
		{
			name:       "too many files",
			profile:    freeProfile(0),
			identity:   signedIn,
			jd:         jdPtr("golang"),
			files:      map[string]string{"a.txt": "x", "b.txt": "x", "c.txt": "x"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Too many files",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.profile, 2)
			body, ct := multipartBody(t, tt.jd, tt.files)
			resp, out := doRank(t, r, tt.identity, body, ct)
			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %v", tt.wantStatus, resp.Code, out)
			}
			if out["error"] != tt.wantError {
				t.Fatalf("expected error %q, got %v", tt.wantError, out["error"])
			}
			if tt.wantMsg != "" && out["message"] != tt.wantMsg {
				t.Fatalf("expected message %q, got %v", tt.wantMsg, out["message"])
			}
			if out["code"] == "" {
				t.Fatalf("missing error code")
			}
		})
	}
}

func TestRankHandlerRejectsNonMultipart(t *testing.T) {
	r, _ := newTestRouter(t, freeProfile(0), 5)
	resp, out := doRank(t, r, signedIn, bytes.NewBufferString(`{"jobDescription":"go"}`), "application/json")
	if resp.Code != http.StatusBadRequest || out["error"] != "Missing job description or files" {
		t.Fatalf("unexpected response %d %v", resp.Code, out)
	}
}

func TestSessionHistoryRoutes(t *testing.T) {
	r, _ := newTestRouter(t, freeProfile(0), 5)
	body, ct := multipartBody(t, jdPtr("golang"), map[string]string{"a.txt": "golang"})
	_, ranked := doRank(t, r, signedIn, body, ct)
	sessionID := ranked["sessionId"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions?limit=500", nil)
	req.Header.Set("X-User-Id", "u1")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.Code)
	}
	var list struct {
		Items []Session `json:"items"`
		Limit int       `json:"limit"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != sessionID || list.Limit != 50 {
		t.Fatalf("unexpected list %+v", list)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID, nil)
	req.Header.Set("X-User-Id", "u1")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.Code)
	}
	var got Session
	if err := json.Unmarshal(resp.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if len(got.Results) != 1 || got.Results[0].FileName != "a.txt" {
		t.Fatalf("unexpected session %+v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID, nil)
	req.Header.Set("X-User-Id", "someone-else")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("foreign session: expected 404, got %d", resp.Code)
	}
}

func TestResumeDownloadRoute(t *testing.T) {
	r, _ := newTestRouter(t, freeProfile(0), 5)

	tests := []struct {
		body       string
		wantStatus int
		wantError  string
	}{
		{body: `{}`, wantStatus: http.StatusBadRequest, wantError: "Missing file path"},
		{body: `{"path":"` + util.HashUserKey("u2") + `/s/1_a.pdf"}`, wantStatus: http.StatusForbidden, wantError: "File not accessible"},
		{body: `{"path":"` + util.HashUserKey("u1") + `/s/1_a.pdf"}`, wantStatus: http.StatusOK},
	}
	for i, tt := range tests {
		t.Run(strconv.Itoa(i), func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/resume-download", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-User-Id", "u1")
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)
			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, resp.Code, resp.Body.String())
			}
			var out map[string]any
			_ = json.Unmarshal(resp.Body.Bytes(), &out)
			if tt.wantError != "" && out["error"] != tt.wantError {
				t.Fatalf("expected error %q, got %v", tt.wantError, out["error"])
			}
			if tt.wantStatus == http.StatusOK && out["url"] == "" {
				t.Fatalf("missing url in %v", out)
			}
		})
	}
}

func TestRankHandlerJobDescriptionPresence(t *testing.T) {
	tests := []struct {
		name       string
		jd         *string
		wantStatus int
	}{
		{name: "absent field", jd: nil, wantStatus: http.StatusBadRequest},
		{name: "empty field", jd: jdPtr(""), wantStatus: http.StatusBadRequest},
		{name: "whitespace field", jd: jdPtr("   "), wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, freeProfile(0), 5)
			body, ct := multipartBody(t, tt.jd, map[string]string{"a.txt": "Alex\ngolang"})
			resp, out := doRank(t, r, signedIn, body, ct)
			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %v", tt.wantStatus, resp.Code, out)
			}
		})
	}
}
