package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resume-ranker/internal/shared/storage/object"
)

func TestSaveOpenDelete(t *testing.T) {
	store := New(t.TempDir(), []byte("secret"), "")
	ctx := context.Background()

	n, err := store.SaveWithKey(ctx, "user/session/1_cv.txt", "text/plain", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n != 5 {
		t.Fatalf("expected 5 bytes, got %d", n)
	}

	rc, err := store.Open(ctx, "user/session/1_cv.txt")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "hello" {
		t.Fatalf("unexpected content %q", data)
	}

	if err := store.Delete(ctx, "user/session/1_cv.txt"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "user/session/1_cv.txt"); err != nil {
		t.Fatalf("second delete should be a no-op: %v", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	store := New(t.TempDir(), []byte("secret"), "")
	for _, key := range []string{"", "../etc/passwd", "a/../../b"} {
		if _, err := store.SaveWithKey(context.Background(), key, "", bytes.NewReader(nil)); !errors.Is(err, object.ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", key, err)
		}
	}
}

func TestSignedDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store := New(t.TempDir(), []byte("secret"), "http://api.local")
	store.now = func() time.Time { return now }

	ctx := context.Background()
	if _, err := store.SaveWithKey(ctx, "u1/s1/170_Jane_Doe.pdf", "application/pdf", strings.NewReader("%PDF-1.4")); err != nil {
		t.Fatalf("save: %v", err)
	}
	signed, err := store.SignedURL(ctx, "u1/s1/170_Jane_Doe.pdf", 10*time.Minute)
	if err != nil {
		t.Fatalf("signed url: %v", err)
	}
	if !strings.HasPrefix(signed, "http://api.local/api/v1/files/u1/s1/170_Jane_Doe.pdf?") {
		t.Fatalf("unexpected signed url %q", signed)
	}

	r := gin.New()
	store.RegisterRoutes(r.Group("/api/v1"))

	parsed, _ := url.Parse(signed)
	target := parsed.RequestURI()

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Body.String() != "%PDF-1.4" {
		t.Fatalf("unexpected body %q", resp.Body.String())
	}

	tampered := strings.Replace(target, "sig=", "sig=0", 1)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, tampered, nil))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for tampered signature, got %d", resp.Code)
	}

	now = now.Add(11 * time.Minute)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for expired link, got %d", resp.Code)
	}
}
