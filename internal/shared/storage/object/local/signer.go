package local

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// FilesRoute is the path prefix the download handler is mounted on.
const FilesRoute = "/api/v1/files/"

var (
	ErrSignatureInvalid = errors.New("signature invalid")
	ErrSignatureExpired = errors.New("signature expired")
)

// Signer issues and checks HMAC-SHA256 signatures over "key|expiry".
type Signer struct {
	secret  []byte
	baseURL string
}

// URL builds a signed download URL for key valid until expires.
func (s Signer) URL(key string, expires time.Time) string {
	exp := strconv.FormatInt(expires.Unix(), 10)
	q := url.Values{}
	q.Set("expires", exp)
	q.Set("sig", s.sign(key, exp))

	segments := strings.Split(strings.TrimLeft(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + FilesRoute + strings.Join(segments, "/") + "?" + q.Encode()
}

// Verify checks sig for key and rejects expired links.
func (s Signer) Verify(key, expires, sig string, now time.Time) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrSignatureInvalid
	}
	expected := s.sign(key, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureInvalid
	}
	if now.Unix() > exp {
		return ErrSignatureExpired
	}
	return nil
}

func (s Signer) sign(key, expires string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(strings.TrimLeft(key, "/") + "|" + expires))
	return hex.EncodeToString(mac.Sum(nil))
}
