// Package signing produces Bunny.net style token authenticated URLs. The token
// is an HMAC-SHA256 over secret+path+expiry keyed with the same secret, and
// must match the CDN's own verifier byte for byte.
package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dharsanguruparan/bunnysign/internal/model"
)

// DefaultValidity is how long a signed URL stays valid.
const DefaultValidity = time.Hour

// ExpiresAtLayout renders expiry instants the way JavaScript's toISOString
// does, e.g. 2023-11-14T22:13:20.000Z.
const ExpiresAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Signer signs paths below a CDN base URL. A Signer is immutable once built
// and safe for concurrent use.
type Signer struct {
	secret   string
	baseURL  string
	validity time.Duration
	clock    clock.Clock
}

// Option customises a Signer.
type Option func(*Signer)

// WithClock replaces the wall clock used to compute expiry times.
func WithClock(c clock.Clock) Option {
	return func(s *Signer) { s.clock = c }
}

// WithValidity overrides DefaultValidity. Sub-second parts are dropped and
// non-positive values are ignored.
func WithValidity(d time.Duration) Option {
	return func(s *Signer) {
		if d >= time.Second {
			s.validity = d.Truncate(time.Second)
		}
	}
}

// NewSigner creates a Signer. An empty secret or baseURL is not rejected here;
// Sign reports it as a configuration error so the process can still start.
func NewSigner(secret, baseURL string, opts ...Option) *Signer {
	s := &Signer{
		secret:   secret,
		baseURL:  baseURL,
		validity: DefaultValidity,
		clock:    clock.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validity returns the window added to the current time by Sign.
func (s *Signer) Validity() time.Duration {
	return s.validity
}

// Sign signs path with an expiry of now (floored to whole seconds) plus the
// validity window. An empty path is treated as missing.
func (s *Signer) Sign(path string) (*model.SignedURL, error) {
	return s.SignAt(path, s.clock.Now().Unix()+int64(s.validity/time.Second))
}

// SignAt signs path with an explicit unix expiry.
func (s *Signer) SignAt(path string, expires int64) (*model.SignedURL, error) {
	if path == "" {
		return nil, ErrMissingPath
	}
	if s.secret == "" {
		return nil, ErrMissingSecret
	}
	if s.baseURL == "" {
		return nil, ErrMissingBaseURL
	}
	token := Token(s.secret, path, expires)
	exp := strconv.FormatInt(expires, 10)
	return &model.SignedURL{
		URL:       s.baseURL + path + "?token=" + token + "&expires=" + exp,
		Path:      path,
		Expires:   expires,
		ExpiresAt: time.Unix(expires, 0).UTC().Format(ExpiresAtLayout),
	}, nil
}

// Validate reports whether token was issued by this signer for path and
// expires, and has not yet expired.
func (s *Signer) Validate(path, expires, token string) bool {
	if s.secret == "" || path == "" {
		return false
	}
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return false
	}
	if s.clock.Now().Unix() > exp {
		return false
	}
	got, err := hex.DecodeString(token)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Token(s.secret, path, exp))
	return hmac.Equal(got, want)
}

// Token returns the lowercase hex HMAC-SHA256 of secret+path+expires keyed
// with secret. The pieces are concatenated without separators.
func Token(secret, path string, expires int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(secret + path + strconv.FormatInt(expires, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
