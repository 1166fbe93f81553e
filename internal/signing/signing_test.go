package signing

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

const goldenToken = "bea108cbd673d51a7afe6e86509da9cc9c652d097baca09a9b41d107d37d615a"

func TestTokenGolden(t *testing.T) {
	// HMAC-SHA256(key="testkey", msg="testkey/video.mp41700000000")
	got := Token("testkey", "/video.mp4", 1700000000)
	if got != goldenToken {
		t.Fatalf("Token() = %s, want %s", got, goldenToken)
	}
}

func TestTokenDeterministic(t *testing.T) {
	a := Token("testkey", "/video.mp4", 1700000000)
	b := Token("testkey", "/video.mp4", 1700000000)
	if a != b {
		t.Fatalf("expected identical tokens, got %s and %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestTokenNearMisses(t *testing.T) {
	cases := []struct {
		name    string
		secret  string
		path    string
		expires int64
		want    string
	}{
		{"expiry+1", "testkey", "/video.mp4", 1700000001, "e8837150ee6b6e595c0a466e78b491a1c659e93b36a78f701f983830e9a7aad4"},
		{"secret byte", "testkez", "/video.mp4", 1700000000, "5a8e0be1b23ff24e7dddf2338612158d469f0f3cbc9c4cfcd382c373bd448006"},
		{"path byte", "testkey", "/video.mp5", 1700000000, "39b879f1b364f8a6e6a06f810c7919fa3a099031234c9c0e0ebaf8382896017e"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Token(tc.secret, tc.path, tc.expires)
			if got == goldenToken {
				t.Fatalf("perturbed input produced the golden token")
			}
			if got != tc.want {
				t.Fatalf("Token() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestSignEndToEnd(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1699996400, 999_000_000))
	s := NewSigner("testkey", "https://cdn.example.com", WithClock(mock))

	res, err := s.Sign("/video.mp4")
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if res.Expires != 1700000000 {
		t.Fatalf("expected floored expiry 1700000000, got %d", res.Expires)
	}
	wantURL := "https://cdn.example.com/video.mp4?token=" + goldenToken + "&expires=1700000000"
	if res.URL != wantURL {
		t.Fatalf("URL = %s, want %s", res.URL, wantURL)
	}
	if res.Path != "/video.mp4" {
		t.Fatalf("unexpected path %q", res.Path)
	}
	if res.ExpiresAt != "2023-11-14T22:13:20.000Z" {
		t.Fatalf("unexpected expiresAt %q", res.ExpiresAt)
	}
}

func TestSignExpiresAtRoundTrip(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1712345678, 0))
	s := NewSigner("k", "https://cdn.example.com", WithClock(mock))

	res, err := s.Sign("/a.mp4")
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	parsed, err := time.Parse(time.RFC3339Nano, res.ExpiresAt)
	if err != nil {
		t.Fatalf("parse expiresAt: %v", err)
	}
	if parsed.Unix() != res.Expires {
		t.Fatalf("expiresAt %s does not match expires %d", res.ExpiresAt, res.Expires)
	}
	if res.Expires != 1712345678+3600 {
		t.Fatalf("expected one hour window, got %d", res.Expires)
	}
}

func TestSignPathIsEchoedVerbatim(t *testing.T) {
	s := NewSigner("k", "https://cdn.example.com")
	res, err := s.SignAt("no-leading-slash?x=1", 42)
	if err != nil {
		t.Fatalf("SignAt() error: %v", err)
	}
	if res.Path != "no-leading-slash?x=1" {
		t.Fatalf("path was altered: %q", res.Path)
	}
}

func TestSignErrors(t *testing.T) {
	cases := []struct {
		name    string
		signer  *Signer
		path    string
		wantErr error
		kind    Kind
	}{
		{"missing path", NewSigner("k", "https://cdn"), "", ErrMissingPath, KindInput},
		{"path checked before config", NewSigner("", ""), "", ErrMissingPath, KindInput},
		{"missing secret", NewSigner("", "https://cdn"), "/a.mp4", ErrMissingSecret, KindConfig},
		{"missing base url", NewSigner("k", ""), "/a.mp4", ErrMissingBaseURL, KindConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := tc.signer.Sign(tc.path)
			if res != nil {
				t.Fatalf("expected no result, got %+v", res)
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if got := KindOf(err); got != tc.kind {
				t.Fatalf("KindOf() = %s, want %s", got, tc.kind)
			}
		})
	}
	if KindOf(errors.New("boom")) != KindUnknown {
		t.Fatalf("expected unknown kind for foreign errors")
	}
}

func TestWithValidity(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1000, 0))
	s := NewSigner("k", "https://cdn", WithClock(mock), WithValidity(90*time.Second+500*time.Millisecond))
	res, err := s.Sign("/a")
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if res.Expires != 1090 {
		t.Fatalf("expected 1090, got %d", res.Expires)
	}
	if NewSigner("k", "u", WithValidity(0)).Validity() != DefaultValidity {
		t.Fatalf("zero validity should keep the default")
	}
}

func TestValidate(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1699996400, 0))
	s := NewSigner("testkey", "https://cdn.example.com", WithClock(mock))

	if !s.Validate("/video.mp4", "1700000000", goldenToken) {
		t.Fatalf("expected golden token to validate")
	}
	if s.Validate("/video.mp5", "1700000000", goldenToken) {
		t.Fatalf("expected validation to fail for wrong path")
	}
	if s.Validate("/video.mp4", "1700000001", goldenToken) {
		t.Fatalf("expected validation to fail for wrong expiry")
	}
	if s.Validate("/video.mp4", "soon", goldenToken) {
		t.Fatalf("expected validation to fail for malformed expiry")
	}
	if s.Validate("/video.mp4", "1700000000", "not-hex") {
		t.Fatalf("expected validation to fail for malformed token")
	}
	mock.Add(time.Hour + time.Second)
	if s.Validate("/video.mp4", "1700000000", goldenToken) {
		t.Fatalf("expected validation to fail once expired")
	}
}
