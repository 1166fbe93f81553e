// Package model contains the request-scoped values shared by the signer, the
// HTTP API and the CLI. Nothing here is persisted.
package model

// SignedURL is the result of signing a single path. Expires is the unix
// expiry embedded in URL; ExpiresAt is the same instant as an ISO-8601 UTC
// string with millisecond precision.
type SignedURL struct {
	URL       string `json:"signedUrl"`
	Path      string `json:"path"`
	Expires   int64  `json:"expires"`
	ExpiresAt string `json:"expiresAt"`
}

// SignResponse wraps a SignedURL in the success envelope of GET /sign.
type SignResponse struct {
	Success bool       `json:"success"`
	Data    *SignedURL `json:"data"`
}

// ErrorResponse is returned for any failed API request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Health is the body of GET /.
type Health struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Version string `json:"version"`
}
