package signing

import "errors"

// Kind classifies signing failures so callers can map them to a response
// without inspecting messages.
type Kind int

const (
	KindUnknown Kind = iota
	// KindInput is a caller mistake, such as an omitted path.
	KindInput
	// KindConfig means the signer was built without a secret or base URL.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is returned by Sign when a required value is missing.
type Error struct {
	Kind  Kind
	Field string
}

func (e *Error) Error() string {
	return "signing: missing " + e.Field
}

var (
	ErrMissingPath    = &Error{Kind: KindInput, Field: "path"}
	ErrMissingSecret  = &Error{Kind: KindConfig, Field: "signing key"}
	ErrMissingBaseURL = &Error{Kind: KindConfig, Field: "base URL"}
)

// KindOf reports the Kind of err, or KindUnknown when err is not a signing
// error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
