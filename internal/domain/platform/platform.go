package platform

import "errors"

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrAuth indicates an invalid or expired token; not recoverable without
	// merchant re-authorization.
	ErrAuth = errors.New("platform: authentication failed")
	// ErrRateLimited indicates the platform rejected the call after the retry
	// budget was exhausted.
	ErrRateLimited = errors.New("platform: rate limited")
	// ErrUpstream indicates a malformed or unexpected platform response.
	// It is never silently coerced into empty data.
	ErrUpstream = errors.New("platform: unexpected upstream response")
	// ErrNotConnected indicates the merchant has no complete credential set
	// for the platform.
	ErrNotConnected = errors.New("platform: merchant not connected")
	// ErrUnavailable indicates a transport-level failure reaching the platform.
	ErrUnavailable = errors.New("platform: temporarily unavailable")
	// ErrInvalidSignature indicates a webhook signature mismatch.
	ErrInvalidSignature = errors.New("platform: invalid signature")
	// ErrUnknownPlatform indicates an unrecognized platform code.
	ErrUnknownPlatform = errors.New("platform: unknown platform code")
)

// ---------------------------------------------------------------------------
// Code
// ---------------------------------------------------------------------------

// Code identifies one of the integrated commerce platforms.
type Code string

const (
	// CodeSalla is the Salla platform
	CodeSalla Code = "SALLA"
	// CodeZid is the Zid platform
	CodeZid Code = "ZID"
)

// IsValid returns true if the platform code is recognized
func (c Code) IsValid() bool {
	switch c {
	case CodeSalla, CodeZid:
		return true
	default:
		return false
	}
}

// String returns the string representation of Code
func (c Code) String() string {
	return string(c)
}

// DisplayName returns a human-readable name for the platform
func (c Code) DisplayName() string {
	switch c {
	case CodeSalla:
		return "Salla"
	case CodeZid:
		return "Zid"
	default:
		return string(c)
	}
}

// ParseCode parses a platform code from a URL segment or config key.
func ParseCode(s string) (Code, error) {
	switch s {
	case "salla", "SALLA", "Salla":
		return CodeSalla, nil
	case "zid", "ZID", "Zid":
		return CodeZid, nil
	default:
		return "", ErrUnknownPlatform
	}
}

// AllCodes returns the supported platform codes
func AllCodes() []Code {
	return []Code{CodeSalla, CodeZid}
}
