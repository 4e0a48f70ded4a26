// Package pkce verifies Proof Key for Code Exchange (RFC 7636) verifiers
// against the challenge bound to an authorization code.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

const (
	MethodS256  = "S256"
	MethodPlain = "plain"
)

// Verify reports whether verifier satisfies challenge under method.
// An empty challenge means PKCE was not requested and always verifies.
// Unknown methods fail closed.
func Verify(verifier, challenge, method string) bool {
	if challenge == "" {
		return true
	}

	switch method {
	case MethodS256:
		return equal(S256Challenge(verifier), challenge)
	case MethodPlain:
		return equal(verifier, challenge)
	default:
		return false
	}
}

// S256Challenge derives the S256 challenge for a verifier.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// SupportedMethod reports whether method is one Verify understands.
func SupportedMethod(method string) bool {
	return method == MethodS256 || method == MethodPlain
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
