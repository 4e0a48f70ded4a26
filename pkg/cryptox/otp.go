package cryptox

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// codeSecretSize is the HOTP key length, matching the SHA-1 block output.
const codeSecretSize = 20

// GenerateNumericCode returns a six digit one-time code for SMS delivery.
//
// The code is the HOTP value (RFC 4226) of a fresh random key at counter 0.
// HOTP dynamic truncation reduces a 31-bit value modulo 10^6 and zero-pads it,
// so the result has the exact digit count, keeps leading zeros and has a
// modulo bias below 1e-3, in the same format authenticator apps display.
func GenerateNumericCode() (string, error) {
	raw := make([]byte, codeSecretSize)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate code secret: %w", err)
	}
	return hotpCode(raw, 0)
}

// hotpCode derives the six digit HOTP value of key at counter.
func hotpCode(key []byte, counter uint64) (string, error) {
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(key)

	code, err := hotp.GenerateCodeCustom(secret, counter, hotp.ValidateOpts{
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to derive one-time code: %w", err)
	}
	return code, nil
}
