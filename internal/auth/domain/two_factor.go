package domain

import (
	"crypto/subtle"
	"time"
)

// TwoFactorSession is a paused authorization request waiting for the one-time
// code sent to the user's phone.
type TwoFactorSession struct {
	Token               string
	UserID              string
	ClientID            string
	RedirectURI         string
	Scopes              []string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	ExpiresAt           time.Time
	CreatedAt           time.Time
}

func (s TwoFactorSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// OneTimeCode is a numeric code delivered out of band, keyed by phone number.
type OneTimeCode struct {
	PhoneNumber string
	Code        string
	ExpiresAt   time.Time
}

func (c OneTimeCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Matches compares a presented code in constant time.
func (c OneTimeCode) Matches(code string) bool {
	return code != "" && subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) == 1
}
