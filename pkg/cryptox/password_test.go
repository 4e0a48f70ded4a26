package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"simple secret", "demo-secret"},
		{"complex secret", "P@ssw0rd!#$%^&*()"},
		{"long secret", strings.Repeat("a", 100)},
		{"empty secret", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashSecret(tt.secret)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))
			require.Len(t, strings.Split(hash, "$"), 6)
			require.True(t, IsHashed(hash))

			require.NoError(t, VerifySecret(tt.secret, hash))
			require.ErrorIs(t, VerifySecret(tt.secret+"x", hash), ErrMismatch)
		})
	}
}

func TestHashSecretUsesUniqueSalt(t *testing.T) {
	a, err := HashSecret("same")
	require.NoError(t, err)
	b, err := HashSecret("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifySecretRejectsMalformedHashes(t *testing.T) {
	for _, h := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA",
	} {
		require.Error(t, VerifySecret("x", h), h)
	}
}

func TestMatchSecret(t *testing.T) {
	hash, err := HashSecret("s3cret")
	require.NoError(t, err)

	t.Run("plaintext stored value", func(t *testing.T) {
		require.True(t, MatchSecret("s3cret", "s3cret"))
		require.False(t, MatchSecret("S3cret", "s3cret"))
	})

	t.Run("hashed stored value", func(t *testing.T) {
		require.True(t, MatchSecret("s3cret", hash))
		require.False(t, MatchSecret("wrong", hash))
	})

	t.Run("empty stored value never matches", func(t *testing.T) {
		require.False(t, MatchSecret("", ""))
	})
}
