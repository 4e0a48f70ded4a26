package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode(t *testing.T) {
	seen := make(map[string]int)
	for range 50 {
		code, err := GenerateNumericCode()
		require.NoError(t, err)
		require.Regexp(t, `^[0-9]{6}$`, code)
		seen[code]++
	}

	// 50 draws from a million values should practically never collapse.
	require.Greater(t, len(seen), 40)
}

func TestHOTPCodeMatchesRFC4226(t *testing.T) {
	key := []byte("12345678901234567890")

	// RFC 4226 appendix D.
	tests := []struct {
		counter uint64
		want    string
	}{
		{0, "755224"},
		{1, "287082"},
		{5, "254676"},
		{9, "520489"},
	}
	for _, tt := range tests {
		code, err := hotpCode(key, tt.counter)
		require.NoError(t, err)
		require.Equal(t, tt.want, code, "counter %d", tt.counter)
	}
}
