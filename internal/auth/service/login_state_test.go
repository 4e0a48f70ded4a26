package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoginStateTransitions(t *testing.T) {
	tests := []struct {
		from, to LoginState
		ok       bool
	}{
		{AwaitingCredentials, AwaitingTwoFactorCode, true},
		{AwaitingCredentials, Completed, true},
		{AwaitingCredentials, Expired, false},
		{AwaitingTwoFactorCode, AwaitingTwoFactorCode, true},
		{AwaitingTwoFactorCode, Completed, true},
		{AwaitingTwoFactorCode, Expired, true},
		{AwaitingTwoFactorCode, AwaitingCredentials, false},
		{Completed, AwaitingCredentials, false},
		{Completed, Completed, false},
		{Expired, AwaitingTwoFactorCode, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			require.Equal(t, tt.ok, tt.from.CanTransition(tt.to))

			got, err := advance(tt.from, tt.to)
			if tt.ok {
				require.NoError(t, err)
				require.Equal(t, tt.to, got)
			} else {
				require.Error(t, err)
				require.Equal(t, tt.from, got)
			}
		})
	}
}

func TestLoginStateTerminal(t *testing.T) {
	require.False(t, AwaitingCredentials.Terminal())
	require.False(t, AwaitingTwoFactorCode.Terminal())
	require.True(t, Completed.Terminal())
	require.True(t, Expired.Terminal())
	require.Equal(t, "LoginState(9)", LoginState(9).String())
}
