package service

import "fmt"

// LoginState is the position of a login in the two-factor state machine.
//
//	AwaitingCredentials --(password ok, 2FA off or inline code ok)--> Completed
//	AwaitingCredentials --(password ok, 2FA on, no code)-----------> AwaitingTwoFactorCode
//	AwaitingTwoFactorCode --(wrong code)--------------------------> AwaitingTwoFactorCode
//	AwaitingTwoFactorCode --(correct code)------------------------> Completed
//	AwaitingTwoFactorCode --(session gone or lapsed)--------------> Expired
type LoginState int

const (
	AwaitingCredentials LoginState = iota
	AwaitingTwoFactorCode
	Completed
	Expired
)

func (s LoginState) String() string {
	switch s {
	case AwaitingCredentials:
		return "awaiting_credentials"
	case AwaitingTwoFactorCode:
		return "awaiting_two_factor_code"
	case Completed:
		return "completed"
	case Expired:
		return "expired"
	default:
		return fmt.Sprintf("LoginState(%d)", int(s))
	}
}

// Terminal reports whether no further login step can follow.
func (s LoginState) Terminal() bool {
	return s == Completed || s == Expired
}

var loginTransitions = map[LoginState][]LoginState{
	AwaitingCredentials:   {AwaitingTwoFactorCode, Completed},
	AwaitingTwoFactorCode: {AwaitingTwoFactorCode, Completed, Expired},
}

// CanTransition reports whether the machine may move from s to next.
func (s LoginState) CanTransition(next LoginState) bool {
	for _, allowed := range loginTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// advance checks a transition and returns the new state.
func advance(from, to LoginState) (LoginState, error) {
	if !from.CanTransition(to) {
		return from, fmt.Errorf("login: illegal transition %s -> %s", from, to)
	}
	return to, nil
}
