package core

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the gateway core. Dependency failures
// (ErrIdentityServiceUnavailable, ErrValidationUnavailable) are kept distinct
// from client faults so operators can tell them apart in responses and logs.
var (
	ErrRuleNotFound               = errors.New("no matching route rule")
	ErrMalformedRequest           = errors.New("malformed login request")
	ErrUnauthorized               = errors.New("unauthorized")
	ErrUnsupportedRequestType     = errors.New("unsupported login request type")
	ErrInvalidSignature           = errors.New("invalid wallet signature")
	ErrIdentityServiceUnavailable = errors.New("identity service unavailable")
	ErrValidationUnavailable      = errors.New("validation provider unavailable")
	ErrNoNonce                    = errors.New("no pending nonce for wallet")
	ErrNotBound                   = errors.New("wallet is not bound to any profile")
	ErrInvalidRefreshToken        = errors.New("invalid or expired refresh token")
)

// WrongSignerError reports a signature that recovered to a different wallet
// than the one that requested the login nonce.
type WrongSignerError struct {
	Recovered string
	Expected  string
}

func (e *WrongSignerError) Error() string {
	return fmt.Sprintf("wrong signer: recovered %s, expected %s", e.Recovered, e.Expected)
}

func (e *WrongSignerError) Unwrap() error {
	return ErrInvalidSignature
}
