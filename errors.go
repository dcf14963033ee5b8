package authcore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/provafacil/authcore/policy"
)

var (
	// ErrInvalidCredentials is returned for any wrong email/password
	// combination. The caller cannot distinguish an unknown email from a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked is the sentinel behind LockedError.
	ErrAccountLocked = errors.New("account locked")
	// ErrWeakPassword is the sentinel behind PolicyError.
	ErrWeakPassword = errors.New("password policy violation")
	// ErrInvalidOrExpiredCode is returned when a verification code does
	// not verify, for any reason: absence, mismatch, expiry or replay.
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	// ErrAccountNotFound indicates no account exists for the email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists indicates an account already exists for the email.
	ErrAccountExists = errors.New("account already exists")
	// ErrRegistrationInvalid indicates an empty name or email at sign-up.
	ErrRegistrationInvalid = errors.New("invalid registration request")
	// ErrInvalidInput indicates a rejected account mutation, such as a
	// blank profile name or an unknown payment status.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSessionActive indicates Login/Register was called outside the
	// Anonymous phase.
	ErrSessionActive = errors.New("session already active")
	// ErrNoPendingVerification indicates a code operation was called
	// outside the PendingTwoFactor phase.
	ErrNoPendingVerification = errors.New("no pending verification")
	// ErrNotAuthenticated indicates an account mutation was called
	// outside the Authenticated phase.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSnapshotDisabled indicates snapshot tokens are not configured.
	ErrSnapshotDisabled = errors.New("session snapshots disabled")
	// ErrInvalidSnapshot indicates a snapshot token failed validation.
	ErrInvalidSnapshot = errors.New("invalid session snapshot")
	// ErrBackendUnavailable wraps store and hashing infrastructure
	// failures. It is the only non-domain outcome the controller returns.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrControllerNotReady indicates the controller was not built with
	// its required dependencies.
	ErrControllerNotReady = errors.New("controller not initialized")
)

// LockedError reports an active lockout together with the remaining lock
// time in whole minutes (ceiling). It unwraps to ErrAccountLocked.
type LockedError struct {
	RemainingMinutes int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked: %d minutes remaining", e.RemainingMinutes)
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }

// PolicyError reports the full set of password policy violations. It
// unwraps to ErrWeakPassword.
type PolicyError struct {
	Violations []policy.Violation
}

func (e *PolicyError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = string(v)
	}
	return "password policy violation: " + strings.Join(parts, ", ")
}

func (e *PolicyError) Unwrap() error { return ErrWeakPassword }

func backendErr(err error) error {
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
