package authcore

import (
	"context"
	"time"
)

// Role is the account role within the platform.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// PaymentStatus is the subscription payment state of an account.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// Valid reports whether s is one of the enumerated payment states.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentFailed:
		return true
	}
	return false
}

// Account is the materialized account record visible to the application.
// Accounts are created only on successful registration completion and are
// never hard-deleted by the core.
type Account struct {
	ID            string
	Email         string
	Name          string
	Role          Role
	PaymentStatus PaymentStatus
	CreatedAt     time.Time
}

// AccountRecord is the stored shape of an account: the visible Account
// plus the credential hash, which never leaves the store boundary.
type AccountRecord struct {
	Account
	PasswordHash string
}

// AccountStore is the host-supplied account database. Email is the unique
// key. Implementations must return ErrAccountNotFound for missing emails
// and ErrAccountExists for duplicate creation.
type AccountStore interface {
	GetByEmail(ctx context.Context, email string) (AccountRecord, error)
	Create(ctx context.Context, record AccountRecord) error
	Update(ctx context.Context, record AccountRecord) error
}

// CodeSender delivers a one-time code to the account holder. Transport
// (email, SMS) is a host concern; the core only hands over the plaintext
// code at issue time and never persists it.
type CodeSender interface {
	SendCode(ctx context.Context, email, purpose, code string) error
}

// Verification purposes passed to CodeSender and carried in code.issued
// events.
const (
	PurposeLogin        = "login"
	PurposeRegistration = "registration"
)

type noopCodeSender struct{}

func (noopCodeSender) SendCode(context.Context, string, string, string) error { return nil }

// SessionPhase is the discriminant of SessionState.
type SessionPhase uint8

const (
	// PhaseAnonymous means no credential submission is in flight.
	PhaseAnonymous SessionPhase = iota
	// PhasePendingTwoFactor means credentials were accepted and a
	// one-time code is awaited.
	PhasePendingTwoFactor
	// PhaseAuthenticated means the session holds a verified account.
	PhaseAuthenticated
)

// SessionState is the single authoritative session variant exposed to the
// application. PendingEmail is set only in PhasePendingTwoFactor; Account
// only in PhaseAuthenticated.
type SessionState struct {
	Phase        SessionPhase
	PendingEmail string
	Account      *Account
}

// pendingRegistration is sign-up data staged until code verification
// promotes it to a persisted Account.
type pendingRegistration struct {
	Name         string
	Email        string
	PasswordHash string
}

// ProfileUpdate is a partial account mutation. Nil fields are left
// untouched. Email is the key of every per-account store and is therefore
// not updatable through the profile path.
type ProfileUpdate struct {
	Name *string
}
