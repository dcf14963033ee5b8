package authcore

import (
	"context"
	"sync"

	"github.com/provafacil/authcore/internal/limiters"
	"github.com/provafacil/authcore/internal/notify"
	"github.com/provafacil/authcore/internal/stores"
	"github.com/provafacil/authcore/password"
	"github.com/provafacil/authcore/session"
)

// Controller orchestrates the login, registration and verification flows
// and owns the single authoritative SessionState of the running client.
//
// The controller serializes its own state transitions with a mutex; the
// underlying stores are safe under concurrent access across accounts and
// make code consumption atomic per account.
type Controller struct {
	config Config

	accounts  AccountStore
	sender    CodeSender
	hasher    *password.Hasher
	lockouts  *limiters.LockoutTracker
	devices   *stores.DeviceRegistry
	codes     *stores.VerificationCodeStore
	snapshots *session.Manager
	events    *notify.Dispatcher

	mu      sync.Mutex
	phase   SessionPhase
	pending *pendingRegistration
	// pendingEmail is set in PhasePendingTwoFactor for both login and
	// registration; pending is non-nil only for registration.
	pendingEmail string
	account      *Account
}

func (c *Controller) ready() bool {
	return c != nil &&
		c.accounts != nil &&
		c.hasher != nil &&
		c.lockouts != nil &&
		c.devices != nil &&
		c.codes != nil
}

// SessionState returns a copy of the current session variant.
func (c *Controller) SessionState() SessionState {
	if c == nil {
		return SessionState{Phase: PhaseAnonymous}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotStateLocked()
}

func (c *Controller) snapshotStateLocked() SessionState {
	state := SessionState{Phase: c.phase}
	switch c.phase {
	case PhasePendingTwoFactor:
		state.PendingEmail = c.pendingEmail
	case PhaseAuthenticated:
		if c.account != nil {
			account := *c.account
			state.Account = &account
		}
	}
	return state
}

// IsAuthenticated reports whether the session holds a verified account.
func (c *Controller) IsAuthenticated() bool {
	return c.SessionState().Phase == PhaseAuthenticated
}

// TwoFactorPending reports whether a one-time code is awaited.
func (c *Controller) TwoFactorPending() bool {
	return c.SessionState().Phase == PhasePendingTwoFactor
}

// Logout returns the session to Anonymous and drops the held account
// reference. Outside the Authenticated phase it is a no-op.
func (c *Controller) Logout(ctx context.Context) {
	if c == nil {
		return
	}

	c.mu.Lock()
	if c.phase != PhaseAuthenticated {
		c.mu.Unlock()
		return
	}
	email := ""
	if c.account != nil {
		email = c.account.Email
	}
	c.resetToAnonymousLocked()
	c.mu.Unlock()

	c.emit(ctx, EventLogout, true, email, nil, nil)
}

func (c *Controller) resetToAnonymousLocked() {
	c.phase = PhaseAnonymous
	c.pending = nil
	c.pendingEmail = ""
	c.account = nil
}

// Close shuts down the event dispatcher, draining buffered events.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.events.Close()
}

// EventsDropped returns the number of events discarded because the
// dispatcher buffer was full.
func (c *Controller) EventsDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.events.Dropped()
}
