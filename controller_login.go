package authcore

import (
	"context"
	"errors"
	"strconv"
)

// Login runs the credential flow for an existing account.
//
// The lockout check runs before any credential comparison, so submissions
// against a locked account never reach the password verifier. They still
// count as failures, which re-escalates the lock. A correct submission
// from a known device authenticates directly and resets the lockout
// counter; from an unknown device it issues a one-time code and parks the
// session in PhasePendingTwoFactor, leaving the counter untouched until
// the flow fully completes.
func (c *Controller) Login(ctx context.Context, email, passwd string) error {
	if !c.ready() {
		return ErrControllerNotReady
	}
	email = normalizeEmail(email)
	if email == "" {
		return ErrInvalidCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAnonymous {
		return ErrSessionActive
	}

	status, err := c.lockouts.Status(ctx, email)
	if err != nil {
		return backendErr(err)
	}
	if status.Locked {
		// A submission against a locked account is hostile traffic: it is
		// recorded as a failure and re-escalates, so hammering a locked
		// account keeps extending the lock. The credential is never
		// evaluated on this path.
		if err := c.lockouts.RecordFailure(ctx, email); err != nil {
			return backendErr(err)
		}
		mins := status.RemainingMinutes()
		lockedErr := &LockedError{RemainingMinutes: mins}
		c.emit(ctx, EventAccountLocked, false, email, lockedErr, func() map[string]string {
			return map[string]string{
				"remaining_minutes": strconv.Itoa(mins),
			}
		})
		return lockedErr
	}

	record, err := c.accounts.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			return backendErr(err)
		}
		// Burn the same hashing work as a real mismatch so the unknown
		// email path is not distinguishable by timing.
		c.hasher.DummyVerify(passwd)
		return c.failLoginLocked(ctx, email, "unknown_account")
	}

	ok, err := c.hasher.Verify(passwd, record.PasswordHash)
	if err != nil || !ok {
		return c.failLoginLocked(ctx, email, "password_mismatch")
	}

	deviceID := deviceIDFromContext(ctx)
	ip := clientIPFromContext(ctx)
	known, err := c.devices.IsKnown(ctx, email, deviceID, ip)
	if err != nil {
		return backendErr(err)
	}

	if known {
		if err := c.lockouts.Reset(ctx, email); err != nil {
			return backendErr(err)
		}
		account := record.Account
		c.phase = PhaseAuthenticated
		c.account = &account
		c.pending = nil
		c.pendingEmail = ""
		c.emit(ctx, EventLoginSucceeded, true, email, nil, func() map[string]string {
			return map[string]string{
				"known_device": "true",
			}
		})
		return nil
	}

	if err := c.issueCodeLocked(ctx, email, PurposeLogin); err != nil {
		return err
	}
	c.phase = PhasePendingTwoFactor
	c.pendingEmail = email
	c.pending = nil
	return nil
}

// failLoginLocked records a credential failure and returns
// ErrInvalidCredentials. Caller holds the mutex.
func (c *Controller) failLoginLocked(ctx context.Context, email, reason string) error {
	if err := c.lockouts.RecordFailure(ctx, email); err != nil {
		return backendErr(err)
	}
	c.emit(ctx, EventLoginFailed, false, email, ErrInvalidCredentials, func() map[string]string {
		return map[string]string{
			"reason": reason,
		}
	})
	return ErrInvalidCredentials
}

// issueCodeLocked issues a fresh code (invalidating any prior one), hands
// it to the delivery collaborator and emits code.issued. Caller holds the
// mutex.
func (c *Controller) issueCodeLocked(ctx context.Context, email, purpose string) error {
	code, err := c.codes.Issue(ctx, email, purpose)
	if err != nil {
		return backendErr(err)
	}
	if err := c.sender.SendCode(ctx, email, purpose, code); err != nil {
		return backendErr(err)
	}
	c.emit(ctx, EventCodeIssued, true, email, nil, func() map[string]string {
		return map[string]string{
			"purpose": purpose,
		}
	})
	return nil
}
