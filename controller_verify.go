package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// VerifyCode completes a pending two-factor challenge. A matching,
// unexpired code is consumed atomically: a second submission of the same
// code always fails. On success the submitting device is remembered and
// the session transitions to Authenticated, either by materializing the
// staged registration into a new Account or by loading the existing one.
// A failed verification leaves the session in PhasePendingTwoFactor so
// the caller can retry or request a fresh code.
func (c *Controller) VerifyCode(ctx context.Context, code string) error {
	if !c.ready() {
		return ErrControllerNotReady
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhasePendingTwoFactor {
		return ErrNoPendingVerification
	}
	email := c.pendingEmail

	ok, err := c.codes.Consume(ctx, email, code)
	if err != nil {
		return backendErr(err)
	}
	if !ok {
		c.emit(ctx, EventVerificationFailed, false, email, ErrInvalidOrExpiredCode, nil)
		return ErrInvalidOrExpiredCode
	}

	deviceID := deviceIDFromContext(ctx)
	ip := clientIPFromContext(ctx)
	if err := c.devices.Remember(ctx, email, deviceID, ip); err != nil {
		return backendErr(err)
	}

	if c.pending != nil {
		account := Account{
			ID:            uuid.NewString(),
			Email:         c.pending.Email,
			Name:          c.pending.Name,
			Role:          RoleStudent,
			PaymentStatus: PaymentPending,
			CreatedAt:     time.Now(),
		}
		record := AccountRecord{Account: account, PasswordHash: c.pending.PasswordHash}
		if err := c.accounts.Create(ctx, record); err != nil {
			if errors.Is(err, ErrAccountExists) {
				return ErrAccountExists
			}
			return backendErr(err)
		}
		c.phase = PhaseAuthenticated
		c.account = &account
		c.pending = nil
		c.pendingEmail = ""
		c.emit(ctx, EventAccountCreated, true, email, nil, func() map[string]string {
			return map[string]string{
				"account_id": account.ID,
			}
		})
		c.emit(ctx, EventLoginSucceeded, true, email, nil, nil)
		return nil
	}

	record, err := c.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return backendErr(err)
	}
	if err := c.lockouts.Reset(ctx, email); err != nil {
		return backendErr(err)
	}

	account := record.Account
	c.phase = PhaseAuthenticated
	c.account = &account
	c.pendingEmail = ""
	c.emit(ctx, EventLoginSucceeded, true, email, nil, nil)
	return nil
}

// ResendCode reissues the one-time code for the pending challenge. The
// prior code is implicitly invalidated: at most one code per account is
// ever live.
func (c *Controller) ResendCode(ctx context.Context) error {
	if !c.ready() {
		return ErrControllerNotReady
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhasePendingTwoFactor {
		return ErrNoPendingVerification
	}

	purpose := PurposeLogin
	if c.pending != nil {
		purpose = PurposeRegistration
	}
	return c.issueCodeLocked(ctx, c.pendingEmail, purpose)
}

// CancelVerification abandons a pending challenge and returns the session
// to Anonymous, invalidating the live code and dropping any staged
// registration data.
func (c *Controller) CancelVerification(ctx context.Context) error {
	if !c.ready() {
		return ErrControllerNotReady
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhasePendingTwoFactor {
		return ErrNoPendingVerification
	}
	email := c.pendingEmail

	if err := c.codes.Invalidate(ctx, email); err != nil {
		return backendErr(err)
	}

	c.resetToAnonymousLocked()
	c.emit(ctx, EventVerificationCancelled, true, email, nil, nil)
	return nil
}
