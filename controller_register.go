package authcore

import (
	"context"
	"errors"
	"strings"

	"github.com/provafacil/authcore/policy"
)

// Register stages a sign-up. Registration always requires a second
// factor: the password is policy-checked and pre-hashed, the sign-up data
// is staged in memory and a one-time code is issued, but no Account is
// persisted until VerifyCode succeeds.
func (c *Controller) Register(ctx context.Context, name, email, passwd string) error {
	if !c.ready() {
		return ErrControllerNotReady
	}
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" {
		return ErrRegistrationInvalid
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAnonymous {
		return ErrSessionActive
	}

	if result := policy.Validate(passwd); !result.Valid {
		policyErr := &PolicyError{Violations: result.Violations}
		c.emit(ctx, EventRegistrationStaged, false, email, policyErr, func() map[string]string {
			return map[string]string{
				"reason": "weak_password",
			}
		})
		return policyErr
	}

	_, err := c.accounts.GetByEmail(ctx, email)
	if err == nil {
		c.emit(ctx, EventRegistrationStaged, false, email, ErrAccountExists, nil)
		return ErrAccountExists
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return backendErr(err)
	}

	hash, err := c.hasher.Hash(passwd)
	if err != nil {
		return backendErr(err)
	}

	if err := c.issueCodeLocked(ctx, email, PurposeRegistration); err != nil {
		return err
	}

	c.phase = PhasePendingTwoFactor
	c.pendingEmail = email
	c.pending = &pendingRegistration{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	c.emit(ctx, EventRegistrationStaged, true, email, nil, nil)
	return nil
}
