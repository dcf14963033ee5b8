package authcore

import (
	"context"
	"errors"
	"strings"
)

// UpdateProfile merges the non-nil fields of update into the
// authenticated account and persists the result. The session shape does
// not change.
func (c *Controller) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	if !c.ready() {
		return ErrControllerNotReady
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAuthenticated || c.account == nil {
		return ErrNotAuthenticated
	}

	merged := *c.account
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return ErrInvalidInput
		}
		merged.Name = name
	}

	if err := c.persistAccountLocked(ctx, merged); err != nil {
		return err
	}

	c.account = &merged
	c.emit(ctx, EventProfileUpdated, true, merged.Email, nil, nil)
	return nil
}

// UpdatePaymentStatus transitions the authenticated account's payment
// state. A transition to PaymentCompleted additionally emits
// payment.confirmed for the presentation collaborator.
func (c *Controller) UpdatePaymentStatus(ctx context.Context, status PaymentStatus) error {
	if !c.ready() {
		return ErrControllerNotReady
	}
	if !status.Valid() {
		return ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAuthenticated || c.account == nil {
		return ErrNotAuthenticated
	}

	merged := *c.account
	merged.PaymentStatus = status

	if err := c.persistAccountLocked(ctx, merged); err != nil {
		return err
	}

	c.account = &merged
	if status == PaymentCompleted {
		c.emit(ctx, EventPaymentConfirmed, true, merged.Email, nil, nil)
	}
	return nil
}

// persistAccountLocked writes the merged account back through the store,
// preserving the stored credential hash. Caller holds the mutex.
func (c *Controller) persistAccountLocked(ctx context.Context, merged Account) error {
	record, err := c.accounts.GetByEmail(ctx, merged.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return backendErr(err)
	}
	record.Account = merged
	if err := c.accounts.Update(ctx, record); err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return backendErr(err)
	}
	return nil
}
