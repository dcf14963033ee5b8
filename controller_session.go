package authcore

import (
	"context"
	"errors"

	"github.com/provafacil/authcore/session"
)

// SnapshotToken returns a signed snapshot of the authenticated session
// for local persistence by the host application. The token claims
// identity only; RestoreSession always reloads the authoritative account
// record.
func (c *Controller) SnapshotToken() (string, error) {
	if !c.ready() {
		return "", ErrControllerNotReady
	}
	if c.snapshots == nil {
		return "", ErrSnapshotDisabled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAuthenticated || c.account == nil {
		return "", ErrNotAuthenticated
	}

	return c.snapshots.Sign(session.SnapshotClaims{
		AccountID:     c.account.ID,
		Email:         c.account.Email,
		Name:          c.account.Name,
		Role:          string(c.account.Role),
		PaymentStatus: string(c.account.PaymentStatus),
	})
}

// RestoreSession validates a snapshot token from a previous run and, when
// the referenced account still exists, transitions the session directly
// to Authenticated. The account record loaded from the store wins over
// any stale claims in the token.
func (c *Controller) RestoreSession(ctx context.Context, token string) error {
	if !c.ready() {
		return ErrControllerNotReady
	}
	if c.snapshots == nil {
		return ErrSnapshotDisabled
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAnonymous {
		return ErrSessionActive
	}

	claims, err := c.snapshots.Parse(token)
	if err != nil {
		return ErrInvalidSnapshot
	}

	record, err := c.accounts.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return backendErr(err)
	}
	if record.ID != claims.AccountID {
		return ErrInvalidSnapshot
	}

	account := record.Account
	c.phase = PhaseAuthenticated
	c.account = &account
	c.emit(ctx, EventSessionRestored, true, account.Email, nil, nil)
	return nil
}
