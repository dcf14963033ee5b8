package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLogin_KnownDeviceAuthenticatesDirectly(t *testing.T) {
	env := newTestEnv(t)
	ctx := deviceCtx("dev-1", "10.0.0.1")
	seedAccount(t, env, ctx)

	sent := env.sender.count()

	if err := env.controller.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !env.controller.IsAuthenticated() {
		t.Fatal("expected authenticated session")
	}
	if env.sender.count() != sent {
		t.Fatal("known device login must not issue a code")
	}

	state := env.controller.SessionState()
	if state.Account == nil || state.Account.Email != testEmail {
		t.Fatalf("unexpected session state: %+v", state)
	}
}

func TestLogin_UnknownDeviceRequiresSecondFactor(t *testing.T) {
	env := newTestEnv(t)
	seedAccount(t, env, deviceCtx("dev-1", "10.0.0.1"))

	strangerCtx := deviceCtx("dev-2", "198.51.100.7")
	if err := env.controller.Login(strangerCtx, testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !env.controller.TwoFactorPending() {
		t.Fatal("expected pending two-factor phase")
	}
	state := env.controller.SessionState()
	if state.PendingEmail != testEmail {
		t.Fatalf("unexpected pending email %q", state.PendingEmail)
	}

	code := env.sender.last(t)
	if code.Purpose != PurposeLogin {
		t.Fatalf("expected login purpose, got %q", code.Purpose)
	}

	if err := env.controller.VerifyCode(strangerCtx, code.Code); err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if !env.controller.IsAuthenticated() {
		t.Fatal("expected authenticated session after verification")
	}

	// The verifying device is now trusted and skips the challenge.
	env.controller.Logout(strangerCtx)
	sent := env.sender.count()
	if err := env.controller.Login(strangerCtx, testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !env.controller.IsAuthenticated() || env.sender.count() != sent {
		t.Fatal("verified device must authenticate directly on the next login")
	}
}

func TestLogin_MatchingAddressAloneIsTrusted(t *testing.T) {
	env := newTestEnv(t)
	seedAccount(t, env, deviceCtx("dev-1", "10.0.0.1"))

	// New installation on the household address.
	sameNetCtx := deviceCtx("dev-9", "10.0.0.1")
	if err := env.controller.Login(sameNetCtx, testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !env.controller.IsAuthenticated() {
		t.Fatal("matching address must authenticate directly")
	}
}

func TestLogin_WrongPasswordCountsAsFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := deviceCtx("dev-1", "10.0.0.1")
	seedAccount(t, env, ctx)

	err := env.controller.Login(ctx, testEmail, "Errada-Mas-Forte-1!")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if env.controller.SessionState().Phase != PhaseAnonymous {
		t.Fatal("failed login must leave the session anonymous")
	}

	count, err := env.controller.lockouts.FailureCount(ctx, testEmail)
	if err != nil {
		t.Fatalf("FailureCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", count)
	}
}

func TestLogin_UnknownEmailIndistinguishableFromMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := deviceCtx("dev-1", "10.0.0.1")

	err := env.controller.Login(ctx, "ghost@example.com", testPassword)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	// Nonexistent accounts accrue failures just like real ones.
	count, err := env.controller.lockouts.FailureCount(ctx, "ghost@example.com")
	if err != nil {
		t.Fatalf("FailureCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", count)
	}
}

func TestLogin_ThreeFailuresSoftLockFiveMinutes(t *testing.T) {
	env := newTestEnv(t)
	ctx := deviceCtx("dev-1", "10.0.0.1")
	seedAccount(t, env, ctx)

	for i := 0; i < 3; i++ {
		err := env.controller.Login(ctx, testEmail, "Errada-Mas-Forte-1!")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}

	// Even the correct password is refused while the lock runs.
	err := env.controller.Login(ctx, testEmail, testPassword)
	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected LockedError, got %v", err)
	}
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked in chain, got %v", err)
	}
	if locked.RemainingMinutes != 5 {
		t.Fatalf("expected 5 remaining minutes, got %d", locked.RemainingMinutes)
	}
	if env.controller.SessionState().Phase != PhaseAnonymous {
		t.Fatal("locked login must leave the session anonymous")
	}
}

func TestLogin_FiveFailuresHardLockThirtyMinutes(t *testing.T) {
	env := newTestEnv(t)
	ctx := deviceCtx("dev-1", "10.0.0.1")
	seedAccount(t, env, ctx)

	// Five submissions in a row; the later ones land on an already locked
	// account and still escalate.
	for i := 0; i < 5; i++ {
		err := env.controller.Login(ctx, testEmail, "Errada-Mas-Forte-1!")
		if err == nil {
			t.Fatalf("attempt %d: expected failure", i+1)
		}
	}

	count, err := env.controller.lockouts.FailureCount(ctx, testEmail)
	if err != nil {
		t.Fatalf("FailureCount failed: %v", err)
	}
	if count != 5 {
		t.Fatalf("expected 5 recorded failures, got %d", count)
	}

	// Sixth attempt with the correct password: refused by the hard lock
	// before any comparison.
	lockErr := env.controller.Login(ctx, testEmail, testPassword)
	var locked *LockedError
	if !errors.As(lockErr, &locked) {
		t.Fatalf("expected LockedError, got %v", lockErr)
	}
	if locked.RemainingMinutes != 30 {
		t.Fatalf("expected 30 remaining minutes, got %d", locked.RemainingMinutes)
	}
}

func TestLogin_SucceedsAfterLockExpiresAndResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	ctx := deviceCtx("dev-1", "10.0.0.1")
	seedAccount(t, env, ctx)

	for i := 0; i < 3; i++ {
		_ = env.controller.Login(ctx, testEmail, "Errada-Mas-Forte-1!")
	}

	env.redis.FastForward(5*time.Minute + time.Second)

	if err := env.controller.Login(ctx, testEmail, testPassword); err != nil {
		t.Fatalf("Login after lock expiry failed: %v", err)
	}
	if !env.controller.IsAuthenticated() {
		t.Fatal("expected authenticated session")
	}

	count, err := env.controller.lockouts.FailureCount(ctx, testEmail)
	if err != nil {
		t.Fatalf("FailureCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("completed login must reset the counter, got %d", count)
	}
}

func TestLogin_PendingChallengeDoesNotResetCounter(t *testing.T) {
	env := newTestEnv(t)
	seedAccount(t, env, deviceCtx("dev-1", "10.0.0.1"))

	strangerCtx := deviceCtx("dev-2", "198.51.100.7")
	_ = env.controller.Login(strangerCtx, testEmail, "Errada-Mas-Forte-1!")
	env.controller.Logout(strangerCtx)

	if err := env.controller.Login(strangerCtx, testEmail, testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !env.controller.TwoFactorPending() {
		t.Fatal("expected pending two-factor phase")
	}

	// The flow is not complete yet; the failure stays on the books.
	count, err := env.controller.lockouts.FailureCount(strangerCtx, testEmail)
	if err != nil {
		t.Fatalf("FailureCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected counter untouched at 1, got %d", count)
	}

	// Completing the challenge resets it.
	if err := env.controller.VerifyCode(strangerCtx, env.sender.last(t).Code); err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	count, err = env.controller.lockouts.FailureCount(strangerCtx, testEmail)
	if err != nil {
		t.Fatalf("FailureCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected counter reset after full authentication, got %d", count)
	}
}

func TestLogin_RejectsWhileSessionActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := deviceCtx("dev-1", "10.0.0.1")
	registerAndVerify(t, env, ctx)

	if err := env.controller.Login(ctx, testEmail, testPassword); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("expected ErrSessionActive, got %v", err)
	}
}

func TestLogin_EmptyEmailRejected(t *testing.T) {
	env := newTestEnv(t)

	err := env.controller.Login(context.Background(), "   ", testPassword)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
