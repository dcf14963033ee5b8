package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testTracker(t *testing.T) (*LockoutTracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tracker := NewLockoutTracker(client, LockoutConfig{
		SoftThreshold:    3,
		SoftLockDuration: 5 * time.Minute,
		HardThreshold:    5,
		HardLockDuration: 30 * time.Minute,
	})
	return tracker, mr
}

func recordFailures(t *testing.T, tracker *LockoutTracker, accountKey string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		if err := tracker.RecordFailure(ctx, accountKey); err != nil {
			t.Fatalf("RecordFailure %d failed: %v", i+1, err)
		}
	}
}

func TestLockout_BelowSoftThresholdStaysUnlocked(t *testing.T) {
	tracker, _ := testTracker(t)
	ctx := context.Background()

	recordFailures(t, tracker, "aluno@example.com", 2)

	status, err := tracker.Status(ctx, "aluno@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Locked {
		t.Fatal("expected unlocked at 2 failures")
	}
}

func TestLockout_SoftLockAtThirdFailure(t *testing.T) {
	tracker, _ := testTracker(t)
	ctx := context.Background()

	recordFailures(t, tracker, "aluno@example.com", 3)

	status, err := tracker.Status(ctx, "aluno@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Locked {
		t.Fatal("expected locked at 3 failures")
	}
	if got := status.RemainingMinutes(); got != 5 {
		t.Fatalf("expected 5 remaining minutes, got %d", got)
	}
}

func TestLockout_HardLockReplacesSoftLock(t *testing.T) {
	tracker, _ := testTracker(t)
	ctx := context.Background()

	// The fifth failure arrives while the 5 minute lock is still active;
	// the hard duration must replace it anyway.
	recordFailures(t, tracker, "aluno@example.com", 5)

	status, err := tracker.Status(ctx, "aluno@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if !status.Locked {
		t.Fatal("expected locked at 5 failures")
	}
	if got := status.RemainingMinutes(); got != 30 {
		t.Fatalf("expected 30 remaining minutes, got %d", got)
	}
}

func TestLockout_LockExpiresButCounterSurvives(t *testing.T) {
	tracker, mr := testTracker(t)
	ctx := context.Background()

	recordFailures(t, tracker, "aluno@example.com", 3)

	mr.FastForward(5*time.Minute + time.Second)

	status, err := tracker.Status(ctx, "aluno@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Locked {
		t.Fatal("expected unlocked after the soft lock elapsed")
	}

	// The counter has no TTL, so the next failure escalates from 4, not 1.
	count, err := tracker.FailureCount(ctx, "aluno@example.com")
	if err != nil {
		t.Fatalf("FailureCount failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected counter to survive at 3, got %d", count)
	}

	recordFailures(t, tracker, "aluno@example.com", 2)
	status, err = tracker.Status(ctx, "aluno@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if got := status.RemainingMinutes(); got != 30 {
		t.Fatalf("expected 30 remaining minutes after escalation, got %d", got)
	}
}

func TestLockout_ResetClearsCounterAndLock(t *testing.T) {
	tracker, _ := testTracker(t)
	ctx := context.Background()

	recordFailures(t, tracker, "aluno@example.com", 5)

	if err := tracker.Reset(ctx, "aluno@example.com"); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	status, err := tracker.Status(ctx, "aluno@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Locked {
		t.Fatal("expected unlocked after reset")
	}
	count, err := tracker.FailureCount(ctx, "aluno@example.com")
	if err != nil {
		t.Fatalf("FailureCount failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected zero counter after reset, got %d", count)
	}
}

func TestLockout_AccountsAreIndependent(t *testing.T) {
	tracker, _ := testTracker(t)
	ctx := context.Background()

	recordFailures(t, tracker, "primeiro@example.com", 3)

	status, err := tracker.Status(ctx, "segundo@example.com")
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Locked {
		t.Fatal("unrelated account must not be locked")
	}
}

func TestLockStatus_RemainingMinutesRoundsUp(t *testing.T) {
	status := LockStatus{Locked: true, Remaining: 4*time.Minute + time.Second}
	if got := status.RemainingMinutes(); got != 5 {
		t.Fatalf("expected ceiling of 5, got %d", got)
	}

	if got := (LockStatus{}).RemainingMinutes(); got != 0 {
		t.Fatalf("expected 0 for unlocked, got %d", got)
	}
}

func TestLockout_BackendDownReturnsWrappedError(t *testing.T) {
	tracker, mr := testTracker(t)
	ctx := context.Background()

	mr.Close()

	if err := tracker.RecordFailure(ctx, "aluno@example.com"); !errors.Is(err, ErrLockoutUnavailable) {
		t.Fatalf("expected ErrLockoutUnavailable, got %v", err)
	}
	if _, err := tracker.Status(ctx, "aluno@example.com"); !errors.Is(err, ErrLockoutUnavailable) {
		t.Fatalf("expected ErrLockoutUnavailable, got %v", err)
	}
}
