package authcore

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

const (
	testName     = "Ana Souza"
	testEmail    = "ana@example.com"
	testPassword = "Muito-Segura-2026!"
)

type sentCode struct {
	Email   string
	Purpose string
	Code    string
}

// captureSender records every code handed to the delivery collaborator so
// tests can complete verification flows.
type captureSender struct {
	mu    sync.Mutex
	codes []sentCode
}

func (s *captureSender) SendCode(_ context.Context, email, purpose, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, sentCode{Email: email, Purpose: purpose, Code: code})
	return nil
}

func (s *captureSender) last(t *testing.T) sentCode {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.codes) == 0 {
		t.Fatal("no code was sent")
	}
	return s.codes[len(s.codes)-1]
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

type testEnv struct {
	controller *Controller
	redis      *miniredis.Miniredis
	sender     *captureSender
	accounts   *MemoryAccountStore
}

func testConfig() Config {
	cfg := defaultConfig()
	// Argon2 at interactive-test cost; production defaults are far slower.
	cfg.Password = PasswordConfig{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   16,
	}
	cfg.Snapshot.Key = bytes.Repeat([]byte("s"), 32)
	return cfg
}

func newTestEnv(t *testing.T, sinks ...EventSink) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sender := &captureSender{}
	accounts := NewMemoryAccountStore()

	builder := New().
		WithConfig(testConfig()).
		WithRedis(client).
		WithAccountStore(accounts).
		WithCodeSender(sender)
	if len(sinks) > 0 {
		builder = builder.WithEventSink(sinks[0])
	}

	controller, err := builder.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(controller.Close)

	return &testEnv{
		controller: controller,
		redis:      mr,
		sender:     sender,
		accounts:   accounts,
	}
}

// newTestEnvWithoutSnapshots builds an environment with snapshot tokens
// disabled by leaving the signing key empty.
func newTestEnvWithoutSnapshots(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	sender := &captureSender{}
	accounts := NewMemoryAccountStore()

	cfg := testConfig()
	cfg.Snapshot.Key = nil

	controller, err := New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccountStore(accounts).
		WithCodeSender(sender).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(controller.Close)

	return &testEnv{
		controller: controller,
		redis:      mr,
		sender:     sender,
		accounts:   accounts,
	}
}

// deviceCtx builds a context carrying the identifiers the controller uses
// for device-trust matching.
func deviceCtx(deviceID, ip string) context.Context {
	ctx := context.Background()
	ctx = WithDeviceID(ctx, deviceID)
	return WithClientIP(ctx, ip)
}

// registerAndVerify runs the full sign-up flow for the default test user,
// leaving the session authenticated and the device in ctx trusted.
func registerAndVerify(t *testing.T, env *testEnv, ctx context.Context) {
	t.Helper()

	if err := env.controller.Register(ctx, testName, testEmail, testPassword); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := env.controller.VerifyCode(ctx, env.sender.last(t).Code); err != nil {
		t.Fatalf("VerifyCode failed: %v", err)
	}
	if !env.controller.IsAuthenticated() {
		t.Fatal("expected authenticated session after verification")
	}
}

// seedAccount registers and verifies the default test user, then logs out
// so the test starts from Anonymous with the account persisted and the
// device in ctx trusted.
func seedAccount(t *testing.T, env *testEnv, ctx context.Context) {
	t.Helper()

	registerAndVerify(t, env, ctx)
	env.controller.Logout(ctx)
	if env.controller.SessionState().Phase != PhaseAnonymous {
		t.Fatal("expected anonymous session after logout")
	}
}
