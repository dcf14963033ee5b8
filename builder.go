package authcore

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/provafacil/authcore/internal/limiters"
	"github.com/provafacil/authcore/internal/notify"
	"github.com/provafacil/authcore/internal/stores"
	"github.com/provafacil/authcore/password"
	"github.com/provafacil/authcore/session"
)

// Builder assembles a Controller. A builder is single-use.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts AccountStore
	sender   CodeSender
	sink     EventSink

	built bool
}

// New returns a Builder preloaded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the configuration. Zero-valued fields fall back to
// defaults at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the lockout, device and
// verification stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccountStore sets the host account database.
func (b *Builder) WithAccountStore(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithCodeSender sets the delivery collaborator for one-time codes.
// Without one, issued codes are observable only through the sender hook
// of tests or not at all.
func (b *Builder) WithCodeSender(sender CodeSender) *Builder {
	b.sender = sender
	return b
}

// WithEventSink sets the sink receiving domain events.
func (b *Builder) WithEventSink(sink EventSink) *Builder {
	b.sink = sink
	return b
}

// Build validates dependencies and returns a ready Controller.
func (b *Builder) Build() (*Controller, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	if b.redis == nil {
		return nil, errors.New("redis client is required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store is required")
	}

	cfg := b.config
	cfg.applyDefaults()

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}

	var snapshots *session.Manager
	if len(cfg.Snapshot.Key) > 0 {
		snapshots, err = session.NewManager(session.Config{
			SigningMethod: session.SigningMethod(cfg.Snapshot.SigningMethod),
			Key:           cfg.Snapshot.Key,
			TTL:           cfg.Snapshot.TTL,
			Issuer:        cfg.Snapshot.Issuer,
		})
		if err != nil {
			return nil, err
		}
	}

	sender := b.sender
	if sender == nil {
		sender = noopCodeSender{}
	}

	c := &Controller{
		config:   cfg,
		accounts: b.accounts,
		sender:   sender,
		hasher:   hasher,
		lockouts: limiters.NewLockoutTracker(b.redis, limiters.LockoutConfig{
			SoftThreshold:    cfg.Lockout.SoftThreshold,
			SoftLockDuration: cfg.Lockout.SoftLockDuration,
			HardThreshold:    cfg.Lockout.HardThreshold,
			HardLockDuration: cfg.Lockout.HardLockDuration,
		}),
		devices: stores.NewDeviceRegistry(b.redis),
		codes: stores.NewVerificationCodeStore(b.redis, stores.VerificationConfig{
			CodeTTL:     cfg.Verification.CodeTTL,
			MaxAttempts: cfg.Verification.MaxAttempts,
		}),
		snapshots: snapshots,
		events: notify.NewDispatcher(notify.Config{
			Enabled:    cfg.Notify.Enabled,
			BufferSize: cfg.Notify.BufferSize,
			DropIfFull: cfg.Notify.DropIfFull,
		}, b.sink),
	}
	return c, nil
}
