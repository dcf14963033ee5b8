package authcore

import "time"

// Config groups all tunables of the authentication core. Zero values are
// replaced by defaults at Build time; defaultConfig documents them.
type Config struct {
	Lockout      LockoutConfig
	Verification VerificationConfig
	Password     PasswordConfig
	Snapshot     SnapshotConfig
	Notify       NotifyConfig
}

// LockoutConfig controls progressive lockout escalation. The soft lock is
// applied at SoftThreshold consecutive failures and replaced by the hard
// lock at HardThreshold, even while the soft lock is still running.
type LockoutConfig struct {
	SoftThreshold    int
	SoftLockDuration time.Duration
	HardThreshold    int
	HardLockDuration time.Duration
}

// VerificationConfig controls one-time code lifetime and the per-record
// mismatch budget.
type VerificationConfig struct {
	CodeTTL     time.Duration
	MaxAttempts int
}

// PasswordConfig holds argon2id cost parameters. Memory is in KB.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SnapshotConfig controls signed session snapshot tokens. Snapshots are
// enabled by supplying a key; with an empty key SnapshotToken and
// RestoreSession return ErrSnapshotDisabled.
type SnapshotConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	Key           []byte
	TTL           time.Duration
	Issuer        string
}

// NotifyConfig controls the domain event dispatcher.
type NotifyConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

func defaultConfig() Config {
	return Config{
		Lockout: LockoutConfig{
			SoftThreshold:    3,
			SoftLockDuration: 5 * time.Minute,
			HardThreshold:    5,
			HardLockDuration: 30 * time.Minute,
		},
		Verification: VerificationConfig{
			CodeTTL:     5 * time.Minute,
			MaxAttempts: 5,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Snapshot: SnapshotConfig{
			SigningMethod: "hs256",
			TTL:           30 * 24 * time.Hour,
			Issuer:        "authcore",
		},
		Notify: NotifyConfig{
			Enabled:    true,
			BufferSize: 64,
			DropIfFull: true,
		},
	}
}

func (c *Config) applyDefaults() {
	def := defaultConfig()

	if c.Lockout.SoftThreshold <= 0 {
		c.Lockout.SoftThreshold = def.Lockout.SoftThreshold
	}
	if c.Lockout.SoftLockDuration <= 0 {
		c.Lockout.SoftLockDuration = def.Lockout.SoftLockDuration
	}
	if c.Lockout.HardThreshold <= 0 {
		c.Lockout.HardThreshold = def.Lockout.HardThreshold
	}
	if c.Lockout.HardLockDuration <= 0 {
		c.Lockout.HardLockDuration = def.Lockout.HardLockDuration
	}
	if c.Verification.CodeTTL <= 0 {
		c.Verification.CodeTTL = def.Verification.CodeTTL
	}
	if c.Verification.MaxAttempts <= 0 {
		c.Verification.MaxAttempts = def.Verification.MaxAttempts
	}
	if c.Password.Memory == 0 {
		c.Password = def.Password
	}
	if c.Snapshot.SigningMethod == "" {
		c.Snapshot.SigningMethod = def.Snapshot.SigningMethod
	}
	if c.Snapshot.TTL <= 0 {
		c.Snapshot.TTL = def.Snapshot.TTL
	}
	if c.Snapshot.Issuer == "" {
		c.Snapshot.Issuer = def.Snapshot.Issuer
	}
	if c.Notify.BufferSize <= 0 {
		c.Notify.BufferSize = def.Notify.BufferSize
	}
}
