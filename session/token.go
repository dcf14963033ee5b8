// Package session issues and validates signed session snapshot tokens.
//
// A snapshot token is the durable shape of an authenticated session: the
// application persists it locally and presents it at the next process
// start to restore the session without a fresh credential submission. The
// token is a claim about the account identity only; the controller always
// reloads the authoritative account record from its store on restore.
package session

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodHS256 signs with a shared symmetric key.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key.
	MethodEd25519 SigningMethod = "ed25519"
)

var (
	// ErrTokenInvalid covers malformed, mis-signed and expired tokens.
	ErrTokenInvalid = errors.New("invalid session token")
)

// Config holds snapshot token parameters.
type Config struct {
	SigningMethod SigningMethod
	Key           []byte // HS256 shared key, or Ed25519 private key seed
	TTL           time.Duration
	Issuer        string
	Leeway        time.Duration
}

// SnapshotClaims is the claim set embedded in a snapshot token.
type SnapshotClaims struct {
	AccountID     string `json:"aid"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role,omitempty"`
	PaymentStatus string `json:"pay,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and parses snapshot tokens. Instances are immutable after
// construction and safe for concurrent use.
type Manager struct {
	config     Config
	signKey    any
	verifyKey  any
	signMethod jwt.SigningMethod
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256, "":
		if len(cfg.Key) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
		m.signMethod = jwt.SigningMethodHS256
		m.signKey = cfg.Key
		m.verifyKey = cfg.Key
	case MethodEd25519:
		if len(cfg.Key) != ed25519.SeedSize {
			return nil, errors.New("ed25519 requires a 32-byte seed")
		}
		priv := ed25519.NewKeyFromSeed(cfg.Key)
		m.signMethod = jwt.SigningMethodEdDSA
		m.signKey = priv
		m.verifyKey = priv.Public()
	default:
		return nil, errors.New("unsupported signing method")
	}
	return m, nil
}

// Sign issues a snapshot token for the given claims, stamping issue and
// expiry times.
func (m *Manager) Sign(claims SnapshotClaims) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    m.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
	}

	token := jwt.NewWithClaims(m.signMethod, claims)
	return token.SignedString(m.signKey)
}

// Parse validates signature, expiry and issuer, and returns the embedded
// claims. Every failure collapses to ErrTokenInvalid.
func (m *Manager) Parse(tokenStr string) (*SnapshotClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.config.Leeway),
	}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}

	claims := &SnapshotClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return m.verifyKey, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.AccountID == "" || claims.Email == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
