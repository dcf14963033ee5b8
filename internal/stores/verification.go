// Package stores implements the Redis-backed state owned by the
// authentication core: one-time verification codes and trusted devices.
package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/provafacil/authcore/internal"
)

const verificationRecordVersionV1 = 1

// ErrVerificationUnavailable indicates the verification backend is
// unreachable. Domain outcomes (absence, mismatch, expiry, replay) are
// never errors; they collapse to a false consume result so the caller
// cannot be used as an oracle.
var ErrVerificationUnavailable = errors.New("verification backend unavailable")

// consumeCodeLua atomically performs GET, validate and DEL on a
// verification record. A matching code deletes the record in the same
// script, so a concurrent second submission of the same code always finds
// nothing.
//
// KEYS[1] = record key
// ARGV[1] = provided secret hash (32 bytes)
// ARGV[2] = max attempts (int string)
// ARGV[3] = current unix timestamp (int string)
//
// Returns the record bytes on success, or an error string:
// "not_found", "expired", "mismatch", "attempts_exceeded".
var consumeCodeLua = redis.NewScript(`
local data = redis.call('GET', KEYS[1])
if not data then
  return {err='not_found'}
end

local providedHash = ARGV[1]
local maxAttempts = tonumber(ARGV[2])
local nowUnix = tonumber(ARGV[3])

-- Layout: version(1) attempts(2 big-endian) expiresAt(8 big-endian)
--         purposeLen(2 big-endian) purpose(variable) secretHash(32)
local version = string.byte(data, 1)
if version ~= 1 then
  redis.call('DEL', KEYS[1])
  return {err='not_found'}
end

local a0 = string.byte(data, 2)
local a1 = string.byte(data, 3)
local attempts = a0 * 256 + a1

local e0,e1,e2,e3,e4,e5,e6,e7 = string.byte(data, 4, 11)
local expiresAt = e0
for _, b in ipairs({e1,e2,e3,e4,e5,e6,e7}) do
  expiresAt = expiresAt * 256 + b
end

if nowUnix >= expiresAt then
  redis.call('DEL', KEYS[1])
  return {err='expired'}
end

local purposeLen = string.byte(data, 12) * 256 + string.byte(data, 13)
local hashOffset = 14 + purposeLen
local storedHash = string.sub(data, hashOffset, hashOffset + 31)

if storedHash ~= providedHash then
  attempts = attempts + 1
  if attempts >= maxAttempts then
    redis.call('DEL', KEYS[1])
    return {err='attempts_exceeded'}
  end
  local newA0 = math.floor(attempts / 256)
  local newA1 = attempts % 256
  local newData = string.sub(data, 1, 1) .. string.char(newA0, newA1) .. string.sub(data, 4)
  local ttlMs = redis.call('PTTL', KEYS[1])
  if ttlMs <= 0 then
    redis.call('DEL', KEYS[1])
    return {err='expired'}
  end
  redis.call('SET', KEYS[1], newData, 'PX', ttlMs)
  return {err='mismatch'}
end

redis.call('DEL', KEYS[1])
return data
`)

// VerificationConfig controls code lifetime and the mismatch budget per
// record.
type VerificationConfig struct {
	CodeTTL     time.Duration
	MaxAttempts int
}

// VerificationRecord is the stored shape of a pending one-time code. Only
// the SHA-256 of the code is persisted.
type VerificationRecord struct {
	SecretHash [32]byte
	ExpiresAt  int64
	Attempts   uint16
	Purpose    string
}

// VerificationCodeStore keeps at most one live code per account. Issuing a
// new code overwrites any prior unconsumed record for that account.
type VerificationCodeStore struct {
	redis  redis.UniversalClient
	config VerificationConfig
	now    func() time.Time
}

// NewVerificationCodeStore creates a store on the given Redis client.
func NewVerificationCodeStore(redisClient redis.UniversalClient, cfg VerificationConfig) *VerificationCodeStore {
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	return &VerificationCodeStore{
		redis:  redisClient,
		config: cfg,
		now:    time.Now,
	}
}

func (s *VerificationCodeStore) key(accountKey string) string {
	return "avc:" + accountKey
}

// Issue generates a fresh six-digit code for the account, stores its hash
// with the configured TTL and returns the plaintext code for delivery.
// Any prior record for the account is implicitly invalidated.
func (s *VerificationCodeStore) Issue(ctx context.Context, accountKey, purpose string) (string, error) {
	code, err := internal.NewVerificationCode()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}

	record := &VerificationRecord{
		SecretHash: internal.HashSecret(code),
		ExpiresAt:  s.now().Add(s.config.CodeTTL).Unix(),
		Attempts:   0,
		Purpose:    purpose,
	}
	encoded, err := encodeVerificationRecord(record)
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, s.key(accountKey), encoded, s.config.CodeTTL).Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return code, nil
}

// Consume returns true iff a live record exists for the account, the code
// matches and the record has not expired; on true the record has already
// been deleted by the script, so a replay of the same code returns false.
// All domain failures collapse to false; the error is non-nil only when
// the backend is unreachable.
func (s *VerificationCodeStore) Consume(ctx context.Context, accountKey, code string) (bool, error) {
	providedHash := internal.HashSecret(code)

	result, err := consumeCodeLua.Run(ctx, s.redis,
		[]string{s.key(accountKey)},
		string(providedHash[:]),
		s.config.MaxAttempts,
		s.now().Unix(),
	).Result()

	if err != nil {
		switch err.Error() {
		case "not_found", "expired", "mismatch", "attempts_exceeded":
			return false, nil
		default:
			return false, fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
		}
	}

	data, ok := result.(string)
	if !ok {
		return false, fmt.Errorf("%w: unexpected lua result type", ErrVerificationUnavailable)
	}

	record, decErr := decodeVerificationRecord([]byte(data))
	if decErr != nil {
		return false, fmt.Errorf("%w: %v", ErrVerificationUnavailable, decErr)
	}

	// Final constant-time comparison in Go as defense-in-depth
	// (Lua already checked, but Lua string comparison is not constant-time).
	if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
		return false, nil
	}
	return true, nil
}

// Invalidate removes any live record for the account, used when a pending
// verification is cancelled.
func (s *VerificationCodeStore) Invalidate(ctx context.Context, accountKey string) error {
	if err := s.redis.Del(ctx, s.key(accountKey)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrVerificationUnavailable, err)
	}
	return nil
}

func encodeVerificationRecord(record *VerificationRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(verificationRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.Purpose) > 65535 {
		return nil, errors.New("verification record purpose too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Purpose))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Purpose)
	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeVerificationRecord(data []byte) (*VerificationRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != verificationRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	record := &VerificationRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var purposeLen uint16
	if err := binary.Read(reader, binary.BigEndian, &purposeLen); err != nil {
		return nil, err
	}
	purpose := make([]byte, purposeLen)
	if _, err := io.ReadFull(reader, purpose); err != nil {
		return nil, err
	}
	record.Purpose = string(purpose)

	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}
	return record, nil
}
