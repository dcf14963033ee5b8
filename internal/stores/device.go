package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const deviceRecordVersionV1 = 1

// ErrDeviceRegistryUnavailable indicates the device backend is unreachable.
var ErrDeviceRegistryUnavailable = errors.New("device registry backend unavailable")

// DeviceRecord is one trusted (deviceID, IP) pair for an account.
type DeviceRecord struct {
	DeviceID  string
	IP        string
	LastLogin int64
}

// DeviceRegistry tracks trusted devices per account as a Redis hash keyed
// by device ID. A device is known when EITHER its device ID or its IP
// matches a stored record; matching IP alone is accepted even from an
// unrecognized device, which is a deliberate laxity of the trust model.
// Trust never expires.
type DeviceRegistry struct {
	redis redis.UniversalClient
	now   func() time.Time
}

// NewDeviceRegistry creates a registry on the given Redis client.
func NewDeviceRegistry(redisClient redis.UniversalClient) *DeviceRegistry {
	return &DeviceRegistry{redis: redisClient, now: time.Now}
}

func (r *DeviceRegistry) key(accountKey string) string {
	return "adr:" + accountKey
}

// IsKnown reports whether any stored record for the account matches the
// device ID or the IP.
func (r *DeviceRegistry) IsKnown(ctx context.Context, accountKey, deviceID, ip string) (bool, error) {
	fields, err := r.redis.HGetAll(ctx, r.key(accountKey)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrDeviceRegistryUnavailable, err)
	}

	for storedID, encoded := range fields {
		if deviceID != "" && storedID == deviceID {
			return true, nil
		}
		record, err := decodeDeviceRecord([]byte(encoded))
		if err != nil {
			continue
		}
		if ip != "" && record.IP == ip {
			return true, nil
		}
	}
	return false, nil
}

// Remember stores the (deviceID, ip) pair with the current timestamp. It
// is a no-op when the pair already satisfies IsKnown, so re-remembering a
// trusted device never rewrites its last-login field. A pair with neither
// identifier is not stored: there is nothing for IsKnown to ever match.
func (r *DeviceRegistry) Remember(ctx context.Context, accountKey, deviceID, ip string) error {
	if deviceID == "" && ip == "" {
		return nil
	}

	known, err := r.IsKnown(ctx, accountKey, deviceID, ip)
	if err != nil {
		return err
	}
	if known {
		return nil
	}

	encoded, err := encodeDeviceRecord(&DeviceRecord{
		DeviceID:  deviceID,
		IP:        ip,
		LastLogin: r.now().Unix(),
	})
	if err != nil {
		return err
	}
	if err := r.redis.HSet(ctx, r.key(accountKey), deviceID, encoded).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceRegistryUnavailable, err)
	}
	return nil
}

// Records returns all trusted devices for the account, for introspection
// and tests.
func (r *DeviceRegistry) Records(ctx context.Context, accountKey string) ([]DeviceRecord, error) {
	fields, err := r.redis.HGetAll(ctx, r.key(accountKey)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceRegistryUnavailable, err)
	}

	records := make([]DeviceRecord, 0, len(fields))
	for storedID, encoded := range fields {
		record, err := decodeDeviceRecord([]byte(encoded))
		if err != nil {
			continue
		}
		record.DeviceID = storedID
		records = append(records, *record)
	}
	return records, nil
}

func encodeDeviceRecord(record *DeviceRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(deviceRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.LastLogin); err != nil {
		return nil, err
	}
	if len(record.IP) > 65535 {
		return nil, errors.New("device record ip too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.IP))); err != nil {
		return nil, err
	}
	buf.WriteString(record.IP)

	return buf.Bytes(), nil
}

func decodeDeviceRecord(data []byte) (*DeviceRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != deviceRecordVersionV1 {
		return nil, errors.New("invalid device record version")
	}

	record := &DeviceRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.LastLogin); err != nil {
		return nil, err
	}

	var ipLen uint16
	if err := binary.Read(reader, binary.BigEndian, &ipLen); err != nil {
		return nil, err
	}
	ip := make([]byte, ipLen)
	if _, err := io.ReadFull(reader, ip); err != nil {
		return nil, err
	}
	record.IP = string(ip)

	return record, nil
}
