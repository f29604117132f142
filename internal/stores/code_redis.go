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
)

const codeRecordVersion1 = 1

type codeRecord struct {
	Code      string
	ExpiresAt int64
	Attempts  uint16
}

// RedisCodeStore is the Redis-backed CodeStore implementation for
// multi-process deployments.
type RedisCodeStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisCodeStore creates a store. The now func is injectable for tests;
// pass nil for the wall clock.
func NewRedisCodeStore(redisClient redis.UniversalClient, prefix string, now func() time.Time) *RedisCodeStore {
	if prefix == "" {
		prefix = "acc"
	}
	if now == nil {
		now = time.Now
	}
	return &RedisCodeStore{
		redis:  redisClient,
		prefix: prefix,
		now:    now,
	}
}

func (s *RedisCodeStore) key(key string) string {
	return s.prefix + ":" + key
}

func (s *RedisCodeStore) Put(ctx context.Context, key, code string, ttl time.Duration) error {
	encoded, err := encodeCodeRecord(&codeRecord{
		Code:      code,
		ExpiresAt: s.now().Add(ttl).Unix(),
	})
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(key), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeBackend, err)
	}
	return nil
}

func (s *RedisCodeStore) Verify(ctx context.Context, key, code string, maxAttempts int) error {
	const maxRetries = 4
	rkey := s.key(key)

	for i := 0; i < maxRetries; i++ {
		var outcome error
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, rkey).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeCodeRecord(data)
			if err != nil {
				return err
			}
			if s.now().Unix() > record.ExpiresAt {
				outcome = ErrCodeExpired
				return txDelete(ctx, tx, rkey)
			}

			if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) == 1 {
				return txDelete(ctx, tx, rkey)
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				outcome = ErrCodeAttemptsExceeded
				return txDelete(ctx, tx, rkey)
			}

			ttl := time.Unix(record.ExpiresAt, 0).Sub(s.now())
			if ttl <= 0 {
				outcome = ErrCodeExpired
				return txDelete(ctx, tx, rkey)
			}

			outcome = ErrCodeMismatch
			updated, err := encodeCodeRecord(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, rkey, updated, ttl)
				return nil
			})
			return err
		}, rkey)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrCodeNotFound
			}
			return fmt.Errorf("%w: %v", ErrCodeBackend, err)
		}
		return outcome
	}

	return ErrCodeNotFound
}

func (s *RedisCodeStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeBackend, err)
	}
	return nil
}

func txDelete(ctx context.Context, tx *redis.Tx, key string) error {
	_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		return nil
	})
	return err
}

func encodeCodeRecord(record *codeRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(codeRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.Code) > 65535 {
		return nil, errors.New("challenge code length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Code))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Code)

	return buf.Bytes(), nil
}

func decodeCodeRecord(data []byte) (*codeRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != codeRecordVersion1 {
		return nil, errors.New("invalid challenge code record version")
	}

	record := &codeRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var codeLen uint16
	if err := binary.Read(reader, binary.BigEndian, &codeLen); err != nil {
		return nil, err
	}
	code := make([]byte, codeLen)
	if _, err := io.ReadFull(reader, code); err != nil {
		return nil, err
	}
	record.Code = string(code)

	return record, nil
}
