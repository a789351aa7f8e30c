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

const (
	challengeRecordVersionV1 = 1
)

var (
	ErrChallengeNotFound         = errors.New("two-factor challenge not found")
	ErrChallengeExpired          = errors.New("two-factor challenge expired")
	ErrChallengeCodeMismatch     = errors.New("two-factor challenge code mismatch")
	ErrChallengeAttemptsExceeded = errors.New("two-factor challenge attempts exceeded")
	ErrChallengeRedisUnavailable = errors.New("two-factor challenge redis unavailable")
)

// TwoFactorChallenge is a short-lived one-time-code challenge keyed per
// account. Only the SHA-256 of the code is persisted. Issuing a new
// challenge for the same account replaces the previous one.
type TwoFactorChallenge struct {
	CodeHash  [32]byte
	ExpiresAt int64
	Attempts  uint16
}

// ChallengeStore persists pending two-factor challenges in Redis.
type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "i2f"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ChallengeStore) key(accountID string) string {
	return s.prefix + ":" + accountID
}

// Save stores the pending challenge for an account, replacing any previous one.
func (s *ChallengeStore) Save(ctx context.Context, accountID string, challenge *TwoFactorChallenge, ttl time.Duration) error {
	encoded, err := encodeChallenge(challenge)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(accountID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}

	return nil
}

// Consume atomically verifies the provided code hash against the pending
// challenge. A match deletes the challenge. A mismatch increments the
// attempt counter in place; reaching maxAttempts deletes the challenge and
// reports ErrChallengeAttemptsExceeded.
func (s *ChallengeStore) Consume(ctx context.Context, accountID string, providedHash [32]byte, maxAttempts int) error {
	const maxRetries = 4
	key := s.key(accountID)

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			challenge, err := decodeChallenge(data)
			if err != nil {
				return err
			}

			now := time.Now()
			if now.Unix() > challenge.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			if subtle.ConstantTimeCompare(challenge.CodeHash[:], providedHash[:]) != 1 {
				challenge.Attempts++
				if int(challenge.Attempts) >= maxAttempts {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return ErrChallengeAttemptsExceeded
				}

				ttl := time.Until(time.Unix(challenge.ExpiresAt, 0))
				if ttl <= 0 {
					_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
						pipe.Del(ctx, key)
						return nil
					})
					if err != nil {
						return err
					}
					return ErrChallengeExpired
				}

				updated, err := encodeChallenge(challenge)
				if err != nil {
					return err
				}

				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeCodeMismatch
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrChallengeNotFound
			case errors.Is(err, ErrChallengeExpired),
				errors.Is(err, ErrChallengeCodeMismatch),
				errors.Is(err, ErrChallengeAttemptsExceeded):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
			}
		}

		return nil
	}

	return ErrChallengeNotFound
}

// Delete removes any pending challenge for an account.
func (s *ChallengeStore) Delete(ctx context.Context, accountID string) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeRedisUnavailable, err)
	}
	return nil
}

func encodeChallenge(challenge *TwoFactorChallenge) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(challengeRecordVersionV1)

	if err := binary.Write(&buf, binary.BigEndian, challenge.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, challenge.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(challenge.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*TwoFactorChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersionV1 {
		return nil, errors.New("invalid challenge record version")
	}

	challenge := &TwoFactorChallenge{}

	if err := binary.Read(reader, binary.BigEndian, &challenge.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &challenge.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, challenge.CodeHash[:]); err != nil {
		return nil, err
	}

	return challenge, nil
}
