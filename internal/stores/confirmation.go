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
	confirmationRecordVersionV1 = 1
)

// Token purposes. A token issued for one purpose never satisfies another.
const (
	PurposeEmailConfirmation byte = 1
)

var (
	ErrTokenNotFound         = errors.New("confirmation token not found")
	ErrTokenUsed             = errors.New("confirmation token already used")
	ErrTokenExpired          = errors.New("confirmation token expired")
	ErrTokenPurposeMismatch  = errors.New("confirmation token purpose mismatch")
	ErrTokenAccountMismatch  = errors.New("confirmation token account mismatch")
	ErrTokenSecretMismatch   = errors.New("confirmation token secret mismatch")
	ErrTokenRedisUnavailable = errors.New("confirmation token redis unavailable")
)

// TokenRecord is a single-use token bound to an account and a purpose. Only
// the SHA-256 of the token secret is persisted. Consumed records stay in
// Redis as tombstones until expiry so replays are distinguishable from
// unknown tokens.
type TokenRecord struct {
	AccountID  string
	Purpose    byte
	SecretHash [32]byte
	ExpiresAt  int64
	Consumed   bool
}

// ConfirmationStore persists single-use confirmation tokens in Redis.
type ConfirmationStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewConfirmationStore(redisClient redis.UniversalClient, prefix string) *ConfirmationStore {
	if prefix == "" {
		prefix = "ict"
	}
	return &ConfirmationStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ConfirmationStore) key(tokenID string) string {
	return s.prefix + ":" + tokenID
}

// Save persists a token record under its token ID with the given TTL.
func (s *ConfirmationStore) Save(ctx context.Context, tokenID string, record *TokenRecord, ttl time.Duration) error {
	encoded, err := encodeTokenRecord(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, s.key(tokenID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
	}

	return nil
}

// Consume atomically marks the token consumed and returns the record.
// A consumed record is rewritten in place with its remaining TTL rather than
// deleted, so a second Consume of the same token reports ErrTokenUsed.
// Purpose, account, and secret mismatches leave the record untouched.
func (s *ConfirmationStore) Consume(
	ctx context.Context,
	tokenID string,
	providedHash [32]byte,
	expectedPurpose byte,
	expectedAccountID string,
) (*TokenRecord, error) {
	const maxRetries = 4
	key := s.key(tokenID)

	for i := 0; i < maxRetries; i++ {
		var matched *TokenRecord

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeTokenRecord(data)
			if err != nil {
				return err
			}

			if record.Consumed {
				return ErrTokenUsed
			}

			now := time.Now()
			if now.Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrTokenExpired
			}

			if record.Purpose != expectedPurpose {
				return ErrTokenPurposeMismatch
			}

			if expectedAccountID != "" && record.AccountID != expectedAccountID {
				return ErrTokenAccountMismatch
			}

			if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
				return ErrTokenSecretMismatch
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrTokenExpired
			}

			consumed := *record
			consumed.Consumed = true
			updated, err := encodeTokenRecord(&consumed)
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

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return nil, ErrTokenNotFound
			case errors.Is(err, ErrTokenUsed),
				errors.Is(err, ErrTokenExpired),
				errors.Is(err, ErrTokenPurposeMismatch),
				errors.Is(err, ErrTokenAccountMismatch),
				errors.Is(err, ErrTokenSecretMismatch):
				return nil, err
			default:
				return nil, fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
			}
		}

		return matched, nil
	}

	return nil, ErrTokenNotFound
}

// Delete removes a token record regardless of state.
func (s *ConfirmationStore) Delete(ctx context.Context, tokenID string) error {
	if err := s.redis.Del(ctx, s.key(tokenID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTokenRedisUnavailable, err)
	}
	return nil
}

func encodeTokenRecord(record *TokenRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(confirmationRecordVersionV1)
	buf.WriteByte(record.Purpose)

	var consumed byte
	if record.Consumed {
		consumed = 1
	}
	buf.WriteByte(consumed)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.AccountID) > 65535 {
		return nil, errors.New("token record account id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.AccountID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.AccountID)
	buf.Write(record.SecretHash[:])

	return buf.Bytes(), nil
}

func decodeTokenRecord(data []byte) (*TokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != confirmationRecordVersionV1 {
		return nil, errors.New("invalid token record version")
	}

	purpose, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	consumed, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &TokenRecord{
		Purpose:  purpose,
		Consumed: consumed == 1,
	}

	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var accountIDLen uint16
	if err := binary.Read(reader, binary.BigEndian, &accountIDLen); err != nil {
		return nil, err
	}

	accountID := make([]byte, accountIDLen)
	if _, err := io.ReadFull(reader, accountID); err != nil {
		return nil, err
	}
	record.AccountID = string(accountID)

	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
