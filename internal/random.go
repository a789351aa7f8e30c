package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

type TokenID [16]byte

const (
	confirmationTokenRawSize = 48
	tokenSecretSize          = 32
)

func NewTokenID() (TokenID, error) {
	var id TokenID
	_, err := rand.Read(id[:])
	return id, err
}

func (t TokenID) Bytes() []byte {
	return t[:]
}

func (t TokenID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(t[:])
}

func ParseTokenID(tokenID string) (TokenID, error) {
	var id TokenID

	raw, err := base64.RawURLEncoding.DecodeString(tokenID)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid token id size")
	}

	copy(id[:], raw)
	return id, nil
}

func NewSessionID() (TokenID, error) {
	return NewTokenID()
}

func NewTokenSecret() ([tokenSecretSize]byte, error) {
	var secret [tokenSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func HashTokenSecret(secret [tokenSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

func HashSecretBytes(secret []byte) [32]byte {
	return sha256.Sum256(secret)
}

func EncodeConfirmationToken(tokenID string, secret [tokenSecretSize]byte) (string, error) {
	tid, err := ParseTokenID(tokenID)
	if err != nil {
		return "", err
	}

	var raw [confirmationTokenRawSize]byte
	copy(raw[:len(tid)], tid[:])
	copy(raw[len(tid):], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

func DecodeConfirmationToken(token string) (string, [tokenSecretSize]byte, error) {
	var secret [tokenSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, err
	}
	if len(raw) != confirmationTokenRawSize {
		return "", secret, errors.New("invalid confirmation token size")
	}

	var tid TokenID
	copy(tid[:], raw[:len(tid)])
	copy(secret[:], raw[len(tid):])

	return tid.String(), secret, nil
}

func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}
