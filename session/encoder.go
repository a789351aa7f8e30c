package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const (
	// CurrentSchemaVersion is an exported constant or variable used by the identity engine.
	CurrentSchemaVersion = 1
)

var (
	errSessionFieldTooLong = errors.New("session field too long")
	errSessionCorrupt      = errors.New("session blob corrupt")
)

// Encode serializes a [Session] into the compact binary wire format.
//
// Layout (v1): version(1) flags(1) createdAt(8) expiresAt(8)
// accountIDLen(2) accountID emailLen(2) email. SessionID is the Redis key
// and is not part of the blob.
func Encode(sess *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(CurrentSchemaVersion)

	var flags byte
	if sess.RememberMe {
		flags |= 1
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, sess.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, sess.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []string{sess.AccountID, sess.Email} {
		if len(field) > 65535 {
			return nil, errSessionFieldTooLong
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

// Decode deserializes a binary session blob produced by [Encode].
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errSessionCorrupt
	}
	if version != CurrentSchemaVersion {
		return nil, errSessionCorrupt
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, errSessionCorrupt
	}

	sess := &Session{
		RememberMe: flags&1 == 1,
	}

	if err := binary.Read(reader, binary.BigEndian, &sess.CreatedAt); err != nil {
		return nil, errSessionCorrupt
	}
	if err := binary.Read(reader, binary.BigEndian, &sess.ExpiresAt); err != nil {
		return nil, errSessionCorrupt
	}

	for _, field := range []*string{&sess.AccountID, &sess.Email} {
		var fieldLen uint16
		if err := binary.Read(reader, binary.BigEndian, &fieldLen); err != nil {
			return nil, errSessionCorrupt
		}
		raw := make([]byte, fieldLen)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, errSessionCorrupt
		}
		*field = string(raw)
	}

	return sess, nil
}
