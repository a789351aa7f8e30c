package jwt

import (
	"crypto/ed25519"
	"testing"
	"time"
)

func newEdManager(t *testing.T) (*Manager, ed25519.PublicKey) {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	manager, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "goidentity-test",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return manager, pub
}

func TestCreateParseRoundTrip(t *testing.T) {
	manager, _ := newEdManager(t)

	token, err := manager.CreateSession("acct-1", "user@example.com", "sid-1", time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	claims, err := manager.ParseSession(token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if claims.AccountID != "acct-1" || claims.Email != "user@example.com" || claims.SID != "sid-1" {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsTamperedToken(t *testing.T) {
	manager, _ := newEdManager(t)

	token, err := manager.CreateSession("acct-1", "user@example.com", "sid-1", time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	tampered := []byte(token)
	tampered[len(tampered)/2] ^= 0x01

	if _, err := manager.ParseSession(string(tampered)); err == nil {
		t.Fatal("tampered token must be rejected")
	}
}

func TestParseRejectsForeignKey(t *testing.T) {
	first, _ := newEdManager(t)
	second, _ := newEdManager(t)

	token, err := first.CreateSession("acct-1", "", "sid-1", time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := second.ParseSession(token); err == nil {
		t.Fatal("token from a different key must be rejected")
	}
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	issuerA, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, Issuer: "a"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	issuerB, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, Issuer: "b"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := issuerA.CreateSession("acct-1", "", "sid-1", time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := issuerB.ParseSession(token); err == nil {
		t.Fatal("wrong issuer must be rejected")
	}
}

func TestCreateSessionRejectsZeroTTL(t *testing.T) {
	manager, _ := newEdManager(t)

	if _, err := manager.CreateSession("acct-1", "", "sid-1", 0); err == nil {
		t.Fatal("zero TTL must be rejected")
	}
}

func TestHS256RoundTrip(t *testing.T) {
	manager, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "goidentity-test",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := manager.CreateSession("acct-1", "user@example.com", "sid-1", time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	claims, err := manager.ParseSession(token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if claims.SID != "sid-1" {
		t.Fatalf("sid = %q, want sid-1", claims.SID)
	}
}

func TestNewManagerValidation(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"unknown method", Config{SigningMethod: "rs256"}},
		{"hs256 without key", Config{SigningMethod: MethodHS256}},
		{"ed25519 without public key", Config{SigningMethod: MethodEd25519, PrivateKey: priv}},
		{"excessive leeway", Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub, Leeway: 5 * time.Minute}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected configuration error")
			}
		})
	}
}
