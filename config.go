package goIdentity

import (
	"errors"
	"time"
)

// Config defines a public type used by goIdentity APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT          JWTConfig
	Session      SessionConfig
	Password     PasswordConfig
	Lockout      LockoutConfig
	Confirmation ConfirmationConfig
	TwoFactor    TwoFactorConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by goIdentity APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by goIdentity APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix        string
	Lifetime           time.Duration
	RememberMeLifetime time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by goIdentity APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// LockoutConfig defines a public type used by goIdentity APIs.
//
// LockoutConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutConfig struct {
	Enabled                bool
	MaxFailures            int
	Window                 time.Duration
	CountTwoFactorFailures bool
}

// ConfirmationConfig defines a public type used by goIdentity APIs.
//
// ConfirmationConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ConfirmationConfig struct {
	Enabled         bool
	TokenTTL        time.Duration
	RequireForLogin bool
}

// TwoFactorConfig defines a public type used by goIdentity APIs.
//
// TwoFactorConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TwoFactorConfig struct {
	CodeDigits  int
	CodeTTL     time.Duration
	MaxAttempts int
}

// AuditConfig defines a public type used by goIdentity APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by goIdentity APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			SigningMethod: "ed25519",
			Leeway:        30 * time.Second,
		},
		Session: SessionConfig{
			RedisPrefix:        "ise",
			Lifetime:           24 * time.Hour,
			RememberMeLifetime: 14 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   10,
		},
		Lockout: LockoutConfig{
			Enabled:                true,
			MaxFailures:            5,
			Window:                 5 * time.Minute,
			CountTwoFactorFailures: true,
		},
		Confirmation: ConfirmationConfig{
			Enabled:         true,
			TokenTTL:        15 * time.Minute,
			RequireForLogin: false,
		},
		TwoFactor: TwoFactorConfig{
			CodeDigits:  6,
			CodeTTL:     3 * time.Minute,
			MaxAttempts: 5,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.Lifetime <= 0 {
		return errors.New("Session Lifetime must be > 0")
	}
	if c.Session.RememberMeLifetime < c.Session.Lifetime {
		return errors.New("Session RememberMeLifetime must be >= Lifetime")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Lockout
	if c.Lockout.Enabled {
		if c.Lockout.MaxFailures <= 0 {
			return errors.New("Lockout MaxFailures must be > 0 when lockout is enabled")
		}
		if c.Lockout.Window <= 0 {
			return errors.New("Lockout Window must be > 0 when lockout is enabled")
		}
	}

	// Confirmation
	if c.Confirmation.Enabled {
		if c.Confirmation.TokenTTL <= 0 {
			return errors.New("Confirmation TokenTTL must be > 0")
		}
	}
	if c.Confirmation.RequireForLogin && !c.Confirmation.Enabled {
		return errors.New("Confirmation RequireForLogin requires Confirmation Enabled")
	}

	// Two-factor
	if c.TwoFactor.CodeDigits < 6 || c.TwoFactor.CodeDigits > 10 {
		return errors.New("TwoFactor CodeDigits must be between 6 and 10")
	}
	if c.TwoFactor.CodeTTL <= 0 {
		return errors.New("TwoFactor CodeTTL must be > 0")
	}
	if c.TwoFactor.CodeTTL > 15*time.Minute {
		return errors.New("TwoFactor CodeTTL must be <= 15m")
	}
	if c.TwoFactor.MaxAttempts <= 0 || c.TwoFactor.MaxAttempts > 5 {
		return errors.New("TwoFactor MaxAttempts must be between 1 and 5")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
