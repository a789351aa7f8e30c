package goIdentity

import (
	"errors"

	internalaudit "github.com/identium/goIdentity/internal/audit"
	"github.com/identium/goIdentity/internal/limiters"
	"github.com/identium/goIdentity/internal/stores"
	"github.com/identium/goIdentity/jwt"
	"github.com/identium/goIdentity/notify"
	"github.com/identium/goIdentity/password"
	"github.com/identium/goIdentity/session"
	"github.com/redis/go-redis/v9"
)

// Builder defines a public type used by goIdentity APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client

	accounts  AccountProvider
	notifier  Notifier
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithAccounts describes the withaccounts operation and its observable behavior.
//
// WithAccounts does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAccounts(provider AccountProvider) *Builder {
	b.accounts = provider
	return b
}

// WithNotifier describes the withnotifier operation and its observable behavior.
//
// WithNotifier does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled() *Builder {
	b.config.Metrics.Enabled = true
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms() *Builder {
	b.config.Metrics.EnableLatencyHistograms = true
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account provider required")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	notifier := b.notifier
	if notifier == nil {
		notifier = notify.NoOp{}
	}

	passwordHash, err := password.NewArgon2(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
		MinLength:   b.config.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}

	jwtManager, err := jwt.NewManager(jwt.Config{
		SigningMethod: jwt.SigningMethod(b.config.JWT.SigningMethod),
		PrivateKey:    cloneBytes(b.config.JWT.PrivateKey),
		PublicKey:     cloneBytes(b.config.JWT.PublicKey),
		Issuer:        b.config.JWT.Issuer,
		Leeway:        b.config.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:            b.config,
		sessionStore:      session.NewStore(b.redis, b.config.Session.RedisPrefix),
		confirmationStore: stores.NewConfirmationStore(b.redis, ""),
		challengeStore:    stores.NewChallengeStore(b.redis, ""),
		lockout: limiters.NewLockout(b.redis, limiters.LockoutConfig{
			Enabled:     b.config.Lockout.Enabled,
			MaxFailures: b.config.Lockout.MaxFailures,
			Window:      b.config.Lockout.Window,
		}),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    b.config.Audit.Enabled,
			BufferSize: b.config.Audit.BufferSize,
			DropIfFull: b.config.Audit.DropIfFull,
		}, b.auditSink),
		metrics:      NewMetrics(b.config.Metrics),
		passwordHash: passwordHash,
		jwtManager:   jwtManager,
		accounts:     b.accounts,
		notifier:     notifier,
	}

	b.built = true
	return engine, nil
}
