package goIdentity

import (
	"context"
	"crypto/ed25519"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/identium/goIdentity/notify"
	"github.com/redis/go-redis/v9"
)

const (
	testEmail    = "user@example.com"
	testPassword = "correct-horse-battery"
)

type memProvider struct {
	mu       sync.Mutex
	accounts map[string]*AccountRecord
	byEmail  map[string]string
	nextID   int
}

func newMemProvider() *memProvider {
	return &memProvider{
		accounts: make(map[string]*AccountRecord),
		byEmail:  make(map[string]string),
	}
}

func (p *memProvider) CreateAccount(_ context.Context, input CreateAccountInput) (AccountRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byEmail[input.Email]; exists {
		return AccountRecord{}, ErrProviderDuplicateEmail
	}

	p.nextID++
	record := &AccountRecord{
		AccountID:    "acct-" + strconv.Itoa(p.nextID),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
	}
	p.accounts[record.AccountID] = record
	p.byEmail[input.Email] = record.AccountID

	return copyRecord(record), nil
}

func (p *memProvider) GetAccountByEmail(_ context.Context, email string) (AccountRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, ok := p.byEmail[email]
	if !ok {
		return AccountRecord{}, ErrAccountNotFound
	}
	return copyRecord(p.accounts[id]), nil
}

func (p *memProvider) GetAccountByID(_ context.Context, accountID string) (AccountRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, ok := p.accounts[accountID]
	if !ok {
		return AccountRecord{}, ErrAccountNotFound
	}
	return copyRecord(record), nil
}

func (p *memProvider) AddClaim(_ context.Context, accountID, name, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, ok := p.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	record.Claims = append(record.Claims, Claim{Name: name, Value: value})
	return nil
}

func (p *memProvider) SetEmailConfirmed(_ context.Context, accountID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, ok := p.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	record.EmailConfirmed = true
	return nil
}

func (p *memProvider) SetTwoFactorEnabled(_ context.Context, accountID string, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	record, ok := p.accounts[accountID]
	if !ok {
		return ErrAccountNotFound
	}
	record.TwoFactorEnabled = enabled
	return nil
}

func (p *memProvider) record(t *testing.T, accountID string) AccountRecord {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	record, ok := p.accounts[accountID]
	if !ok {
		t.Fatalf("account %q not found in provider", accountID)
	}
	return copyRecord(record)
}

func copyRecord(record *AccountRecord) AccountRecord {
	out := *record
	out.Claims = append([]Claim(nil), record.Claims...)
	return out
}

type captureNotifier struct {
	mu   sync.Mutex
	msgs []notify.Message
	fail bool
}

func (n *captureNotifier) Send(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fail {
		return errors.New("delivery refused")
	}
	n.msgs = append(n.msgs, msg)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

func (n *captureNotifier) lastCode(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()

	if len(n.msgs) == 0 {
		t.Fatal("no messages delivered")
	}
	body := n.msgs[len(n.msgs)-1].Body
	idx := strings.LastIndex(body, ": ")
	if idx < 0 {
		t.Fatalf("unexpected message body %q", body)
	}
	return body[idx+2:]
}

func (n *captureNotifier) setFail(fail bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fail = fail
}

func testConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("generate keys: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	cfg.JWT.Issuer = "goidentity-test"

	// Cheap argon2 parameters keep the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.MinLength = 8

	return cfg
}

type testEnv struct {
	engine   *Engine
	redis    *miniredis.Miniredis
	provider *memProvider
	notifier *captureNotifier
}

func newTestEnv(t *testing.T, cfg Config) *testEnv {
	return newTestEnvWithSink(t, cfg, nil)
}

func newTestEnvWithSink(t *testing.T, cfg Config, sink AuditSink) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	provider := newMemProvider()
	notifier := &captureNotifier{}

	builder := New().
		WithConfig(cfg).
		WithRedis(client).
		WithAccounts(provider).
		WithNotifier(notifier).
		WithMetricsEnabled()
	if sink != nil {
		builder = builder.WithAuditSink(sink)
	}

	engine, err := builder.Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine:   engine,
		redis:    mr,
		provider: provider,
		notifier: notifier,
	}
}

func (env *testEnv) register(t *testing.T, email string) *RegisterResult {
	t.Helper()

	result, err := env.engine.Register(context.Background(), RegisterRequest{
		Name:     "Test User",
		Email:    email,
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return result
}

func (env *testEnv) login(t *testing.T, email, password string) *SignInResult {
	t.Helper()

	result, err := env.engine.Login(context.Background(), email, password, false)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return result
}

func requireOutcome(t *testing.T, result *SignInResult, want SignInOutcome) {
	t.Helper()
	if result.Outcome != want {
		t.Fatalf("outcome = %s, want %s", result.Outcome, want)
	}
}

func fastForward(env *testEnv, d time.Duration) {
	env.redis.FastForward(d)
}
