package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goIdentity "github.com/identium/goIdentity"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Provider implements [goIdentity.AccountProvider] on a pgx connection pool.
//
// Provider instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Provider struct {
	pool *pgxpool.Pool
}

// NewProvider describes the newprovider operation and its observable behavior.
//
// NewProvider may return an error when input validation, dependency calls, or security checks fail.
// NewProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewProvider(pool *pgxpool.Pool) (*Provider, error) {
	if pool == nil {
		return nil, errors.New("pgx pool required")
	}
	return &Provider{pool: pool}, nil
}

// CreateAccount describes the createaccount operation and its observable behavior.
//
// CreateAccount may return an error when input validation, dependency calls, or security checks fail.
// CreateAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) CreateAccount(ctx context.Context, input goIdentity.CreateAccountInput) (goIdentity.AccountRecord, error) {
	accountID := uuid.NewString()

	_, err := p.pool.Exec(ctx,
		`INSERT INTO accounts (account_id, name, email, password_hash)
		 VALUES ($1, $2, $3, $4)`,
		accountID, input.Name, input.Email, input.PasswordHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return goIdentity.AccountRecord{}, goIdentity.ErrProviderDuplicateEmail
		}
		return goIdentity.AccountRecord{}, fmt.Errorf("insert account: %w", err)
	}

	return goIdentity.AccountRecord{
		AccountID:    accountID,
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
	}, nil
}

// GetAccountByEmail describes the getaccountbyemail operation and its observable behavior.
//
// GetAccountByEmail may return an error when input validation, dependency calls, or security checks fail.
// GetAccountByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) GetAccountByEmail(ctx context.Context, email string) (goIdentity.AccountRecord, error) {
	return p.getAccount(ctx,
		`SELECT account_id, name, email, password_hash, email_confirmed, two_factor_enabled
		 FROM accounts WHERE email = $1`,
		email,
	)
}

// GetAccountByID describes the getaccountbyid operation and its observable behavior.
//
// GetAccountByID may return an error when input validation, dependency calls, or security checks fail.
// GetAccountByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) GetAccountByID(ctx context.Context, accountID string) (goIdentity.AccountRecord, error) {
	return p.getAccount(ctx,
		`SELECT account_id, name, email, password_hash, email_confirmed, two_factor_enabled
		 FROM accounts WHERE account_id = $1`,
		accountID,
	)
}

func (p *Provider) getAccount(ctx context.Context, query string, arg any) (goIdentity.AccountRecord, error) {
	var record goIdentity.AccountRecord

	err := p.pool.QueryRow(ctx, query, arg).Scan(
		&record.AccountID,
		&record.Name,
		&record.Email,
		&record.PasswordHash,
		&record.EmailConfirmed,
		&record.TwoFactorEnabled,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goIdentity.AccountRecord{}, goIdentity.ErrAccountNotFound
		}
		return goIdentity.AccountRecord{}, fmt.Errorf("query account: %w", err)
	}

	claims, err := p.loadClaims(ctx, record.AccountID)
	if err != nil {
		return goIdentity.AccountRecord{}, err
	}
	record.Claims = claims

	return record, nil
}

func (p *Provider) loadClaims(ctx context.Context, accountID string) ([]goIdentity.Claim, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT claim_name, claim_value FROM account_claims
		 WHERE account_id = $1 ORDER BY id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var claims []goIdentity.Claim
	for rows.Next() {
		var c goIdentity.Claim
		if err := rows.Scan(&c.Name, &c.Value); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}

	return claims, nil
}

// AddClaim describes the addclaim operation and its observable behavior.
//
// AddClaim may return an error when input validation, dependency calls, or security checks fail.
// AddClaim does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) AddClaim(ctx context.Context, accountID, name, value string) error {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO account_claims (account_id, claim_name, claim_value)
		 SELECT account_id, $2, $3 FROM accounts WHERE account_id = $1`,
		accountID, name, value,
	)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goIdentity.ErrAccountNotFound
	}
	return nil
}

// SetEmailConfirmed describes the setemailconfirmed operation and its observable behavior.
//
// SetEmailConfirmed may return an error when input validation, dependency calls, or security checks fail.
// SetEmailConfirmed does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) SetEmailConfirmed(ctx context.Context, accountID string) error {
	// Idempotent: confirming an already-confirmed account is a no-op update.
	tag, err := p.pool.Exec(ctx,
		`UPDATE accounts SET email_confirmed = TRUE WHERE account_id = $1`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goIdentity.ErrAccountNotFound
	}
	return nil
}

// SetTwoFactorEnabled describes the settwofactorenabled operation and its observable behavior.
//
// SetTwoFactorEnabled may return an error when input validation, dependency calls, or security checks fail.
// SetTwoFactorEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Provider) SetTwoFactorEnabled(ctx context.Context, accountID string, enabled bool) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE accounts SET two_factor_enabled = $2 WHERE account_id = $1`,
		accountID, enabled,
	)
	if err != nil {
		return fmt.Errorf("set two factor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return goIdentity.ErrAccountNotFound
	}
	return nil
}
