// Command identityd runs the goIdentity engine as a small HTTP service backed
// by PostgreSQL accounts and Redis state.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	goIdentity "github.com/identium/goIdentity"
	"github.com/identium/goIdentity/metrics/export/prometheus"
	"github.com/identium/goIdentity/middleware"
	"github.com/identium/goIdentity/notify"
	"github.com/identium/goIdentity/providers/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("identityd exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	v, err := loadConfig()
	if err != nil {
		return err
	}

	privateKey, err := os.ReadFile(v.GetString("jwt.private_key_file"))
	if err != nil {
		return err
	}
	publicKey, err := os.ReadFile(v.GetString("jwt.public_key_file"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       v.GetInt("redis.db"),
	})
	defer func() { _ = redisClient.Close() }()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		return err
	}

	dsn := v.GetString("postgres.dsn")
	if err := postgres.Migrate(dsn); err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer pool.Close()

	accounts, err := postgres.NewProvider(pool)
	if err != nil {
		return err
	}

	var notifier goIdentity.Notifier
	if v.GetString("smtp.host") != "" {
		notifier, err = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     v.GetString("smtp.host"),
			Port:     v.GetInt("smtp.port"),
			Username: v.GetString("smtp.username"),
			Password: v.GetString("smtp.password"),
			From:     v.GetString("smtp.from"),
		})
		if err != nil {
			return err
		}
	}

	cfg := engineConfig(v, privateKey, publicKey)

	builder := goIdentity.New().
		WithConfig(cfg).
		WithRedis(redisClient).
		WithAccounts(accounts).
		WithMetricsEnabled().
		WithLatencyHistograms().
		WithAuditSink(goIdentity.NewJSONWriterSink(os.Stdout))
	if notifier != nil {
		builder = builder.WithNotifier(notifier)
	}

	engine, err := builder.Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:              v.GetString("http.addr"),
		Handler:           newHandler(engine, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("identityd listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadConfig() (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName("identityd")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/identityd")
	v.SetEnvPrefix("IDENTITYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("jwt.issuer", "identityd")
	v.SetDefault("session.lifetime", "24h")
	v.SetDefault("session.remember_me_lifetime", "336h")
	v.SetDefault("lockout.max_failures", 5)
	v.SetDefault("lockout.window", "5m")
	v.SetDefault("confirmation.token_ttl", "15m")
	v.SetDefault("confirmation.require_for_login", false)
	v.SetDefault("two_factor.code_digits", 6)
	v.SetDefault("two_factor.code_ttl", "3m")
	v.SetDefault("two_factor.max_attempts", 5)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return v, nil
}

func engineConfig(v *viper.Viper, privateKey, publicKey []byte) goIdentity.Config {
	cfg := goIdentity.DefaultConfig()
	cfg.JWT.PrivateKey = privateKey
	cfg.JWT.PublicKey = publicKey
	cfg.JWT.Issuer = v.GetString("jwt.issuer")
	cfg.Session.Lifetime = v.GetDuration("session.lifetime")
	cfg.Session.RememberMeLifetime = v.GetDuration("session.remember_me_lifetime")
	cfg.Lockout.MaxFailures = v.GetInt("lockout.max_failures")
	cfg.Lockout.Window = v.GetDuration("lockout.window")
	cfg.Confirmation.TokenTTL = v.GetDuration("confirmation.token_ttl")
	cfg.Confirmation.RequireForLogin = v.GetBool("confirmation.require_for_login")
	cfg.TwoFactor.CodeDigits = v.GetInt("two_factor.code_digits")
	cfg.TwoFactor.CodeTTL = v.GetDuration("two_factor.code_ttl")
	cfg.TwoFactor.MaxAttempts = v.GetInt("two_factor.max_attempts")
	return cfg
}

func newHandler(engine *goIdentity.Engine, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /identity", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name       string `json:"name"`
			Email      string `json:"email"`
			Password   string `json:"password"`
			Department string `json:"department"`
			Position   string `json:"position"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		var claims []goIdentity.Claim
		if req.Department != "" {
			claims = append(claims, goIdentity.Claim{Name: "Department", Value: req.Department})
		}
		if req.Position != "" {
			claims = append(claims, goIdentity.Claim{Name: "Position", Value: req.Position})
		}

		result, err := engine.Register(r.Context(), goIdentity.RegisterRequest{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Claims:   claims,
		})
		if err != nil {
			switch {
			case errors.Is(err, goIdentity.ErrAccountExists):
				writeError(w, http.StatusConflict, "email already registered")
			case errors.Is(err, goIdentity.ErrPasswordPolicy):
				writeError(w, http.StatusBadRequest, "password does not meet policy")
			case errors.Is(err, goIdentity.ErrInvalidInput):
				writeError(w, http.StatusBadRequest, "email and password are required")
			default:
				logger.Error("register failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "registration unavailable")
			}
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"account_id": result.AccountID,
			"delivered":  result.Delivered,
		})
	})

	mux.HandleFunc("POST /identity/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email      string `json:"email"`
			Password   string `json:"password"`
			RememberMe bool   `json:"remember_me"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		result, err := engine.Login(r.Context(), req.Email, req.Password, req.RememberMe)
		if err != nil {
			logger.Error("login failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "sign-in unavailable")
			return
		}

		writeSignInResult(w, result)
	})

	mux.HandleFunc("POST /identity/mfa", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			AccountID  string `json:"account_id"`
			Code       string `json:"code"`
			RememberMe bool   `json:"remember_me"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}

		result, err := engine.CompleteTwoFactor(r.Context(), req.AccountID, req.Code, req.RememberMe)
		if err != nil {
			logger.Error("two-factor completion failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "sign-in unavailable")
			return
		}

		writeSignInResult(w, result)
	})

	mux.HandleFunc("GET /identity/confirm-email", func(w http.ResponseWriter, r *http.Request) {
		accountID := r.URL.Query().Get("userId")
		token := r.URL.Query().Get("token")

		err := engine.ConfirmEmail(r.Context(), accountID, token)
		if err != nil {
			switch {
			case errors.Is(err, goIdentity.ErrTokenAlreadyUsed):
				writeError(w, http.StatusConflict, "token already used")
			case errors.Is(err, goIdentity.ErrTokenExpired):
				writeError(w, http.StatusGone, "token expired")
			case errors.Is(err, goIdentity.ErrInvalidInput),
				errors.Is(err, goIdentity.ErrTokenMalformed),
				errors.Is(err, goIdentity.ErrTokenInvalid),
				errors.Is(err, goIdentity.ErrTokenAccountMismatch),
				errors.Is(err, goIdentity.ErrTokenPurposeMismatch):
				writeError(w, http.StatusBadRequest, "invalid confirmation token")
			default:
				logger.Error("email confirmation failed", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "confirmation unavailable")
			}
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})

	guard := middleware.RequireSession(engine)
	mux.Handle("POST /identity/logout", guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, ok := middleware.SessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		if err := engine.Logout(r.Context(), info.SessionID); err != nil {
			logger.Error("logout failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "logout unavailable")
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})))

	exporter := prometheus.NewPrometheusExporter(engine)
	mux.Handle("GET /metrics", exporter.Handler())

	return mux
}

func writeSignInResult(w http.ResponseWriter, result *goIdentity.SignInResult) {
	body := map[string]any{
		"outcome": result.Outcome.String(),
	}

	switch result.Outcome {
	case goIdentity.SignInAuthenticated:
		body["access_token"] = result.AccessToken
	case goIdentity.SignInTwoFactorRequired:
		body["account_id"] = result.AccountID
		body["delivered"] = result.TwoFactorDelivered
	case goIdentity.SignInLockedOut:
		body["retry_after_seconds"] = int(result.RetryAfter.Seconds())
	}

	status := http.StatusOK
	switch result.Outcome {
	case goIdentity.SignInRejected:
		status = http.StatusUnauthorized
	case goIdentity.SignInLockedOut:
		status = http.StatusTooManyRequests
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
