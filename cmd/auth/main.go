package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-auth/internal/config"
	"expense-auth/internal/observability/logging"
	"expense-auth/internal/observability/metrics"
	"expense-auth/internal/passkey"
	"expense-auth/internal/service"
	impl "expense-auth/internal/service/impl"
	"expense-auth/internal/store"
	httpx "expense-auth/internal/transport/http"
	"expense-auth/pkg/db"
)

func main() {
	cfg, err := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: "expense-auth",
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}
	logger.Info("starting service")

	metrics.MustRegister("expense-auth")

	// 1) DB
	gdb, err := db.OpenGorm(db.Config{Driver: cfg.DBDriver, DSN: cfg.DatabaseURL, LogSQL: cfg.LogSQL})
	if err != nil {
		logger.Error("gorm open", "error", err)
		os.Exit(1)
	}
	st := store.New(gdb)
	if err := st.Migrate(context.Background()); err != nil {
		logger.Error("migrate", "error", err)
		os.Exit(1)
	}

	// 2) Services
	pw := impl.NewPasswordServiceArgon2id()
	tokens := impl.NewTokenServiceHS256(impl.TokenConfig{
		Issuer:     cfg.Issuer,
		Audience:   cfg.Audience,
		AccessTTL:  cfg.AccessTTL,
		SigningKey: []byte(cfg.SigningKey),
	})
	challenges := impl.NewChallengeService(st)
	totp := impl.NewTOTPService(impl.TOTPConfig{Issuer: cfg.RPDisplayName})
	passkeys, err := impl.NewPasskeyService(st,
		passkey.NewConfig(cfg.RPDisplayName, cfg.RPID, cfg.FrontendAppURL, cfg.RPOrigins))
	if err != nil {
		logger.Error("passkey setup", "error", err)
		os.Exit(1)
	}

	var mailer service.EmailService = impl.LogEmailService{}
	if cfg.SMTP.Enabled() {
		mailer = impl.NewSMTPEmailService(impl.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	invites := impl.InviteConfig{FrontendURL: cfg.FrontendAppURL, TTL: cfg.InviteTTL}

	auth := impl.NewAuthServiceImpl(impl.AuthDeps{
		Store:      st,
		Passwords:  pw,
		Challenges: challenges,
		TOTP:       totp,
		Passkeys:   passkeys,
		Tokens:     tokens,
		Email:      mailer,
		Invites:    invites,
	})
	admin := impl.NewAdminServiceImpl(impl.AdminDeps{
		Store:           st,
		Passwords:       pw,
		Challenges:      challenges,
		Email:           mailer,
		Invites:         invites,
		BootstrapSecret: cfg.BootstrapSecret,
	})

	// 3) HTTP router
	router := httpx.NewRouter(httpx.RouterConfig{
		Auth:        auth,
		Admin:       admin,
		Tokens:      tokens,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("auth service listening", "addr", srv.Addr, "issuer", cfg.Issuer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	slog.Info("auth service stopped")
}
