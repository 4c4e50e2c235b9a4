package main

import (
	"context"
	"database/sql"
	"log"

	"github.com/gofiber/fiber/v2"
	identity "github.com/identitykit/identity"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func main() {
	cfg, err := identity.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := openDatabase(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	logger := identity.NewLogger()

	repo := identity.NewRepositoryManager(db)
	accounts := identity.NewAccountService(repo, logger)

	tokens := identity.NewTokenService(
		[]byte(cfg.JWTSecret),
		cfg.JWTIssuer,
		logger,
		identity.WithAccessTTL(cfg.AccessTokenTTL),
		identity.WithRefreshTTL(cfg.RefreshTokenTTL),
	)

	verifyCodec := identity.NewURLTokenCodec(cfg.JWTSecret, identity.SaltEmailVerification, cfg.VerificationTTL)
	resetCodec := identity.NewURLTokenCodec(cfg.JWTSecret, identity.SaltPasswordReset, cfg.PasswordResetTTL)

	revoked := buildRevocationStore(cfg)
	mailer := buildMailer(cfg, logger)

	controller := identity.NewAuthController(
		identity.WithLogger(logger),
		identity.WithAccounts(accounts),
		identity.WithTokens(tokens),
		identity.WithVerifyCodec(verifyCodec),
		identity.WithResetCodec(resetCodec),
		identity.WithRevocationStore(revoked),
		identity.WithMailer(mailer),
		identity.WithDomain(cfg.Domain),
	)

	app := fiber.New(fiber.Config{
		AppName: "identityd",
	})

	identity.RegisterAuthRoutes(app, controller)

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if _, err := db.NewCreateTable().
		Model((*identity.User)(nil)).
		IfNotExists().
		Exec(context.Background()); err != nil {
		return nil, err
	}

	return db, nil
}

func buildRevocationStore(cfg *identity.Config) identity.RevocationStore {
	if cfg.RedisAddr == "" {
		return identity.NewMemoryRevocationStore()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return identity.NewRedisRevocationStore(client, "")
}

func buildMailer(cfg *identity.Config, logger identity.Logger) identity.Mailer {
	if cfg.SMTPHost == "" {
		return identity.NewLogMailer(logger)
	}

	mailer, err := identity.NewSMTPMailer(cfg.SMTP(), logger)
	if err != nil {
		log.Fatalf("mailer: %v", err)
	}

	return mailer
}
