package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/classgate/access/internal/config"
	"github.com/classgate/access/internal/database"
	"github.com/classgate/access/internal/handler"
	"github.com/classgate/access/internal/queue"
	"github.com/classgate/access/internal/repository"
	"github.com/classgate/access/internal/router"
	"github.com/classgate/access/internal/service"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter on the polled status route; a nil
	// client simply disables it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	verifTokens := repository.NewVerificationTokenRepo(db)
	passwords := repository.NewBatchPasswordRepo(db)
	entitlements := repository.NewEntitlementRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	verifH := handler.NewVerificationHandler(cfg, verifTokens, entitlements)
	passH := handler.NewPasswordHandler(passwords, entitlements)
	accessH := handler.NewAccessHandler(users, entitlements)
	adminH := handler.NewAdminHandler(entitlements, passwords, verifTokens)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	service.StartExpirySweeper(ctx, entitlements, cfg.SweepInterval)
	go func() {
		if err := queue.StartGrantConsumer(); err != nil {
			log.Printf("grant consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, verifH)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterAccess(e, cfg, rdb, verifH, passH, accessH)
	router.RegisterAdmin(e, cfg, adminH)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
