package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/avelkov/user-auth-service/internal/auth"
	"github.com/avelkov/user-auth-service/internal/config"
	"github.com/avelkov/user-auth-service/internal/database"
	"github.com/avelkov/user-auth-service/internal/handler"
	"github.com/avelkov/user-auth-service/internal/mailer"
	"github.com/avelkov/user-auth-service/internal/repository"
	"github.com/avelkov/user-auth-service/internal/router"
	"github.com/avelkov/user-auth-service/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional outside dev
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, response cache disabled")
	}

	hasher := auth.NewHasher(cfg.PBKDF2Iterations)
	issuer := auth.NewIssuer(cfg.AuthSecret, cfg.SessionTTL, cfg.ResetTTL, cfg.VerifyTTL)
	accounts := service.NewAccounts(
		repository.NewAccountRepo(db),
		hasher,
		issuer,
		mailer.NewPublisher(cfg.AMQPURL),
	)

	// Stub mail delivery: drain the queue into logs/mail.log.
	go func() {
		if err := mailer.StartConsumer(cfg.AMQPURL); err != nil {
			log.Printf("mail consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e,
		handler.NewAuthHandler(accounts),
		handler.NewUserHandler(accounts),
		issuer, rdb, config.LoadCacheConfig())

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
