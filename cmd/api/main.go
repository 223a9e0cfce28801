package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/plateping/api/internal/config"
	"github.com/plateping/api/internal/infrastructure/apple"
	"github.com/plateping/api/internal/infrastructure/dynamo"
	jwtinfra "github.com/plateping/api/internal/infrastructure/jwt"
	"github.com/plateping/api/internal/infrastructure/kv"
	"github.com/plateping/api/internal/infrastructure/line"
	"github.com/plateping/api/internal/infrastructure/sns"
	transporthttp "github.com/plateping/api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// Redis carries the OTP codes, daily caps and lockout counters.
	kvStore := kv.NewRedisStore(cfg)

	// Session tokens are the product of every login flow, so missing JWT keys
	// are fatal.
	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("JWT provider: %v", err)
	}

	lineClient, err := line.NewClient(cfg)
	if err != nil {
		log.Fatalf("LINE client: %v", err)
	}
	appleVerifier, err := apple.NewVerifier(cfg)
	if err != nil {
		log.Fatalf("Apple verifier: %v", err)
	}

	// SNS SMS sender (graceful fallback to log-only delivery in dev).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available, logging SMS instead: %v", err)
		smsSender = sns.LogSender{}
	}

	deps := &transporthttp.Deps{
		UserRepo:      dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		KVStore:       kvStore,
		SMSSender:     smsSender,
		JWTProvider:   jwtProvider,
		LineClient:    lineClient,
		AppleVerifier: appleVerifier,
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
