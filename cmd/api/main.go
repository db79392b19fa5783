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
	"github.com/ottshare/party-api/internal/application/identitylink"
	"github.com/ottshare/party-api/internal/application/session"
	"github.com/ottshare/party-api/internal/config"
	"github.com/ottshare/party-api/internal/infrastructure/bankwire"
	"github.com/ottshare/party-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/ottshare/party-api/internal/infrastructure/jwt"
	"github.com/ottshare/party-api/internal/infrastructure/oauth"
	"github.com/ottshare/party-api/internal/infrastructure/pass"
	"github.com/ottshare/party-api/internal/infrastructure/paygate"
	s3infra "github.com/ottshare/party-api/internal/infrastructure/s3"
	"github.com/ottshare/party-api/internal/infrastructure/smtp"
	"github.com/ottshare/party-api/internal/infrastructure/sns"
	transporthttp "github.com/ottshare/party-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for settlement statements.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	// External partners. Outside production the sandboxes stand in for the
	// certification, banking and payment-gateway networks.
	var (
		certifier pass.Certifier
		wire      bankwire.Wire
		gateway   paygate.Gateway
	)
	if cfg.Production() {
		certifier = pass.NewCertifier(cfg)
		wire = bankwire.NewWire(cfg)
		gateway = paygate.NewGateway(cfg)
	} else {
		log.Printf("WARN: env=%s, using sandbox partners", cfg.AppEnv)
		certifier = pass.NewSandbox()
		wire = bankwire.NewVirtualBank()
		gateway = paygate.NewSandboxGateway()
	}

	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	sessionRepo := dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions)

	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     sessionRepo,
		UserRepo:        userRepo,
		JWTProvider:     jwtProvider,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})
	linkSvc := identitylink.NewService(identitylink.ServiceDeps{
		Certifier: certifier,
		UserRepo:  userRepo,
		Sessions:  sessionSvc,
		FlowTTL:   cfg.CertFlowTTL,
	})

	// Expired certification flows hold the single-flight lock for their
	// identity until swept.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			linkSvc.Sweep()
		}
	}()

	deps := &transporthttp.Deps{
		UserRepo:             userRepo,
		SessionRepo:          sessionRepo,
		BankVerificationRepo: dynamo.NewBankVerificationRepo(dynamoClient, cfg.DynamoTables.BankVerifications),
		BankAccountRepo:      dynamo.NewBankAccountRepo(dynamoClient, cfg.DynamoTables.BankAccounts),
		PaymentRepo:          dynamo.NewPaymentRepo(dynamoClient, cfg.DynamoTables.Payments),
		DepositRepo:          dynamo.NewDepositRepo(dynamoClient, cfg.DynamoTables.Deposits),
		SettlementRepo:       dynamo.NewSettlementRepo(dynamoClient, cfg.DynamoTables.Settlements),
		NotificationRepo:     dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		S3Store:              s3Store,
		Mailer:               mailer,
		SMSSender:            smsSender,
		JWTProvider:          jwtProvider,
		OAuthVerifier:        oauth.NewVerifier(cfg),
		Certifier:            certifier,
		Wire:                 wire,
		Gateway:              gateway,
		IdentityLink:         linkSvc,
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
