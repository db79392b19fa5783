package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ottshare/party-api/internal/application/bankverify"
	"github.com/ottshare/party-api/internal/application/deposit"
	"github.com/ottshare/party-api/internal/application/identitylink"
	"github.com/ottshare/party-api/internal/application/notification"
	"github.com/ottshare/party-api/internal/application/oauthgw"
	"github.com/ottshare/party-api/internal/application/payment"
	"github.com/ottshare/party-api/internal/application/session"
	"github.com/ottshare/party-api/internal/application/settlement"
	"github.com/ottshare/party-api/internal/application/user"
	"github.com/ottshare/party-api/internal/config"
	"github.com/ottshare/party-api/internal/domain"
	"github.com/ottshare/party-api/internal/infrastructure/bankwire"
	"github.com/ottshare/party-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/ottshare/party-api/internal/infrastructure/jwt"
	"github.com/ottshare/party-api/internal/infrastructure/oauth"
	"github.com/ottshare/party-api/internal/infrastructure/pass"
	"github.com/ottshare/party-api/internal/infrastructure/paygate"
	s3infra "github.com/ottshare/party-api/internal/infrastructure/s3"
	"github.com/ottshare/party-api/internal/infrastructure/smtp"
	"github.com/ottshare/party-api/internal/infrastructure/sns"
	"github.com/ottshare/party-api/internal/transport/http/handler"
	appmiddleware "github.com/ottshare/party-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo             *dynamo.UserRepo
	SessionRepo          *dynamo.SessionRepo
	BankVerificationRepo *dynamo.BankVerificationRepo
	BankAccountRepo      *dynamo.BankAccountRepo
	PaymentRepo          *dynamo.PaymentRepo
	DepositRepo          *dynamo.DepositRepo
	SettlementRepo       *dynamo.SettlementRepo
	NotificationRepo     *dynamo.NotificationRepo
	S3Store              *s3infra.Store
	Mailer               smtp.Mailer
	SMSSender            sns.SMSSender
	JWTProvider          *jwtinfra.Provider
	OAuthVerifier        oauth.Verifier
	Certifier            pass.Certifier
	Wire                 bankwire.Wire
	Gateway              paygate.Gateway

	// IdentityLink is shared with the expiry sweeper in main; when nil the
	// router builds its own.
	IdentityLink identitylink.Service
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		UserRepo:        deps.UserRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenDur,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo: deps.UserRepo,
		Sessions: sessionSvc,
		Mailer:   deps.Mailer,
	})
	oauthSvc := oauthgw.NewService(oauthgw.ServiceDeps{
		Verifier: deps.OAuthVerifier,
		UserRepo: deps.UserRepo,
		Sessions: sessionSvc,
	})
	linkSvc := deps.IdentityLink
	if linkSvc == nil {
		linkSvc = identitylink.NewService(identitylink.ServiceDeps{
			Certifier: deps.Certifier,
			UserRepo:  deps.UserRepo,
			Sessions:  sessionSvc,
			FlowTTL:   cfg.CertFlowTTL,
		})
	}
	bankSvc := bankverify.NewService(bankverify.ServiceDeps{
		VerificationRepo: deps.BankVerificationRepo,
		AccountRepo:      deps.BankAccountRepo,
		UserRepo:         deps.UserRepo,
		Wire:             deps.Wire,
		SMSSender:        deps.SMSSender,
		SessionTTL:       cfg.BankVerifyTTL,
	})
	paymentSvc := payment.NewService(payment.ServiceDeps{
		PaymentRepo:      deps.PaymentRepo,
		NotificationRepo: deps.NotificationRepo,
		Gateway:          deps.Gateway,
	})
	depositSvc := deposit.NewService(deposit.ServiceDeps{
		DepositRepo:      deps.DepositRepo,
		NotificationRepo: deps.NotificationRepo,
	})
	settlementSvc := settlement.NewService(settlement.ServiceDeps{
		SettlementRepo:   deps.SettlementRepo,
		PaymentRepo:      deps.PaymentRepo,
		AccountRepo:      deps.BankAccountRepo,
		NotificationRepo: deps.NotificationRepo,
		Wire:             deps.Wire,
		Archiver:         deps.S3Store,
		CommissionBPS:    cfg.CommissionBPS,
	})
	notifSvc := notification.NewService(deps.NotificationRepo)

	healthH := handler.NewHealthHandler()
	oauthH := handler.NewOAuthHandler(oauthSvc, cfg.FrontendBase)
	sessionH := handler.NewSessionHandler(sessionSvc, userSvc)
	userH := handler.NewUserHandler(userSvc)
	linkH := handler.NewIdentityLinkHandler(linkSvc)
	bankH := handler.NewBankVerifyHandler(bankSvc)
	paymentH := handler.NewPaymentHandler(paymentSvc)
	depositH := handler.NewDepositHandler(depositSvc)
	settlementH := handler.NewSettlementHandler(settlementSvc)
	notifH := handler.NewNotificationHandler(notifSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Get("/oauth/{provider}/callback", oauthH.Callback)
		r.Get("/oauth/resolve", oauthH.Resolve)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		// Identity-link runs before a session exists: the caller holds only a
		// pending identity from the OAuth redirect.
		r.With(sensitiveRL.Limit).Post("/identity-link/start", linkH.Start)
		r.With(sensitiveRL.Limit).Post("/identity-link/certify", linkH.Certify)
		r.With(sensitiveRL.Limit).Post("/identity-link/confirm", linkH.Confirm)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			// Any authenticated user
			r.Get("/users/me", userH.Me)
			r.Put("/users/{id}", userH.Update)
			r.Post("/bank-verification/start", bankH.Start)
			r.Post("/bank-verification/account", bankH.SubmitAccount)
			r.Post("/bank-verification/issued", bankH.Issued)
			r.Post("/bank-verification/confirm", bankH.Confirm)
			r.Get("/bank-verification", bankH.Current)
			r.Get("/payments", paymentH.List)
			r.Get("/payments/{id}", paymentH.Get)
			r.Post("/payments/{id}/retry", paymentH.Retry)
			r.Get("/deposits", depositH.List)
			r.Get("/deposits/{id}", depositH.Get)
			r.Get("/settlements", settlementH.List)
			r.Get("/settlements/{id}", settlementH.Get)
			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Delete("/users/{id}", userH.Delete)
				r.Post("/deposits/{id}/outcome", depositH.ApplyOutcome)
				r.Post("/settlements/close", settlementH.ClosePeriod)
				r.Post("/settlements/{id}/run", settlementH.Run)
			})
		})
	})

	return r
}
