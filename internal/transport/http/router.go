package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/plateping/api/internal/application/auth"
	"github.com/plateping/api/internal/application/guard"
	"github.com/plateping/api/internal/application/otp"
	"github.com/plateping/api/internal/config"
	"github.com/plateping/api/internal/infrastructure/apple"
	"github.com/plateping/api/internal/infrastructure/dynamo"
	jwtinfra "github.com/plateping/api/internal/infrastructure/jwt"
	"github.com/plateping/api/internal/infrastructure/kv"
	"github.com/plateping/api/internal/infrastructure/line"
	"github.com/plateping/api/internal/infrastructure/sns"
	"github.com/plateping/api/internal/transport/http/handler"
	appmiddleware "github.com/plateping/api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      *dynamo.UserRepo
	KVStore       kv.Store
	SMSSender     sns.SMSSender
	JWTProvider   *jwtinfra.Provider
	LineClient    *line.Client
	AppleVerifier *apple.Verifier
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

	// 5 requests/second, burst of 10 — applied to credential endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	loginGuard := guard.New(deps.KVStore)
	otpEngine := otp.NewEngine(deps.KVStore, loginGuard, deps.SMSSender)

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:  deps.UserRepo,
		OTPEngine: otpEngine,
		Guard:     loginGuard,
		Line:      deps.LineClient,
		Apple:     deps.AppleVerifier,
		Signer:    deps.JWTProvider,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, cfg.OTPEchoEnabled)
	lineH := handler.NewLineHandler(authSvc, cfg.AppDeeplinkScheme)
	appleH := handler.NewAppleHandler(authSvc)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/check-phone/{phone}", authH.CheckPhone)

			r.Group(func(r chi.Router) {
				r.Use(sensitiveRL.Limit)

				r.Post("/verify-phone", authH.VerifyPhone)
				r.Post("/login", authH.Login)
				r.Post("/password-login", authH.PasswordLogin)
				r.Post("/license-plate-login", authH.PlateLogin)
				r.Post("/set-password", authH.SetPassword)
				r.Post("/reset-password", authH.ResetPassword)
				r.Post("/apple/login", appleH.Login)
				r.Post("/line/login", lineH.Login)
				r.Post("/line/token-login", lineH.TokenLogin)
			})

			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.Auth(deps.JWTProvider))
				r.Get("/session", authH.Session)
			})

			r.Get("/line/url", lineH.AuthorizeURL)
			r.Get("/line/mobile-url", lineH.MobileAuthorizeURL)
			r.Get("/line/mobile-callback", lineH.MobileCallback)

			// Test hook: clears the daily OTP issuance cap. Never mounted in
			// production, so it 404s there.
			if !cfg.IsProduction() {
				r.Post("/verify-reset", authH.VerifyReset)
			}
		})
	})

	return r
}
