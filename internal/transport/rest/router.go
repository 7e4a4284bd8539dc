package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/brpay/pix-gateway/internal/auth"
	"github.com/brpay/pix-gateway/internal/reconciler"
	"github.com/brpay/pix-gateway/internal/transaction"
	"github.com/brpay/pix-gateway/internal/transport/middleware"
	"github.com/brpay/pix-gateway/internal/transport/swagger"
	"github.com/brpay/pix-gateway/internal/user"
	"github.com/brpay/pix-gateway/internal/wallet"
	"github.com/go-chi/chi"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, allowedOrigins string, authHandler *auth.Handler, userHandler *user.Handler, transactionHandler *transaction.Handler, walletHandler *wallet.Handler, webhookHandler *reconciler.WebhookHandler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Acquirer callback authenticates via HMAC signature, not JWT.
		if webhookHandler != nil {
			r.Post("/pix/callback", webhookHandler.HandleSettlementCallback)
		}

		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/refresh", authHandler.RefreshToken)
				sr.Post("/logout", authHandler.Logout)
			})
		}

		if authHandler != nil {
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				if userHandler != nil {
					pr.Get("/users/me", userHandler.GetCurrentUser)
					pr.Put("/users/me/pix-key", userHandler.UpdatePixKey)
				}

				if transactionHandler != nil {
					pr.Route("/transactions", func(tr chi.Router) {
						tr.Post("/", transactionHandler.CreateTransaction)
						tr.Get("/", transactionHandler.GetUserTransactions)
						tr.Get("/{id}", transactionHandler.GetTransaction)
					})
				}

				if walletHandler != nil {
					pr.Route("/wallet", func(wr chi.Router) {
						wr.Get("/balance", walletHandler.GetBalance)
						wr.Get("/transactions", walletHandler.GetTransactions)
					})
				}
			})
		}
	})
}
