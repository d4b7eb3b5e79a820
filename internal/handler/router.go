package handler

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth       *AuthHandler
	Wallet     *WalletHandler
	Loans      *LoanHandler
	Repayments *RepaymentHandler
	Health     *HealthHandler
	Middleware *Middleware
}

// NewRouter mounts the API under /api. Every route except register, login
// and health requires a bearer token.
func NewRouter(h Handlers, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()
	mid := h.Middleware

	// Health check
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)
	router.HandleFunc("/health/ready", h.Health.Ready).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()

	public := api.PathPrefix("/auth").Subrouter()
	public.Use(mid.RateLimit("auth"))
	public.HandleFunc("/register", h.Auth.Register).Methods(http.MethodPost)
	public.HandleFunc("/login", h.Auth.Login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(mid.Authenticate, mid.RateLimit("mutations"))

	protected.HandleFunc("/auth/me", h.Auth.Me).Methods(http.MethodGet)

	protected.HandleFunc("/wallet/balance", h.Wallet.Balance).Methods(http.MethodGet)
	protected.HandleFunc("/wallet/transactions", h.Wallet.Transactions).Methods(http.MethodGet)
	protected.HandleFunc("/wallet/deposit", h.Wallet.Deposit).Methods(http.MethodPost)

	protected.HandleFunc("/loans/apply", h.Loans.Apply).Methods(http.MethodPost)
	protected.HandleFunc("/loans/my-loans", h.Loans.MyLoans).Methods(http.MethodGet)
	protected.HandleFunc("/loans/calculate-emi", h.Loans.CalculateEMI).Methods(http.MethodPost)
	protected.Handle("/loans/admin/pending", mid.RequireAdmin(http.HandlerFunc(h.Loans.Pending))).Methods(http.MethodGet)
	protected.Handle("/loans/admin/approve", mid.RequireAdmin(http.HandlerFunc(h.Loans.Decide))).Methods(http.MethodPost)
	protected.HandleFunc("/loans/{loanId}", h.Loans.Get).Methods(http.MethodGet)
	protected.HandleFunc("/loans/{loanId}/schedule", h.Loans.Schedule).Methods(http.MethodGet)

	protected.HandleFunc("/repayments/make-payment", h.Repayments.MakePayment).Methods(http.MethodPost)
	protected.HandleFunc("/repayments/loan/{loanId}", h.Repayments.ForLoan).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	return mid.RecoverPanic(mid.LogAccess(c.Handler(router)))
}
