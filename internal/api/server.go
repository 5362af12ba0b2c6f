package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/xenocrm/crm-backend/internal/audience"
	"github.com/xenocrm/crm-backend/internal/auth"
	"github.com/xenocrm/crm-backend/internal/delivery"
	"github.com/xenocrm/crm-backend/internal/store"
	"github.com/xenocrm/crm-backend/internal/telemetry"
)

// Server holds the HTTP surface and its collaborators.
type Server struct {
	store       store.Store
	audience    *audience.Evaluator
	log         *delivery.Log
	runner      *delivery.Runner
	sim         *delivery.Simulator
	verifier    auth.Verifier
	logger      *zap.Logger
	adminAPIKey string
	rateLimit   int
}

// Options carries the collaborators for NewServer.
type Options struct {
	Store       store.Store
	Audience    *audience.Evaluator
	Log         *delivery.Log
	Runner      *delivery.Runner
	Simulator   *delivery.Simulator
	Verifier    auth.Verifier
	Logger      *zap.Logger
	AdminAPIKey string
	RateLimit   int
}

// NewServer creates the API server.
func NewServer(opts Options) *Server {
	return &Server{
		store:       opts.Store,
		audience:    opts.Audience,
		log:         opts.Log,
		runner:      opts.Runner,
		sim:         opts.Simulator,
		verifier:    opts.Verifier,
		logger:      opts.Logger,
		adminAPIKey: opts.AdminAPIKey,
		rateLimit:   opts.RateLimit,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(telemetry.Middleware)
	// Delivery batches can outlive a short handler budget; the batch itself
	// carries its own deadline, the HTTP timeout only bounds the rest.
	r.Use(middleware.Timeout(60 * time.Second))
	if s.rateLimit > 0 {
		r.Use(httprate.LimitByIP(s.rateLimit, time.Minute))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate(s.verifier))

		r.Get("/user", s.handleCurrentUser)
		r.Post("/ai/suggest-messages", s.handleSuggestMessages)
		r.Post("/delivery-receipt", s.handleDeliveryReceipt)

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", s.authAdmin(s.handleCreateCustomer))
			r.Post("/filter", s.handleFilterCustomers)
		})

		r.Post("/orders", s.authAdmin(s.handleCreateOrder))

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/", s.handleListCampaigns)
			r.Post("/", s.authAdmin(s.handleCreateCampaign))
			r.Get("/stats/{campaignID}", s.handleCampaignStats)
			r.Post("/deliver", s.authAdmin(s.handleDeliverCampaign))
		})
	})

	// The vendor simulator is the "external" transport; it lives on its own
	// prefix outside /api, like the real vendor callback would.
	r.Post("/vendor/send", s.handleVendorSend)

	return r
}

// authAdmin protects write operations with the admin API key.
func (s *Server) authAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		got := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if got == "" {
			UnauthorizedError(w, r, "missing bearer token")
			return
		}
		if !auth.VerifyTokenConstantTime(got, s.adminAPIKey) {
			ForbiddenError(w, r, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	}
}
