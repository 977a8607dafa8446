package app

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/playvault/backend/internal/auth"
	"github.com/playvault/backend/internal/config"
	"github.com/playvault/backend/internal/fulfillment"
	"github.com/playvault/backend/internal/gamification"
	"github.com/playvault/backend/internal/middleware"
	"github.com/rs/cors"
)

// Routes groups what the HTTP surface is assembled from.
type Routes struct {
	Config       *config.Config
	Users        auth.UserEnsurer
	Gamification *gamification.Handler
	Fulfillment  *fulfillment.Handler
	Limiter      middleware.Limiter
}

func NewRouter(rt Routes) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recover, middleware.Logging)

	api := r.PathPrefix("/api").Subrouter()
	gh := rt.Gamification

	// Public routes
	api.HandleFunc("/leaderboard", gh.Leaderboard).Methods("GET")
	api.HandleFunc("/rewards", gh.Rewards).Methods("GET")
	api.HandleFunc("/games", gh.Games).Methods("GET")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(auth.Middleware(rt.Config.JWTSecret, rt.Users))
	protected.HandleFunc("/auth/user", gh.GetCurrentUser).Methods("GET")
	protected.Handle("/xp/add",
		middleware.RateLimit(rt.Limiter, "xp", rt.Config.XPRateLimitPerMinute)(http.HandlerFunc(gh.AddXP)),
	).Methods("POST")
	protected.HandleFunc("/streak/update", gh.UpdateStreak).Methods("POST")
	protected.HandleFunc("/activities", gh.Activities).Methods("GET")
	protected.HandleFunc("/rewards/redeem", gh.Redeem).Methods("POST")
	protected.HandleFunc("/redemptions", gh.Redemptions).Methods("GET")
	protected.HandleFunc("/daily-tasks", gh.DailyTasks).Methods("GET")
	protected.HandleFunc("/daily-tasks/complete", gh.CompleteDailyTask).Methods("POST")
	protected.HandleFunc("/milestones", gh.Milestones).Methods("GET")
	protected.HandleFunc("/referrals", gh.Referrals).Methods("GET")
	protected.HandleFunc("/referrals/claim", gh.ClaimReferral).Methods("POST")
	protected.HandleFunc("/referral-code", gh.ReferralCode).Methods("GET")

	// Operator routes
	if rt.Fulfillment != nil {
		ops := api.PathPrefix("/fulfillment").Subrouter()
		ops.Use(middleware.RequireOperatorKey(rt.Config.FulfillmentKeyHash))
		ops.HandleFunc("/redemptions/{id}/status", rt.Fulfillment.UpdateStatus).Methods("POST")
	}

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins:   rt.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.OperatorKeyHeader},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
