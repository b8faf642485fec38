package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	businessrepository "offerhub/internal/business/repository"
	claimrepository "offerhub/internal/claim/repository"
	claimservice "offerhub/internal/claim/service"
	claimhttp "offerhub/internal/claim/transport/http"
	"offerhub/internal/config"
	"offerhub/internal/metrics"
	offerrepository "offerhub/internal/offer/repository"
	offerservice "offerhub/internal/offer/service"
	offerhttp "offerhub/internal/offer/transport/http"
	"offerhub/internal/redemptioncode"
	"offerhub/internal/storage/memory"
	"offerhub/internal/token"
	userrepository "offerhub/internal/user/repository"
	"offerhub/pkg/db"
	"offerhub/pkg/middleware"
)

// stores - репозитории выбранного драйвера
type stores struct {
	offers     offerservice.OfferRepository
	claims     claimservice.ClaimRepository
	businesses interface {
		claimservice.BusinessRepository
		offerservice.BusinessRepository
	}
	users claimservice.UserRepository
}

func main() {
	cfg := config.Load()
	log := cfg.Logger()
	log.WithField("store", cfg.StoreDriver).Info("offerhub API starting")

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	metrics.InitMetrics()

	st, database, err := openStores(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("store initialization failed")
	}
	if database != nil {
		defer database.Close()
	}

	// --- ИНИЦИАЛИЗАЦИЯ СЛОЁВ ---
	tokens := token.NewGenerator()
	tokens.OnCollision = metrics.TokenCollisionsTotal.Inc
	encoder := redemptioncode.NewEncoder(cfg.PublicBaseURL, cfg.QRSize)

	offerService := offerservice.NewService(st.offers, st.businesses, log)
	claimService := claimservice.NewService(st.offers, st.claims, st.businesses, tokens, encoder, log, cfg.TokenMaxAttempts)
	verifier := claimservice.NewVerifier(st.offers, st.claims, st.businesses, st.users, log)
	history := claimservice.NewHistory(st.offers, st.claims, st.users, log)

	offerHandler := offerhttp.NewHandler(offerService, log)
	claimHandler := claimhttp.NewHandler(claimService, verifier, history, st.businesses, log)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)
	stopCleanup := make(chan struct{})
	go limiter.Run(stopCleanup)

	// --- РОУТЕР ---
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.MetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Публичные роуты
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if database != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := database.PingContext(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.Write([]byte("OK"))
	})
	r.With(middleware.BasicAuth(cfg.MetricsUser, cfg.MetricsPassword)).Handle("/metrics", promhttp.Handler())

	// Защищённая группа маршрутов
	r.Group(func(pr chi.Router) {
		pr.Use(limiter.Middleware)
		pr.Use(middleware.JWTAuth(cfg.JWTSecret))
		pr.Use(middleware.ValidateRequest)

		offerHandler.Routes(pr)
		claimHandler.Routes(pr)
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown на сигналы ОС
	done := make(chan struct{})
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		log.Info("shutdown signal received, starting graceful shutdown")
		close(stopCleanup)
		shutdownServer(server, log)
		close(done)
	}()

	log.WithField("addr", cfg.HTTPAddr).Info("server running")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("server failed")
	}
	<-done
}

func openStores(cfg *config.Config, log *logrus.Logger) (*stores, *sql.DB, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store: data is lost on restart, users and businesses must be seeded")
		m := memory.New()
		return &stores{
			offers:     m.Offers(),
			claims:     m.Claims(),
			businesses: m.Businesses(),
			users:      m.Users(),
		}, nil, nil
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, nil, err
	}
	log.Info("connected to PostgreSQL, schema up to date")

	return &stores{
		offers:     offerrepository.NewPostgresOfferRepository(database),
		claims:     claimrepository.NewPostgresClaimRepository(database),
		businesses: businessrepository.NewPostgresBusinessRepository(database),
		users:      userrepository.NewPostgresUserRepository(database),
	}, database, nil
}

func shutdownServer(server *http.Server, log *logrus.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown failed")
	}

	log.Info("server stopped")
}
