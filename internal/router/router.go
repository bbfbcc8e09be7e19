package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiwari-pos/floor/internal/config"
	"github.com/kiwari-pos/floor/internal/database"
	"github.com/kiwari-pos/floor/internal/events"
	"github.com/kiwari-pos/floor/internal/handler"
	"github.com/kiwari-pos/floor/internal/identity"
	mw "github.com/kiwari-pos/floor/internal/middleware"
	"github.com/kiwari-pos/floor/internal/service"
	"github.com/kiwari-pos/floor/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// cols narrows bill statements to the columns the live schema has; pub
// receives domain events after each committed mutation.
func New(cfg *config.Config, pool *pgxpool.Pool, cols database.BillColumns, names *identity.Directory, hub *ws.Hub, pub events.Publisher) (chi.Router, error) {
	limit, err := mw.RateLimit(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{room}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	queries := func(db database.DBTX) *database.Queries {
		return database.New(db).WithBillColumns(cols)
	}
	tableService := service.NewTableService(pool, func(db database.DBTX) service.TableStore { return queries(db) })
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore { return queries(db) })
	billingService := service.NewBillingService(pool, func(db database.DBTX) service.BillingStore { return queries(db) }, names)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(limit)
		r.Use(middleware.Timeout(cfg.TxTimeout))
		r.Use(mw.Authenticate(cfg.JWTSecret))

		handler.NewAuthHandler(names).RegisterRoutes(r)

		tableHandler := handler.NewTableHandler(tableService, pub)
		r.Route("/tables", tableHandler.RegisterRoutes)

		orderHandler := handler.NewOrderHandler(orderService, pub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		billHandler := handler.NewBillHandler(billingService, pub)
		r.Route("/bills", billHandler.RegisterRoutes)
	})

	slog.Info("router initialized", "rate_limit", cfg.RateLimit, "tx_timeout", cfg.TxTimeout)
	return r, nil
}
