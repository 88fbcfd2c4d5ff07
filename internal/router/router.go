package router

import (
	"time"

	"stockledger/internal/config"
	"stockledger/internal/handler"
	"stockledger/internal/middleware"
	"stockledger/internal/repository"
	"stockledger/internal/service"
	"stockledger/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	inventoryRepo := repository.NewInventoryRepository(db)
	movementRepo := repository.NewMovementRepository(db)
	reservationRepo := repository.NewReservationRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	adjustSvc := service.NewAdjustmentService(inventoryRepo, movementRepo, dispatcher, cfg.AdjustMaxRetries)
	reservationSvc := service.NewReservationService(inventoryRepo, reservationRepo, adjustSvc, cfg.ReservationTTLMinutes)
	batchSvc := service.NewBatchService(adjustSvc)
	alertSvc := service.NewAlertService(inventoryRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	stockH := handler.NewStockHandler(adjustSvc, batchSvc, inventoryRepo, cfg.OverstockMultiplier)
	reservationsH := handler.NewReservationsHandler(reservationSvc)
	movementsH := handler.NewMovementsHandler(movementRepo)
	alertsH := handler.NewAlertsHandler(alertSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: operator, supervisor, admin — declared per-endpoint

		// Stock reads — any authenticated role
		v1.GET("/stock", middleware.RequireRole("operator", "supervisor", "admin"), stockH.List)
		v1.GET("/stock/:product_id", middleware.RequireRole("operator", "supervisor", "admin"), stockH.Get)

		// Quantity mutations — supervisor or admin
		v1.POST("/stock/adjust", middleware.RequireRole("supervisor", "admin"), stockH.Adjust)
		v1.POST("/stock/batch", middleware.RequireRole("supervisor", "admin"), stockH.ApplyBatch)

		// Reservations — checkout flows run as operator
		res := v1.Group("/reservations", middleware.RequireRole("operator", "supervisor", "admin"))
		{
			res.POST("", reservationsH.Reserve)
			res.GET("/:id", reservationsH.Get)
			res.DELETE("/:id", reservationsH.Release)
			res.POST("/:id/consume", reservationsH.Consume)
		}
		v1.GET("/stock/:product_id/reservations", middleware.RequireRole("operator", "supervisor", "admin"), reservationsH.ListByProduct)

		// Order-scoped shortcuts for checkout flows that only carry the order id
		orders := v1.Group("/orders", middleware.RequireRole("operator", "supervisor", "admin"))
		{
			orders.DELETE("/:order_id/reservations", reservationsH.ReleaseByOrder)
			orders.POST("/:order_id/consume", reservationsH.ConsumeByOrder)
		}

		// Manual sweep trigger for operational runbooks — admin only
		v1.POST("/sweep/reservations", middleware.RequireRole("admin"), reservationsH.Sweep)

		// Movement ledger — read-only audit surface
		v1.GET("/movements", middleware.RequireRole("supervisor", "admin"), movementsH.List)
		v1.GET("/movements/:product_id/summary", middleware.RequireRole("supervisor", "admin"), movementsH.Summary)

		// Stock alerts
		v1.GET("/alerts", middleware.RequireRole("supervisor", "admin"), alertsH.List)

		// Async pipeline depths for runbooks
		v1.GET("/workers/stats", middleware.RequireRole("admin"), handler.WorkerStats(rdb))
	}

	return r
}
