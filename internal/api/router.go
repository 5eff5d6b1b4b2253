package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"seating-backend/internal/events"
	"seating-backend/internal/metrics"
	"seating-backend/internal/mw"
	"seating-backend/internal/store"
)

// RouterConfig carries the HTTP-facing settings of the service.
type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	CacheTTL       time.Duration
	NormalizePhone bool
	Publisher      events.Publisher
	Metrics        *metrics.Metrics
	Now            func() time.Time
}

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestID())

	handler := NewHandler(s, Options{
		NormalizePhone: cfg.NormalizePhone,
		Publisher:      cfg.Publisher,
		Now:            cfg.Now,
	})

	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	// Visitors idle for ten minutes are forgotten.
	rateLimiter := mw.RateLimiter(mw.NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst, 10*time.Minute))

	// Floor-plan reads are cached until the next successful write.
	responses := mw.NewResponseCache(cfg.CacheTTL)
	caching := responses.Cache()

	r.GET("/healthz", handler.Healthz)
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	api := r.Group("/api")
	api.Use(rateLimiter, responses.FlushOnWrite())
	{
		api.GET("/tables", caching, handler.ListTables)
		api.POST("/tables", handler.CreateTable)
		api.GET("/tables/:id", caching, handler.GetTable)
		api.PUT("/tables/:id", handler.UpdateTable)
		api.DELETE("/tables/:id", handler.DeleteTable)

		api.POST("/table_sets", handler.CreateTableSet)
		api.GET("/table_sets/:id", caching, handler.GetTableSet)
		api.POST("/table_sets/:id/split", handler.SplitTableSet)

		api.POST("/layouts", handler.CreateLayout)
		api.GET("/layouts/:layout_id", caching, handler.GetLayout)
		api.POST("/sections", handler.CreateSection)

		slot := api.Group("/layouts/:layout_id/sections/:number")
		{
			slot.PUT("", handler.AssignSection)
			slot.DELETE("", handler.RemoveSection)
			slot.PUT("/server", handler.SetServerName)
			slot.DELETE("/server", handler.ClearServerName)
			slot.GET("/tables", caching, handler.SlotTables)
			slot.POST("/tables/:table_id", handler.PlaceTable)
			slot.DELETE("/tables/:table_id", handler.RemoveTable)
			slot.POST("/table_sets/:table_set_id", handler.PlaceTableSet)
			slot.DELETE("/table_sets/:table_set_id", handler.RemoveTableSet)
		}

		api.POST("/customers", handler.CreateCustomer)
		api.GET("/customers/:id", handler.GetCustomer)

		api.GET("/reservations", handler.ListReservations)
		api.POST("/reservations", handler.CreateReservation)
		api.GET("/reservations/:id", handler.GetReservation)
		api.POST("/reservations/:id/cancel", handler.CancelReservation)
		api.POST("/reservations/:id/seat", handler.SeatReservation)
		api.POST("/reservations/:id/complete", handler.CompleteReservation)
		api.PUT("/reservations/:id/tables", handler.ReassignTables)
	}

	return r
}
