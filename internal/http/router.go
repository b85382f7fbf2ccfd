package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/pricelens/backend/internal/analysis"
	"github.com/pricelens/backend/internal/config"
	"github.com/pricelens/backend/internal/db"
	"github.com/pricelens/backend/internal/decision"
	"github.com/pricelens/backend/internal/http/handlers"
	"github.com/pricelens/backend/internal/http/middleware"
	"github.com/pricelens/backend/internal/metrics"
	"github.com/pricelens/backend/internal/ontology"

	_ "github.com/pricelens/backend/docs"
)

func Router(cfg config.Config, store *db.Store, repo *ontology.Repository, svc *analysis.Service, decisions *decision.Recorder, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Repo:      repo,
		Analysis:  svc,
		Decisions: decisions,
		Validator: validator.New(),
		Logger:    logger,
		Metrics:   metrics.Get(),

		DefaultPreset: cfg.DefaultPreset,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	org := r.Group("/api/orgs/:orgID")
	{
		org.GET("/segments", h.SegmentsList)
		org.GET("/tiers", h.TiersList)
		org.GET("/economics/latest", h.EconomicsLatest)
		org.GET("/patterns", h.PatternsList)
		org.GET("/audit", h.AuditList)
		org.GET("/audit/:entityType/:entityID", h.EntityTimeline)
		org.GET("/decisions", h.DecisionsList)
		org.GET("/decisions/:id", h.DecisionGet)
		org.GET("/decisions/:id/trail", h.DecisionTrail)
	}

	admin := org.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/setup", h.Setup)
		admin.POST("/analysis", h.RunAnalysis)
		admin.POST("/decisions", h.DecisionCreate)
		admin.POST("/decisions/:id/outcome", h.DecisionOutcome)
		admin.PUT("/segments/:id", h.SegmentUpdate)
		admin.POST("/segments/:id/archive", h.SegmentArchive)
		admin.GET("/runs/latest", h.RunsLatest)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
