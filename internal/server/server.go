package server

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/orderhook/internal/config"
	"github.com/smallbiznis/orderhook/internal/liveevents"
	"github.com/smallbiznis/orderhook/internal/observability"
	obsmiddleware "github.com/smallbiznis/orderhook/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/orderhook/internal/observability/metrics"
	obstracing "github.com/smallbiznis/orderhook/internal/observability/tracing"
	orderdomain "github.com/smallbiznis/orderhook/internal/order/domain"
	"github.com/smallbiznis/orderhook/internal/shopify"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewEngine(obsCfg observability.Config, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	log      *zap.Logger
	orderSvc orderdomain.Service
	verifier *shopify.Verifier
	hub      *liveevents.Hub
	metrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	Log      *zap.Logger
	OrderSvc orderdomain.Service
	Verifier *shopify.Verifier
	Hub      *liveevents.Hub
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		log:      p.Log.Named("server"),
		orderSvc: p.OrderSvc,
		verifier: p.Verifier,
		hub:      p.Hub,
		metrics:  p.Metrics,
	}
}

func (s *Server) RegisterRoutes() {
	s.engine.POST("/webhook", s.HandleWebhook)

	api := s.engine.Group("/api")
	api.GET("/orders", s.ListOrders)
	api.GET("/orders/:id", s.GetOrder)
	api.GET("/orders/:id/deliveries", s.ListOrderDeliveries)

	s.engine.GET("/events", s.StreamOrderEvents)
}

// RegisterUIRoutes serves the static dashboard when the directory exists.
func (s *Server) RegisterUIRoutes() {
	dir := s.cfg.StaticDir
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return
	}
	s.engine.Static("/ui", dir)
	s.engine.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusTemporaryRedirect, "/ui/")
	})
}

func RunHTTP(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
