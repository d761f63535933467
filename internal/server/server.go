package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/accreditation/internal/accreditation"
	accreditationdomain "github.com/smallbiznis/accreditation/internal/accreditation/domain"
	"github.com/smallbiznis/accreditation/internal/authorization"
	"github.com/smallbiznis/accreditation/internal/config"
	"github.com/smallbiznis/accreditation/internal/notification"
	"github.com/smallbiznis/accreditation/internal/observability"
	obsmiddleware "github.com/smallbiznis/accreditation/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/accreditation/internal/observability/metrics"
	obstracing "github.com/smallbiznis/accreditation/internal/observability/tracing"
	"github.com/smallbiznis/accreditation/internal/ratelimit"
	"github.com/smallbiznis/accreditation/internal/salepoint"
	"github.com/smallbiznis/accreditation/internal/user"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	ratelimit.Module,
	salepoint.Module,
	user.Module,
	notification.Module,
	accreditation.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

type Server struct {
	engine           *gin.Engine
	cfg              config.Config
	log              *zap.Logger
	accreditationSvc accreditationdomain.Service
	authzSvc         authorization.Service
	tokens           *TokenVerifier
}

type ServerParams struct {
	fx.In

	Gin              *gin.Engine
	Cfg              config.Config
	Log              *zap.Logger
	AccreditationSvc accreditationdomain.Service
	AuthzSvc         authorization.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		log:              p.Log.Named("http.server"),
		accreditationSvc: p.AccreditationSvc,
		authzSvc:         p.AuthzSvc,
		tokens:           NewTokenVerifier(p.Cfg.AuthJWTSecret, p.Cfg.AuthJWTIssuer),
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	accreditations := api.Group("/accreditations", s.AuthRequired())
	accreditations.POST("", s.CreateAccreditation)
	accreditations.GET("/admin", s.authorize(authorization.ObjectAccreditation, authorization.ActionAccreditationList), s.ListAccreditations)
	accreditations.GET("/admin/:id", s.authorize(authorization.ObjectAccreditation, authorization.ActionAccreditationView), s.GetAccreditation)
	accreditations.GET("/:id", s.GetOwnAccreditation)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
