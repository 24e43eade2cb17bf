package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/airticket/api"
	"github.com/Domenick1991/airticket/config"
	"github.com/Domenick1991/airticket/internal/domain"
	"github.com/Domenick1991/airticket/internal/metrics"
	"github.com/Domenick1991/airticket/internal/middleware"
	"github.com/Domenick1991/airticket/internal/service/booking"
	"github.com/Domenick1991/airticket/internal/service/flights"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
)

const (
	swaggerSpecFile = "airticket.swagger.json"
	shutdownTimeout = 5 * time.Second
)

type Services struct {
	Flights    flights.FlightUseCase
	Checkout   booking.CheckoutUseCase
	Reconciler api.NotificationReconciler
	Tokens     middleware.TokenValidator
	Metrics    *metrics.Metrics
}

// Run serves the HTTP API and blocks until ctx is cancelled or the server fails.
func Run(ctx context.Context, cfg *config.Config, svc Services, logger *logrus.Logger) error {
	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewRouter(cfg, svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("address", cfg.HTTP.Address).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down HTTP server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func NewRouter(cfg *config.Config, svc Services, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger))
	router.Use(cors.New(corsConfig(cfg.HTTP.AllowedOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	if svc.Metrics != nil {
		router.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))
	}
	if cfg.HTTP.SwaggerDir != "" {
		router.Static("/docs", cfg.HTTP.SwaggerDir)
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/docs/"+swaggerSpecFile))))
	}

	v1 := router.Group("/api/v1")
	api.NewFlightHandler(svc.Flights, logger).Register(v1.Group("/flights"))

	authed := v1.Group("", middleware.Auth(svc.Tokens, logger))
	api.NewTicketHandler(svc.Checkout, logger).Register(authed.Group("/tickets"))
	api.NewAdminHandler(svc.Checkout, logger).Register(authed.Group("/admin", middleware.RequireRole(domain.RoleAdmin)))

	api.NewPaymentHandler(svc.Reconciler, logger).Register(router.Group("/payment"))

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	c.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}
	if len(origins) == 0 || (len(origins) == 1 && strings.TrimSpace(origins[0]) == "*") {
		c.AllowAllOrigins = true
		return c
	}
	c.AllowOrigins = origins
	return c
}
