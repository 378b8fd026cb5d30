// Package http exposes the operational endpoints: health and Prometheus
// metrics. The sell flow itself never serves traffic.
package http

import (
	"context"
	gohttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/sell-engine/internal/config"
	"github.com/hxuan190/sell-engine/internal/http/middlewares"
)

type OpsServer struct {
	server *gohttp.Server
	conf   *config.GeneralConfig
}

func NewOpsServer(conf *config.GeneralConfig) *OpsServer {
	return &OpsServer{conf: conf}
}

// Start blocks until the server stops. Run it on its own goroutine.
func (svc *OpsServer) Start() error {
	if svc.conf.Env == config.ProdEnv {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(gohttp.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	svc.server = &gohttp.Server{
		Addr:    svc.conf.OpsHost + ":" + svc.conf.OpsPort,
		Handler: r,
	}
	log.Info().Str("host", svc.conf.OpsHost).Str("port", svc.conf.OpsPort).Msg("ops server started")

	if err := svc.server.ListenAndServe(); err != nil && err != gohttp.ErrServerClosed {
		return err
	}
	return nil
}

func (svc *OpsServer) Stop() error {
	if svc.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := svc.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("failed to stop ops server")
		return err
	}
	log.Info().Msg("ops server stopped gracefully")
	return nil
}
