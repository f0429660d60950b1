// Package server exposes the finder as a JSON API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/optimode/emailfinder/config"
)

// Server serves POST /api/find-emails and GET /ping.
type Server struct {
	cfg    config.ServerConfig
	log    logrus.FieldLogger
	engine *gin.Engine
}

func New(finder Finder, cfg config.ServerConfig, log logrus.FieldLogger) *Server {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	s := &Server{cfg: cfg, log: log, engine: gin.New()}
	s.engine.Use(gin.Recovery(), s.accessLog())

	api := s.engine.Group("/api")
	api.Use(s.timeout(), (&ErrorHandler{Logger: log}).Handler())
	(&emailsController{finder: finder}).InitRoute(api, "/find-emails")

	s.engine.GET("/ping", func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "pong")
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run listens until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("listen", s.cfg.Listen).Info("http api listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server: shutdown")
	}
	return nil
}

func (s *Server) timeout() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if s.cfg.RequestTimeout <= 0 {
			ctx.Next()
			return
		}
		c, cancel := context.WithTimeout(ctx.Request.Context(), s.cfg.RequestTimeout)
		defer cancel()
		ctx.Request = ctx.Request.WithContext(c)
		ctx.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		s.log.WithFields(logrus.Fields{
			"method":  ctx.Request.Method,
			"path":    ctx.Request.URL.Path,
			"status":  ctx.Writer.Status(),
			"latency": time.Since(start),
		}).Debug("request")
	}
}
