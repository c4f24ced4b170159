// Package httpapi exposes recordings and the panel bridge on a local HTTP
// server.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"recordpanel/internal/artifact"
	"recordpanel/internal/domain"
)

// StatusFunc reports the recorder status for /healthz.
type StatusFunc func() domain.Status

// NewRouter mounts the artifact routes, the panel websocket and /healthz.
// Callers pick the gin mode.
func NewRouter(artifacts *artifact.Handler, panel http.Handler, status StatusFunc, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"ok": true}
		if status != nil {
			body["status"] = status()
		}
		c.JSON(http.StatusOK, body)
	})
	if artifacts != nil {
		artifacts.Register(r)
	}
	if panel != nil {
		r.GET("/panel/ws", gin.WrapH(panel))
	}
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// Server is the local HTTP listener.
type Server struct {
	srv      *http.Server
	listener net.Listener
	log      *zap.Logger
}

// Listen binds addr. Use port 0 to pick a free port.
func Listen(addr string, handler http.Handler, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		srv: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		log:      log,
	}, nil
}

// BaseURL is the http address clients should use.
func (s *Server) BaseURL() string {
	return "http://" + s.listener.Addr().String()
}

// Serve blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.Serve(s.listener)
	}()
	s.log.Info("http server listening", zap.String("url", s.BaseURL()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}

// Close stops the server immediately, whether or not Serve was called.
func (s *Server) Close() error {
	err := s.srv.Close()
	if closeErr := s.listener.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) && err == nil {
		err = closeErr
	}
	return err
}
