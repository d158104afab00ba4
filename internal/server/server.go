package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/pipeline"
	"github.com/spigell/bidwin/internal/tender"
)

const shutdownTimeout = 10 * time.Second

// Pipeline is the set of stage operations exposed over HTTP.
type Pipeline interface {
	Analyze(ctx context.Context, id int) (*pipeline.Result, error)
	Price(ctx context.Context, id int) (*pipeline.Result, error)
	Propose(ctx context.Context, id int) (*pipeline.ProposalResult, error)
	Ask(ctx context.Context, id int, question string) (string, error)
	Register(ctx context.Context, reg pipeline.Registration) (*tender.RFP, bool, error)
}

// Catalog lists stored RFPs and products.
type Catalog interface {
	ListRFPs(ctx context.Context) ([]*tender.RFP, error)
	ListProducts(ctx context.Context) ([]tender.Product, error)
}

// Files resolves generated proposal files by name.
type Files interface {
	Path(name string) (string, error)
}

// Config holds the HTTP server settings.
type Config struct {
	Addr      string
	UploadDir string
}

// Server exposes the tender pipeline as a JSON API.
type Server struct {
	cfg      Config
	pipeline Pipeline
	catalog  Catalog
	files    Files
	logger   *zap.Logger
	engine   *gin.Engine
}

func New(cfg Config, p Pipeline, catalog Catalog, files Files, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:      cfg,
		pipeline: p,
		catalog:  catalog,
		files:    files,
		logger:   logger,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(corsConfig()))

	r.GET("/health", s.health)
	r.GET("/api/products", s.listProducts)

	sales := r.Group("/api/agents/sales")
	sales.GET("/rfps", s.listRFPs)
	sales.POST("/upload", s.upload)

	r.POST("/api/agents/technical/:id/analyze", s.analyze)
	r.POST("/api/agents/pricing/:id/calculate", s.calculate)

	mainAgent := r.Group("/api/agents/main")
	mainAgent.POST("/:id/generate-proposal", s.generateProposal)
	mainAgent.GET("/download/:filename", s.download)
	mainAgent.POST("/:id/chat", s.chat)

	return r
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowAllOrigins = true
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Content-Length", "Accept"}
	return cfg
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server started", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("http server stopping")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
