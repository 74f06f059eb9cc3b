// Package server exposes a node over HTTP so bridges can sign and read
// against it remotely.
package server

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"task-ledger/internal/domain"
	"task-ledger/internal/logging"
	"task-ledger/internal/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AccountHeader carries the signing account on requests that act as one
const AccountHeader = "X-Ledger-Account"

// Node is the node surface the HTTP API serves
type Node interface {
	ChainID(ctx context.Context) (uint64, error)
	BlockNumber(ctx context.Context) (int64, error)
	Submit(ctx context.Context, from domain.Address, call domain.Call) (string, error)
	Receipt(ctx context.Context, txID string) (*domain.Receipt, error)
	GetMyTasks(ctx context.Context, account domain.Address) ([]domain.Task, error)
	GetTask(ctx context.Context, account domain.Address, taskID int64) (*domain.Task, error)
	Events(ctx context.Context, owner domain.Address) ([]domain.Event, error)
}

// Options configures the HTTP server
type Options struct {
	Addr         string
	Mode         string // gin mode: debug, release or test
	AllowOrigins []string // empty allows any origin
	Logger       *zap.SugaredLogger
	Validator    *validation.TaskValidator
}

// Server serves the node API
type Server struct {
	node      Node
	logger    *zap.SugaredLogger
	validator *validation.TaskValidator
	engine    *gin.Engine
	addr      string
}

// New builds the router for node
func New(node Node, opts Options) *Server {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Validator == nil {
		opts.Validator = validation.NewTaskValidator()
	}

	s := &Server{
		node:      node,
		logger:    opts.Logger,
		validator: opts.Validator,
		engine:    gin.New(),
		addr:      opts.Addr,
	}

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", AccountHeader},
		ExposeHeaders: []string{"Content-Length", RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(opts.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opts.AllowOrigins
	}
	s.engine.Use(cors.New(corsConfig))
	s.engine.Use(RequestLogger(s.logger))
	s.engine.Use(gin.Recovery())

	s.registerRoutes()
	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("node API listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Infow("node API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/chain", s.getChain)
		v1.POST("/transactions", s.submitTransaction)
		v1.GET("/transactions/:id", s.getReceipt)
		v1.GET("/tasks", s.listTasks)
		v1.GET("/tasks/:id", s.getTask)
		v1.GET("/events", s.listEvents)
	}
}
