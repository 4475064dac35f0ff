package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/richd0tcom/yaku/internal/domain"
	"github.com/richd0tcom/yaku/internal/worker"
)

var errNoScheduler = errors.New("server: scheduler is required")

type Server struct {
	config *ServerConfig
	worker *worker.Worker
	router *gin.Engine
	logger logrus.FieldLogger
}

func NewServer(options ...ConfigOption) (*Server, error) {
	config := &ServerConfig{
		WorkerCount: 1,
		BatchSize:   10,
		Port:        "8080",
		Logger:      logrus.StandardLogger(),
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return nil, err
		}
	}

	if config.Scheduler == nil {
		return nil, errNoScheduler
	}
	if config.MessageQueue != nil && config.DataStore == nil {
		return nil, errors.New("server: message queue mode needs a data store")
	}

	server := &Server{
		config: config,
		router: gin.Default(),
		logger: config.Logger,
	}
	if config.MessageQueue != nil {
		server.worker = worker.NewWorker(config.DataStore, config.Consumer, config.WorkerCount, config.BatchSize, config.Logger)
	}

	server.setupRoutes()
	return server, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	{
		api.GET("/records", s.handleGetRecords)
		api.POST("/ticks", s.handleTick)
	}
}

func (s *Server) handleGetRecords(c *gin.Context) {
	if s.config.DataStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no data store configured"})
		return
	}

	var query domain.RecordQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	query = query.Normalize()

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	results, err := s.config.DataStore.Latest(ctx, query.Limit)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read records")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get records"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleTick(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	record, err := s.config.Scheduler.Tick(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": err.Error(),
			"stage": domain.Stage(err),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"record": record})
}

// Start runs the scheduler, the queue worker when configured, and the HTTP server
// until ctx is cancelled or one of them fails.
func (s *Server) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.config.Scheduler.Run(gctx)
	})

	if s.worker != nil {
		g.Go(func() error {
			return s.worker.Start(gctx, s.config.MessageQueue)
		})
	}

	if s.config.Port != "" {
		server := &http.Server{
			Addr:    ":" + s.config.Port,
			Handler: s.router,
		}

		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})

		g.Go(func() error {
			s.logger.Infof("Server starting on port %s", s.config.Port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	return g.Wait()
}

func (s *Server) Close() error {
	var errs []error
	if s.config.MessageQueue != nil {
		errs = append(errs, s.config.MessageQueue.Close())
	}
	if s.config.DataStore != nil {
		errs = append(errs, s.config.DataStore.Close())
	}
	return errors.Join(errs...)
}
