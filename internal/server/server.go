// Package server exposes the area and sensor registries and the current
// entity states over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	ttlcache "github.com/jellydator/ttlcache/v2"
	"go.uber.org/zap"

	"github.com/hieulq/nestup-evn/internal/entity"
	"github.com/hieulq/nestup-evn/internal/evn"
	"github.com/hieulq/nestup-evn/internal/models"
	"github.com/hieulq/nestup-evn/internal/sensor"
	"github.com/hieulq/nestup-evn/internal/snapshot"
)

type Options struct {
	Addr            string
	Area            evn.Area
	CustomerID      string
	RefreshInterval time.Duration
	StateTTL        time.Duration
}

type Server struct {
	opts        Options
	source      snapshot.Source
	descriptors []sensor.Descriptor
	states      *ttlcache.Cache
	server      *http.Server
	logger      *zap.Logger
	now         func() time.Time

	mu          sync.RWMutex
	lastRefresh time.Time
	lastErr     error
}

func New(opts Options, source snapshot.Source, logger *zap.Logger) (*Server, error) {
	if opts.RefreshInterval <= 0 {
		return nil, errors.New("server: refresh interval must be positive")
	}
	id, err := evn.NormalizeCustomerID(opts.CustomerID)
	if err != nil {
		return nil, err
	}
	opts.CustomerID = id

	states := ttlcache.NewCache()
	if err := states.SetTTL(opts.StateTTL); err != nil {
		return nil, fmt.Errorf("server: state ttl: %w", err)
	}
	// Reads must not keep stale states alive.
	states.SkipTTLExtensionOnHit(true)

	s := &Server{
		opts:        opts,
		source:      source,
		descriptors: sensor.Descriptors(),
		states:      states,
		logger:      logger,
		now:         time.Now,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog())
	s.routes(router)

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Refresh loads the snapshot and replaces the cached entity states. Entities
// whose values could not be read are stored as unavailable.
func (s *Server) Refresh(ctx context.Context) error {
	data, err := s.source.Load(ctx)
	if err != nil {
		s.recordRefresh(err)
		return err
	}

	entities, buildErr := entity.Build(s.opts.Area, s.opts.CustomerID, s.descriptors, data, s.now())
	for _, e := range entities {
		if err := s.states.Set(e.EntityID, e); err != nil {
			err = fmt.Errorf("storing %s: %w", e.EntityID, err)
			s.recordRefresh(err)
			return err
		}
	}
	s.recordRefresh(buildErr)
	return buildErr
}

func (s *Server) recordRefresh(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.lastRefresh = s.now()
	}
	s.lastErr = err
}

// Run refreshes on every interval and serves HTTP until ctx is done. The
// refresh loop has stopped by the time Run returns.
func (s *Server) Run(ctx context.Context) error {
	loopCtx, stopLoop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.refreshLoop(loopCtx)
	}()
	defer wg.Wait()
	defer stopLoop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	for ctx.Err() == nil {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Warn("unable to refresh EVN states", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close releases the state cache
func (s *Server) Close() {
	if err := s.states.Close(); err != nil {
		s.logger.Warn("failed to close state cache", zap.Error(err))
	}
}

// currentStates returns the unexpired states in descriptor order
func (s *Server) currentStates() []models.Entity {
	out := []models.Entity{}
	for _, d := range s.descriptors {
		v, err := s.states.Get(entity.EntityID(s.opts.CustomerID, d.Key))
		if err != nil {
			continue
		}
		out = append(out, v.(models.Entity))
	}
	return out
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		s.logger.Debug("http request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
