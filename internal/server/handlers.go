package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	ttlcache "github.com/jellydator/ttlcache/v2"

	"github.com/hieulq/nestup-evn/internal/entity"
	"github.com/hieulq/nestup-evn/internal/evn"
	"github.com/hieulq/nestup-evn/internal/models"
)

const (
	healthEndpoint = "/health"
	areasEndpoint  = "/api/areas"
	sensorEndpoint = "/api/sensors"
	statesEndpoint = "/api/states"
)

func (s *Server) routes(router *gin.Engine) {
	router.GET(healthEndpoint, s.healthHandler)
	router.GET(areasEndpoint, s.areasHandler)
	router.GET(areasEndpoint+"/:name", s.areaHandler)
	router.GET(sensorEndpoint, s.sensorsHandler)
	router.GET(statesEndpoint, s.statesHandler)
	router.GET(statesEndpoint+"/:entity_id", s.stateHandler)
}

func (s *Server) healthHandler(ctx *gin.Context) {
	s.mu.RLock()
	lastRefresh, lastErr := s.lastRefresh, s.lastErr
	s.mu.RUnlock()

	body := gin.H{
		"status":   "ok",
		"area":     s.opts.Area.Name,
		"entities": len(s.currentStates()),
	}
	if !lastRefresh.IsZero() {
		body["last_refresh"] = lastRefresh
	}
	if lastErr != nil {
		body["status"] = "degraded"
		body["error"] = lastErr.Error()
	}
	ctx.JSON(http.StatusOK, body)
}

func (s *Server) areasHandler(ctx *gin.Context) {
	areas := evn.Areas()
	if ctx.Query("supported") == "true" {
		areas = evn.Supported()
	}
	ctx.JSON(http.StatusOK, entity.AreaViews(areas))
}

func (s *Server) areaHandler(ctx *gin.Context) {
	area, err := evn.Lookup(ctx.Param("name"))
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, entity.AreaView(area))
}

func (s *Server) sensorsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, entity.SensorViews(s.descriptors))
}

func (s *Server) statesHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, s.currentStates())
}

func (s *Server) stateHandler(ctx *gin.Context) {
	id := ctx.Param("entity_id")
	v, err := s.states.Get(id)
	if errors.Is(err, ttlcache.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "entity not found", "entity_id": id})
		return
	}
	if err != nil {
		ctx.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusOK, v.(models.Entity))
}
