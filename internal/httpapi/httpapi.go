// Package httpapi serves the simulation service over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cory-johannsen/combatsim/internal/game/catalog"
	"github.com/cory-johannsen/combatsim/internal/simulation"
)

// MaxHistoryLimit caps the limit query parameter of GET /v1/history.
const MaxHistoryLimit = 500

type submitRequest struct {
	EncounterID string `json:"encounter_id" binding:"required"`
	Seed        uint64 `json:"seed"`
	RoundCap    int    `json:"round_cap"`
	// Runs > 0 asks for a batch instead of a single simulation.
	Runs int `json:"runs"`
	// Wait runs a single simulation synchronously and returns its record.
	Wait bool `json:"wait"`
}

// Handler holds the routes' dependencies.
type Handler struct {
	svc    *simulation.Service
	logger *zap.Logger
	check  func(context.Context) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithHealthCheck makes GET /health report 503 whenever check fails.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(h *Handler) { h.check = check }
}

// NewRouter builds the gin engine with every route registered.
//
// Precondition: svc and logger must be non-nil.
func NewRouter(svc *simulation.Service, logger *zap.Logger, opts ...Option) *gin.Engine {
	h := &Handler{svc: svc, logger: logger}
	for _, opt := range opts {
		opt(h)
	}

	r := gin.New()
	r.Use(gin.Recovery(), h.accessLog())

	r.GET("/health", h.health)

	v1 := r.Group("/v1")
	{
		v1.POST("/simulations", h.submit)
		v1.GET("/simulations/:id", h.status)
		v1.GET("/history", h.history)
		v1.GET("/encounters", h.encounters)
	}
	return r
}

func (h *Handler) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func (h *Handler) health(c *gin.Context) {
	if h.check != nil {
		if err := h.check(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) encounters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"encounters": h.svc.Catalog().Encounters()})
}

func (h *Handler) submit(c *gin.Context) {
	var body submitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req := simulation.Request{EncounterID: body.EncounterID, Seed: body.Seed, RoundCap: body.RoundCap}
	ctx := c.Request.Context()

	switch {
	case body.Runs > 0:
		res, err := h.svc.RunBatch(ctx, req, body.Runs)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	case body.Wait:
		rec, err := h.svc.RunSync(ctx, req)
		if err != nil && rec == nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	default:
		id, err := h.svc.Submit(ctx, req)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Header("Location", "/v1/simulations/"+id)
		c.JSON(http.StatusAccepted, gin.H{"id": id})
	}
}

func (h *Handler) status(c *gin.Context) {
	rec, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) history(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 || limit > MaxHistoryLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer in 1-" + strconv.Itoa(MaxHistoryLimit)})
		return
	}
	recs, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if recs == nil {
		recs = []*simulation.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"simulations": recs})
}

func (h *Handler) fail(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, simulation.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, simulation.ErrInvalidRequest):
		code = http.StatusBadRequest
	default:
		h.logger.Error("http request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(code, gin.H{"error": err.Error()})
}
