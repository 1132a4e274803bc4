// Package api serves the enriched tier to read-only consumers.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/couchcryptid/quake-data-etl/internal/domain"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// EnrichedReader lists committed enriched events.
type EnrichedReader interface {
	ListEnriched(ctx context.Context, since time.Time, limit int) ([]domain.EnrichedEvent, error)
	Watermark(ctx context.Context) (domain.Watermark, error)
}

type Handler struct {
	store  EnrichedReader
	logger *slog.Logger
}

func NewHandler(store EnrichedReader, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/events", h.listEvents)
	r.GET("/api/watermark", h.watermark)
}

type eventsResponse struct {
	Events []domain.EnrichedEvent `json:"events"`
	Count  int                    `json:"count"`
}

// listEvents returns enriched events with time strictly after ?since
// (RFC 3339), oldest first.
func (h *Handler) listEvents(c *gin.Context) {
	var since time.Time
	if s := c.Query("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC 3339 timestamp"})
			return
		}
		since = t.UTC()
	}

	limit := defaultLimit
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n <= 0 || n > maxLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
			return
		}
		limit = n
	}

	events, err := h.store.ListEnriched(c.Request.Context(), since, limit)
	if err != nil {
		h.logger.Error("list enriched events", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch events"})
		return
	}
	c.JSON(http.StatusOK, eventsResponse{Events: events, Count: len(events)})
}

func (h *Handler) watermark(c *gin.Context) {
	wm, err := h.store.Watermark(c.Request.Context())
	if err != nil {
		h.logger.Error("read watermark", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read watermark"})
		return
	}
	c.JSON(http.StatusOK, wm)
}
