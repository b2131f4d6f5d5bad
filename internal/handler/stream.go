package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"maaztelecom/internal/apierror"
	"maaztelecom/internal/changefeed"
	"maaztelecom/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// StreamHandler pushes change events to open dashboard views as
// Server-Sent Events. The subscription lives as long as the request.
type StreamHandler struct {
	catalog   service.CatalogService
	sales     service.SaleService
	heartbeat time.Duration
}

func NewStreamHandler(catalog service.CatalogService, sales service.SaleService) *StreamHandler {
	return &StreamHandler{catalog: catalog, sales: sales, heartbeat: 25 * time.Second}
}

// Stream godoc
// @Summary Live change feed
// @Description Server-Sent Events; event "change" carries a changefeed.ChangeEvent, "ping" keeps the connection open.
// @Tags stream
// @Produce text/event-stream
// @Param topic path string true "products or sales"
// @Success 200
// @Failure 404 {object} apierror.APIError
// @Router /v1/stream/{topic} [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	sub, err := h.subscribe(ctx, c.Param("topic"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent("change", ev)
			return true
		case t := <-ticker.C:
			c.SSEvent("ping", t.Unix())
			return true
		}
	})
	log.Debug().Str("topic", c.Param("topic")).Msg("stream closed")
}

func (h *StreamHandler) subscribe(ctx context.Context, topic string) (*changefeed.Subscription, error) {
	switch topic {
	case changefeed.TopicProducts:
		return h.catalog.Subscribe(ctx)
	case changefeed.TopicSales:
		return h.sales.Subscribe(ctx)
	default:
		return nil, apierror.NotFound("topic")
	}
}
