package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// projection is one observable state pushed to a watcher.
type projection interface {
	Terminal() bool
}

type projectFunc func(ctx context.Context) (projection, error)

// WatchDocument handles GET /api/v1/documents/:id/watch (websocket)
func (h *Handler) WatchDocument(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	docID, ok := pathID(c, "id")
	if !ok {
		return
	}

	h.watch(c, "document", func(ctx context.Context) (projection, error) {
		st, err := h.projector.Document(ctx, id.TenantID, docID)
		if err != nil {
			return nil, err
		}
		return st, nil
	})
}

// WatchApplication handles GET /api/v1/applications/:id/watch (websocket)
func (h *Handler) WatchApplication(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	appID, ok := pathID(c, "id")
	if !ok {
		return
	}

	h.watch(c, "application", func(ctx context.Context) (projection, error) {
		st, err := h.projector.Application(ctx, id.TenantID, appID)
		if err != nil {
			return nil, err
		}
		return st, nil
	})
}

// watch upgrades the request and pushes each new projection until it is
// terminal, the client goes away or the watch times out. A row that does not
// exist is rejected before upgrading.
func (h *Handler) watch(c *gin.Context, what string, project projectFunc) {
	ctx := c.Request.Context()
	current, err := project(ctx)
	if err != nil {
		h.respondLookupError(c, err, what)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade to WebSocket", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	// Reading is only needed to notice the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.watchInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(h.watchTimeout)
	defer deadline.Stop()

	var last []byte
	for {
		if payload, changed := encodeIfChanged(current, last); changed {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("Watcher write failed", slog.String("error", err.Error()))
				return
			}
			last = payload
		}
		if current.Terminal() {
			closeNormally(conn, what+" finished")
			return
		}

		select {
		case <-gone:
			return
		case <-ctx.Done():
			return
		case <-deadline.C:
			closeNormally(conn, "watch timed out")
			return
		case <-ticker.C:
		}

		next, err := project(ctx)
		if err != nil {
			h.logger.Error("Failed to refresh "+what+" status", slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "status unavailable"))
			return
		}
		current = next
	}
}

func closeNormally(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(time.Second))
}

func encodeIfChanged(p projection, last []byte) ([]byte, bool) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, false
	}
	return payload, !bytes.Equal(payload, last)
}
