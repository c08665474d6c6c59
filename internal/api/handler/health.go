package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceName = "hr-rag-api-service"

// Health reports the service together with its database and broker
// connections. Any failed check turns the response into 503.
func (h *Handler) Health(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if h.database != nil {
		if err := h.database.HealthCheck(c.Request.Context()); err != nil {
			h.logger.Error("Database health check failed", slog.Any("error", err))
			checks["database"] = "unavailable"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	if h.broker != nil {
		if h.broker.IsConnected() {
			checks["rabbitmq"] = "ok"
		} else {
			h.logger.Error("RabbitMQ connection is closed")
			checks["rabbitmq"] = "unavailable"
			healthy = false
		}
	}

	code, status := http.StatusOK, "healthy"
	if !healthy {
		code, status = http.StatusServiceUnavailable, "unhealthy"
	}
	c.JSON(code, gin.H{
		"status":  status,
		"service": serviceName,
		"checks":  checks,
	})
}
