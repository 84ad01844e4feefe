package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) HealthCheck(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"message":   "Felicity is running",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if h.dispatcher != nil {
		body["outbox"] = h.dispatcher.GetStatus()
	}

	c.JSON(http.StatusOK, body)
}
