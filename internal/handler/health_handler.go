package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Liveness check
// @Tags         Health
// @Produce      plain
// @Success      200 {string} string
// @Router       /health [get]
func Health(c *gin.Context) {
	c.String(http.StatusOK, "TaskFlow Service is running!")
}
