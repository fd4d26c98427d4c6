package httpapi

import (
	"net/http"
	"strings"

	"github.com/bnema/smartani/internal/application"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func sessionParam(c *gin.Context) string {
	return strings.TrimSpace(c.Query("session_id"))
}

// HandleHistory handles GET /api/history.
func (h *Handlers) HandleHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.history.History(sessionParam(c)))
}

// HandleClearHistory handles DELETE /api/history. Without session_id every
// session is cleared.
func (h *Handlers) HandleClearHistory(c *gin.Context) {
	cleared := h.history.Clear(sessionParam(c))
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

// HandleExport handles GET /api/export.
func (h *Handlers) HandleExport(c *gin.Context) {
	path, err := h.history.Export(c.Request.Context(), sessionParam(c))
	if err != nil {
		h.logger.Error("export history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "export failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"filename": path})
}

// HandleStatus handles GET /api/status.
func (h *Handlers) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status.Status(c.Request.Context(), application.DefaultModelListLimit))
}
