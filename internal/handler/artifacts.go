package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"diary-service/internal/artifact"
)

// GetArtifact streams a persisted artifact's exact bytes.
// GET /api/v1/artifacts/:name
func (h *Handler) GetArtifact(c *gin.Context) {
	name := c.Param("name")

	data, err := h.store.Read(name)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": errorBody("not_found", name, "artifact does not exist or has expired"),
			})
			return
		}
		h.logger.Error("Failed to read artifact", zap.String("artifact", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read artifact"})
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// ListArtifacts describes the live artifacts in the scratch directory.
// GET /api/v1/artifacts
func (h *Handler) ListArtifacts(c *gin.Context) {
	infos, err := h.store.List()
	if err != nil {
		h.logger.Error("Failed to list artifacts", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list artifacts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"artifacts": infos,
		"count":     len(infos),
	})
}

// HealthCheck reports liveness.
// GET /health
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
