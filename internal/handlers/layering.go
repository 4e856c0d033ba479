package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/services"
)

type LayeringHandler struct {
	log         *logger.Logger
	layeringSvc services.LayeringService
}

func NewLayeringHandler(log *logger.Logger, layeringSvc services.LayeringService) *LayeringHandler {
	return &LayeringHandler{
		log:         log.With("handler", "LayeringHandler"),
		layeringSvc: layeringSvc,
	}
}

// GET /api/layering/steps?type=am|pm|weekly
// Unknown or missing types fall back to the AM skeleton.
func (h *LayeringHandler) GetCanonicalSteps(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	routineType := c.Query("type")
	RespondOK(c, gin.H{
		"type":  routineType,
		"steps": h.layeringSvc.CanonicalSteps(routineType),
	})
}
