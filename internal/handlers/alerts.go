package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/services"
)

type AlertHandler struct {
	log            *logger.Logger
	formulationSvc services.FormulationService
}

func NewAlertHandler(log *logger.Logger, formulationSvc services.FormulationService) *AlertHandler {
	return &AlertHandler{
		log:            log.With("handler", "AlertHandler"),
		formulationSvc: formulationSvc,
	}
}

// GET /api/alerts?include_dismissed=true
// Listing marks every returned alert seen.
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	includeDismissed := c.Query("include_dismissed") == "true"
	alerts, err := h.formulationSvc.ListAlertsForUser(c.Request.Context(), userID, includeDismissed)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"alerts": alerts})
}

// POST /api/alerts/:id/dismiss
func (h *AlertHandler) DismissAlert(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	alertID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.formulationSvc.DismissAlert(c.Request.Context(), userID, alertID); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
