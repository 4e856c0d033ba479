package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/glowlab/glowlab-backend/internal/apierr"
	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/services"
	"github.com/glowlab/glowlab-backend/internal/types"
)

type FormulationHandler struct {
	log            *logger.Logger
	formulationSvc services.FormulationService
}

func NewFormulationHandler(log *logger.Logger, formulationSvc services.FormulationService) *FormulationHandler {
	return &FormulationHandler{
		log:            log.With("handler", "FormulationHandler"),
		formulationSvc: formulationSvc,
	}
}

// POST /api/products/:id/reformulations
// Accepts one of three shapes: a scraped INCI list (diffed against the
// stored one), an explicit diff, or a manual note with no parsed diff.
func (h *FormulationHandler) ReportReformulation(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ScrapedINCINames     []string `json:"scraped_inci_names"`
		IngredientsAdded     []string `json:"ingredients_added"`
		IngredientsRemoved   []string `json:"ingredients_removed"`
		IngredientsReordered bool     `json:"ingredients_reordered"`
		DetectedBy           string   `json:"detected_by"`
		ChangeSummary        string   `json:"change_summary"`
		ChangeType           string   `json:"change_type"`
		ManualNote           string   `json:"manual_note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Invalid("invalid_request_body", err))
		return
	}

	ctx := c.Request.Context()
	switch {
	case len(req.ScrapedINCINames) > 0:
		result, err := h.formulationSvc.RecordScrapedFormulation(ctx, productID, req.ScrapedINCINames)
		if err != nil {
			RespondError(c, err)
			return
		}
		if result == nil {
			RespondOK(c, gin.H{"changed": false})
			return
		}
		RespondCreated(c, result)

	case len(req.IngredientsAdded) > 0 || len(req.IngredientsRemoved) > 0 || req.IngredientsReordered:
		detectedBy := req.DetectedBy
		if detectedBy == "" {
			detectedBy = types.DetectedByUserReported
		}
		diff := services.FormulationDiff{
			Added:     req.IngredientsAdded,
			Removed:   req.IngredientsRemoved,
			Reordered: req.IngredientsReordered,
		}
		result, err := h.formulationSvc.RecordReformulation(ctx, productID, diff, detectedBy, req.ChangeSummary, req.ChangeType)
		if err != nil {
			RespondError(c, err)
			return
		}
		RespondCreated(c, result)

	default:
		result, err := h.formulationSvc.ReportManualReformulation(ctx, productID, req.ManualNote, req.ChangeType)
		if err != nil {
			RespondError(c, err)
			return
		}
		RespondCreated(c, result)
	}
}

// GET /api/products/:id/reformulations
func (h *FormulationHandler) GetHistory(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	productID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	rows, err := h.formulationSvc.GetHistory(c.Request.Context(), productID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"history": rows})
}
