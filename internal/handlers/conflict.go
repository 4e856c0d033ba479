package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/glowlab/glowlab-backend/internal/apierr"
	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/services"
)

type ConflictHandler struct {
	log         *logger.Logger
	conflictSvc services.ConflictService
	routineSvc  services.RoutineService
}

func NewConflictHandler(log *logger.Logger, conflictSvc services.ConflictService, routineSvc services.RoutineService) *ConflictHandler {
	return &ConflictHandler{
		log:         log.With("handler", "ConflictHandler"),
		conflictSvc: conflictSvc,
		routineSvc:  routineSvc,
	}
}

// GET /api/routines/:id/conflicts
// Routed through the routine view so ownership is enforced the same way
// as every other routine read.
func (h *ConflictHandler) GetRoutineConflicts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	routineID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	view, err := h.routineSvc.GetRoutine(c.Request.Context(), userID, routineID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, view.Conflicts)
}

// POST /api/routines/:id/conflicts/check
// Dry run: would this product conflict with the routine? Nothing is
// written.
func (h *ConflictHandler) CheckCandidateProduct(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}
	routineID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ProductID uuid.UUID `json:"product_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Invalid("invalid_request_body", err))
		return
	}
	result, err := h.conflictSvc.CheckProductAgainstRoutine(c.Request.Context(), routineID, req.ProductID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, result)
}
