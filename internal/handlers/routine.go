package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/glowlab/glowlab-backend/internal/apierr"
	"github.com/glowlab/glowlab-backend/internal/logger"
	"github.com/glowlab/glowlab-backend/internal/requestdata"
	"github.com/glowlab/glowlab-backend/internal/services"
)

type RoutineHandler struct {
	log        *logger.Logger
	routineSvc services.RoutineService
}

func NewRoutineHandler(log *logger.Logger, routineSvc services.RoutineService) *RoutineHandler {
	return &RoutineHandler{
		log:        log.With("handler", "RoutineHandler"),
		routineSvc: routineSvc,
	}
}

// POST /api/routines
func (h *RoutineHandler) CreateRoutine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Invalid("invalid_request_body", err))
		return
	}
	routine, err := h.routineSvc.CreateRoutine(c.Request.Context(), userID, req.Type, req.Name)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, routine)
}

// GET /api/routines/:id
func (h *RoutineHandler) GetRoutine(c *gin.Context) {
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
	RespondOK(c, view)
}

// POST /api/routines/:id/products
func (h *RoutineHandler) AddProduct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	routineID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ProductID uuid.UUID `json:"product_id"`
		StepOrder *int      `json:"step_order"`
		Frequency string    `json:"frequency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Invalid("invalid_request_body", err))
		return
	}
	result, err := h.routineSvc.AddProductToRoutine(c.Request.Context(), userID, routineID, req.ProductID, req.StepOrder, req.Frequency)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, result)
}

// DELETE /api/routines/:id/products/:productId
func (h *RoutineHandler) RemoveProduct(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	routineID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := pathUUID(c, "productId")
	if !ok {
		return
	}
	if err := h.routineSvc.RemoveProductFromRoutine(c.Request.Context(), userID, routineID, productID); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/routines/:id/products/order
func (h *RoutineHandler) ReorderProducts(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	routineID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		ProductIDs []uuid.UUID `json:"product_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Invalid("invalid_request_body", err))
		return
	}
	if err := h.routineSvc.ReorderProducts(c.Request.Context(), userID, routineID, req.ProductIDs); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/routines/generate
func (h *RoutineHandler) GenerateRoutine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Type       string      `json:"type"`
		Name       string      `json:"name"`
		ProductIDs []uuid.UUID `json:"product_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.Invalid("invalid_request_body", err))
		return
	}
	view, err := h.routineSvc.GenerateRoutine(c.Request.Context(), userID, req.Type, req.Name, req.ProductIDs)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondCreated(c, view)
}

// currentUserID pulls the authenticated user out of the request context.
// The auth middleware guarantees it on protected routes; a miss here means
// a wiring bug, not a client error.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		RespondError(c, apierr.New(http.StatusUnauthorized, "unauthenticated", fmt.Errorf("no authenticated user on request")))
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondError(c, apierr.Invalid("invalid_"+name, fmt.Errorf("path parameter %q is not a uuid", name)))
		return uuid.Nil, false
	}
	return id, true
}
