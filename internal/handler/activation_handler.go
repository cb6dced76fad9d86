package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-portal-api/internal/service"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
	"github.com/noah-isme/edu-portal-api/pkg/response"
)

// ActivationHandler exposes subject activation toggles.
type ActivationHandler struct {
	activations *service.ActivationService
}

// NewActivationHandler constructs ActivationHandler.
func NewActivationHandler(activations *service.ActivationService) *ActivationHandler {
	return &ActivationHandler{activations: activations}
}

// Toggle godoc
// @Summary Toggle a subject assignment between active and inactive
// @Tags Activation
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param assignmentId path string true "Subject assignment ID"
// @Param payload body service.ToggleActivationRequest true "Toggle payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/subjects/{assignmentId}/activation [put]
func (h *ActivationHandler) Toggle(c *gin.Context) {
	var req service.ToggleActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := h.activations.Toggle(c.Request.Context(), c.Param("id"), c.Param("assignmentId"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Get godoc
// @Summary Activation state and history for a subject assignment
// @Tags Activation
// @Produce json
// @Param id path string true "Student ID"
// @Param assignmentId path string true "Subject assignment ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/subjects/{assignmentId}/activation [get]
func (h *ActivationHandler) Get(c *gin.Context) {
	record, err := h.activations.Status(c.Request.Context(), c.Param("id"), c.Param("assignmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ListByStudent godoc
// @Summary Activation records for all of a student's assignments
// @Tags Activation
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/activations [get]
func (h *ActivationHandler) ListByStudent(c *gin.Context) {
	records, err := h.activations.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
