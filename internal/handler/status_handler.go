package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/edu-portal-api/internal/ledger"
	"github.com/noah-isme/edu-portal-api/internal/models"
	"github.com/noah-isme/edu-portal-api/internal/service"
	appErrors "github.com/noah-isme/edu-portal-api/pkg/errors"
	"github.com/noah-isme/edu-portal-api/pkg/response"
)

// StatusHandler exposes the status ledger for clients, students and
// staff.
type StatusHandler struct {
	statuses *service.StatusService
}

// NewStatusHandler constructs StatusHandler.
func NewStatusHandler(statuses *service.StatusService) *StatusHandler {
	return &StatusHandler{statuses: statuses}
}

// ChangeClient godoc
// @Summary Apply a status transition to a client
// @Tags Status
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param payload body ledger.ChangeStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /clients/{id}/status [post]
func (h *StatusHandler) ChangeClient(c *gin.Context) {
	h.change(c, models.EntityClient)
}

// ChangeStudent godoc
// @Summary Apply a status transition to a student
// @Tags Status
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body ledger.ChangeStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status [post]
func (h *StatusHandler) ChangeStudent(c *gin.Context) {
	h.change(c, models.EntityStudent)
}

// ChangeStaff godoc
// @Summary Apply a status transition to a staff member
// @Tags Status
// @Accept json
// @Produce json
// @Param id path string true "Staff ID"
// @Param payload body ledger.ChangeStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/status [post]
func (h *StatusHandler) ChangeStaff(c *gin.Context) {
	h.change(c, models.EntityStaff)
}

// OverviewClient godoc
// @Summary Current status and freeze phase of a client
// @Tags Status
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} response.Envelope
// @Router /clients/{id}/status [get]
func (h *StatusHandler) OverviewClient(c *gin.Context) {
	h.overview(c, models.EntityClient)
}

// OverviewStudent godoc
// @Summary Current status and freeze phase of a student
// @Tags Status
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status [get]
func (h *StatusHandler) OverviewStudent(c *gin.Context) {
	h.overview(c, models.EntityStudent)
}

// OverviewStaff godoc
// @Summary Current status and freeze phase of a staff member
// @Tags Status
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/status [get]
func (h *StatusHandler) OverviewStaff(c *gin.Context) {
	h.overview(c, models.EntityStaff)
}

// HistoryClient godoc
// @Summary Full status timeline of a client
// @Tags Status
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} response.Envelope
// @Router /clients/{id}/status/history [get]
func (h *StatusHandler) HistoryClient(c *gin.Context) {
	h.history(c, models.EntityClient)
}

// HistoryStudent godoc
// @Summary Full status timeline of a student
// @Tags Status
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/status/history [get]
func (h *StatusHandler) HistoryStudent(c *gin.Context) {
	h.history(c, models.EntityStudent)
}

// HistoryStaff godoc
// @Summary Full status timeline of a staff member
// @Tags Status
// @Produce json
// @Param id path string true "Staff ID"
// @Success 200 {object} response.Envelope
// @Router /staff/{id}/status/history [get]
func (h *StatusHandler) HistoryStaff(c *gin.Context) {
	h.history(c, models.EntityStaff)
}

func (h *StatusHandler) change(c *gin.Context, entityType models.EntityType) {
	var req ledger.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	overview, err := h.statuses.ChangeStatus(c.Request.Context(), entityType, c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

func (h *StatusHandler) overview(c *gin.Context, entityType models.EntityType) {
	overview, err := h.statuses.Overview(c.Request.Context(), entityType, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}

func (h *StatusHandler) history(c *gin.Context, entityType models.EntityType) {
	record, err := h.statuses.Timeline(c.Request.Context(), entityType, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
