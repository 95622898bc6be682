package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opendigger/pointgate/internal/server/http/dto"
)

// AdminHandler exposes operator recovery actions.
type AdminHandler struct {
	facade AdminFacade
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade AdminFacade) *AdminHandler {
	return &AdminHandler{facade: facade}
}

// Rollback handles POST /api/admin/withdrawals/:id/rollback.
func (h *AdminHandler) Rollback(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	var req dto.RollbackRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.facade.RollbackWithdrawal(c.Request.Context(), id, req.Reason); err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.Status(http.StatusOK)
}

// Retrigger handles POST /api/admin/withdrawals/:id/retrigger.
func (h *AdminHandler) Retrigger(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.facade.RetriggerWithdrawal(c.Request.Context(), id); err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.Status(http.StatusOK)
}
