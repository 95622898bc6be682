package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opendigger/pointgate/internal/domain/model"
	"github.com/opendigger/pointgate/internal/server/http/dto"
)

// WithdrawalHandler manages withdrawal lifecycle endpoints.
type WithdrawalHandler struct {
	facade WithdrawalFacade
}

// NewWithdrawalHandler constructs WithdrawalHandler.
func NewWithdrawalHandler(facade WithdrawalFacade) *WithdrawalHandler {
	return &WithdrawalHandler{facade: facade}
}

// Create handles POST /api/withdrawals.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req dto.CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	card := model.BankCard{BankName: req.BankName, Account: req.BankAccount}
	pii := model.PIISnapshot{
		RealName:    req.RealName,
		IDNumber:    req.IDNumber,
		Phone:       req.Phone,
		BankName:    req.BankName,
		BankAccount: req.BankAccount,
	}

	w, err := h.facade.CreateWithdrawal(c.Request.Context(), req.UserID, req.Amount, card, pii)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusCreated, withdrawalToDTO(w))
}

// Get handles GET /api/withdrawals/:id.
func (h *WithdrawalHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	w, err := h.facade.GetWithdrawal(c.Request.Context(), id, userID)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, withdrawalToDTO(w))
}

// List handles GET /api/withdrawals.
func (h *WithdrawalHandler) List(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	withdrawals, err := h.facade.ListWithdrawals(c.Request.Context(), userID)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	if len(withdrawals) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.WithdrawalResponse, 0, len(withdrawals))
	for i := range withdrawals {
		resp = append(resp, withdrawalToDTO(&withdrawals[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel handles POST /api/withdrawals/:id/cancel.
func (h *WithdrawalHandler) Cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	if err := h.facade.CancelWithdrawal(c.Request.Context(), id, userID); err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.Status(http.StatusOK)
}
