package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opendigger/pointgate/internal/domain/model"
	"github.com/opendigger/pointgate/internal/server/http/dto"
)

// LedgerHandler manages point ledger endpoints.
type LedgerHandler struct {
	facade LedgerFacade
}

// NewLedgerHandler constructs LedgerHandler.
func NewLedgerHandler(facade LedgerFacade) *LedgerHandler {
	return &LedgerHandler{facade: facade}
}

// Grant handles POST /api/ledger/grant.
func (h *LedgerHandler) Grant(c *gin.Context) {
	var req dto.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	txn, created, err := h.facade.Grant(c.Request.Context(), req.OwnerID, model.PointKind(req.Kind), req.Tag,
		req.Amount, req.Reason, req.Reference, req.ExpiresAt)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, dto.GrantResponse{Transaction: transactionToDTO(txn), Created: created})
}

// Balance handles GET /api/ledger/balance.
func (h *LedgerHandler) Balance(c *gin.Context) {
	var query dto.BalanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	detail, err := h.facade.Balance(c.Request.Context(), query.OwnerID, model.PointKind(query.Kind), query.Tag)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.JSON(http.StatusOK, dto.BalanceResponse{
		Balance:   detail.Balance,
		Reserved:  detail.Reserved,
		Available: detail.Available,
	})
}

// Reserve handles POST /api/ledger/reserve.
func (h *LedgerHandler) Reserve(c *gin.Context) {
	var req dto.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	res, created, err := h.facade.Reserve(c.Request.Context(), req.OwnerID, model.PointKind(req.Kind), req.Tag,
		req.Amount, req.Reference)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	c.JSON(status, dto.ReservationResponse{
		ID:        res.ID,
		Amount:    res.Amount,
		Status:    string(res.Status),
		Reference: res.Reference,
		Created:   created,
	})
}

// Commit handles POST /api/ledger/reservations/:id/commit.
func (h *LedgerHandler) Commit(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := h.facade.CommitReservation(c.Request.Context(), id); err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.Status(http.StatusOK)
}

// Release handles POST /api/ledger/reservations/:id/release.
func (h *LedgerHandler) Release(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if err := h.facade.ReleaseReservation(c.Request.Context(), id); err != nil {
		c.Status(statusFromError(err))
		return
	}
	c.Status(http.StatusOK)
}

// History handles GET /api/ledger/transactions.
func (h *LedgerHandler) History(c *gin.Context) {
	var query dto.BalanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	entries, err := h.facade.LedgerHistory(c.Request.Context(), query.OwnerID, model.PointKind(query.Kind), query.Tag, limit)
	if err != nil {
		c.Status(statusFromError(err))
		return
	}
	if len(entries) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	resp := make([]dto.TransactionResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, transactionToDTO(&entries[i]))
	}
	c.JSON(http.StatusOK, resp)
}
