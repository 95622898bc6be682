package handlers

import (
	"errors"
	"net/http"

	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
	"github.com/opendigger/pointgate/internal/domain/model"
	"github.com/opendigger/pointgate/internal/server/http/dto"
)

func statusFromError(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrInvalidAmount), errors.Is(err, domainErrors.ErrInvalidTag):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domainErrors.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, domainErrors.ErrNotFound), errors.Is(err, domainErrors.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrInvalidState),
		errors.Is(err, domainErrors.ErrWithdrawalInProgress),
		errors.Is(err, domainErrors.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func accountTail(account string) string {
	if len(account) <= 4 {
		return account
	}
	return account[len(account)-4:]
}

func withdrawalToDTO(w *model.WithdrawalRequest) dto.WithdrawalResponse {
	return dto.WithdrawalResponse{
		ID:            w.ID,
		UserID:        w.UserID,
		Amount:        w.Amount,
		Status:        string(w.Status),
		BankName:      w.Card.BankName,
		AccountTail:   accountTail(w.Card.Account),
		FailureReason: w.FailureReason,
		CreatedAt:     w.CreatedAt,
		UpdatedAt:     w.UpdatedAt,
	}
}

func transactionToDTO(t *model.PointTransaction) dto.TransactionResponse {
	return dto.TransactionResponse{
		ID:        t.ID,
		Kind:      string(t.Kind),
		Delta:     t.Delta,
		Reason:    t.Reason,
		Reference: t.Reference,
		CreatedAt: t.CreatedAt,
	}
}
