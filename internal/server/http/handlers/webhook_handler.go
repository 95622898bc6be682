package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opendigger/pointgate/internal/adapter/fasign"
	domainErrors "github.com/opendigger/pointgate/internal/domain/errors"
)

const resumeTimeout = 30 * time.Second

// WebhookHandler receives signing provider callbacks. Verification happens
// before anything else: a callback with a bad signature never touches state.
type WebhookHandler struct {
	facade   WebhookFacade
	verifier *fasign.CallbackVerifier
	logger   *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade, verifier *fasign.CallbackVerifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{facade: facade, verifier: verifier, logger: logger}
}

// Receive handles POST /api/webhooks/fasign.
func (h *WebhookHandler) Receive(c *gin.Context) {
	bizContent := c.PostForm("bizContent")
	if bizContent == "" {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		bizContent = string(body)
	}

	if err := h.verifier.Verify(c.GetHeader, bizContent); err != nil {
		h.logger.Warn("callback signature rejected",
			slog.String("remote", c.ClientIP()))
		c.Status(http.StatusUnauthorized)
		return
	}

	callback, err := fasign.ParseCallback([]byte(bizContent))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	record, transitioned, err := h.facade.ApplySigningOutcome(c.Request.Context(), callback.Correlator, callback.Outcome)
	if err != nil {
		if errors.Is(err, domainErrors.ErrRecordNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	if transitioned {
		// resume outside the request so slow downstream work cannot make
		// the provider time out and re-deliver
		recordID := record.ID
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), resumeTimeout)
			defer cancel()
			if err := h.facade.ResumeWithdrawal(ctx, recordID); err != nil {
				h.logger.Error("resume withdrawal after callback",
					slog.Int64("signing_record_id", recordID),
					slog.String("error", err.Error()))
			}
		}()
	} else {
		h.logger.Info("duplicate or inconclusive callback acknowledged",
			slog.String("correlator", callback.Correlator),
			slog.String("outcome", string(callback.Outcome)))
	}

	c.String(http.StatusOK, "success")
}
