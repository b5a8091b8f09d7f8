package handler

import (
	"errors"
	"io"
	"net/http"

	"draftly/config"
	"draftly/internal/models"
	"draftly/internal/repository"
	"draftly/internal/service"
	"draftly/pkg/gateway"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// PaymentWebhookHandler receives raw gateway notifications. Verification
// happens before any ledger access; the reconciler owns everything after.
type PaymentWebhookHandler struct {
	reconciler *service.Reconciler
	auditRepo  *repository.AuditLogRepository
	cfg        *config.Config
	log        *logrus.Logger
}

func NewPaymentWebhookHandler(reconciler *service.Reconciler, auditRepo *repository.AuditLogRepository, cfg *config.Config, log *logrus.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{reconciler: reconciler, auditRepo: auditRepo, cfg: cfg, log: log}
}

// Handle answers 400 for deliveries that can never be processed (bad
// signature, malformed payload, unusable event) and 500 for internal
// failures so the provider redelivers. Everything else, including event
// types this backend ignores, is acknowledged with 200.
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}
	ev, err := gateway.VerifyEvent(body, c.GetHeader("Stripe-Signature"), h.cfg.Stripe.WebhookSecret)
	if err != nil {
		if errors.Is(err, gateway.ErrSignatureInvalid) {
			h.log.Warn("webhook signature verification failed")
		} else {
			h.log.WithError(err).Warn("webhook payload rejected")
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false})
		return
	}
	if err := h.reconciler.Process(ev); err != nil {
		if errors.Is(err, service.ErrBadEvent) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false})
			return
		}
		h.log.WithError(err).WithField("intent", ev.IntentID).Error("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false})
		return
	}
	if ev.Type == gateway.EventPaymentSucceeded {
		_ = h.auditRepo.Create(&models.AuditLog{
			Action:     "payment_completed",
			Resource:   "payment",
			ResourceID: ev.IntentID,
			IP:         c.ClientIP(),
			UserAgent:  c.Request.UserAgent(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
