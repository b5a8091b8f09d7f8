package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"draftly/config"
	"draftly/internal/middleware"
	"draftly/internal/models"
	"draftly/internal/repository"
	"draftly/internal/service"
	"draftly/pkg/gateway"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type BillingHandler struct {
	billing  *service.BillingService
	userRepo *repository.UserRepository
	gateway  gateway.Client
	cfg      *config.Config
	log      *logrus.Logger
}

func NewBillingHandler(billing *service.BillingService, userRepo *repository.UserRepository, gw gateway.Client, cfg *config.Config, log *logrus.Logger) *BillingHandler {
	return &BillingHandler{billing: billing, userRepo: userRepo, gateway: gw, cfg: cfg, log: log}
}

// GetBalance returns the current user's balance, creating it with the
// starting grant on first access.
func (h *BillingHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	b, err := h.billing.GetOrCreateBalance(userID)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("balance lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "balance unavailable"})
		return
	}
	c.JSON(http.StatusOK, balanceJSON(b))
}

// GetTransactions returns the user's ledger newest first, optionally filtered
// by ?application=.
func (h *BillingHandler) GetTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	txns, err := h.billing.ListTransactions(userID, c.Query("application"))
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("transaction list failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transactions unavailable"})
		return
	}
	out := make([]gin.H, 0, len(txns))
	for i := range txns {
		out = append(out, transactionJSON(&txns[i]))
	}
	c.JSON(http.StatusOK, out)
}

type addFundsRequest struct {
	Amount      decimal.Decimal        `json:"amount"`
	Application string                 `json:"application"`
	Operation   string                 `json:"operation"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// AddFunds credits the balance directly. Gateway-funded top-ups go through
// the webhook instead; this endpoint backs admin grants and test flows.
func (h *BillingHandler) AddFunds(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req addFundsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	b, txn, err := h.billing.Credit(userID, req.Amount, req.Application, req.Operation, req.Metadata, nil)
	if err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
			return
		}
		h.log.WithError(err).WithField("user_id", userID).Error("add funds failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not add funds"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"balance": balanceJSON(b), "transaction": transactionJSON(txn)})
}

// PublishableKey is a static config passthrough for payment sheet clients.
func (h *BillingHandler) PublishableKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publishable_key": h.cfg.Stripe.PublishableKey})
}

type paymentSheetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// CreatePaymentSheet registers the user with the gateway if needed and opens
// a payment intent. Nothing is credited here; the ledger moves only when the
// gateway's webhook confirms the payment.
func (h *BillingHandler) CreatePaymentSheet(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req paymentSheetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	amountCents := req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if amountCents <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount"})
		return
	}
	u, err := h.userRepo.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment sheet"})
		return
	}
	ctx := c.Request.Context()
	existing := ""
	if u.StripeCustomerID != nil {
		existing = *u.StripeCustomerID
	}
	customerID, err := h.gateway.EnsureCustomer(ctx, u.Email, u.ID, existing)
	if err != nil {
		h.log.WithError(err).WithField("user_id", userID).Error("gateway customer setup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment sheet"})
		return
	}
	if existing == "" {
		if err := h.userRepo.SetStripeCustomerID(u.ID, customerID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment sheet"})
			return
		}
	}
	ephemeralKey, err := h.gateway.CreateEphemeralKey(ctx, customerID)
	if err != nil {
		h.log.WithError(err).Error("gateway ephemeral key failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment sheet"})
		return
	}
	intent, err := h.gateway.CreatePaymentIntent(ctx, gateway.PaymentIntentRequest{
		AmountCents: amountCents,
		Currency:    h.cfg.Stripe.Currency,
		CustomerID:  customerID,
		Metadata: map[string]string{
			"user_id": strconv.FormatUint(uint64(u.ID), 10),
			"type":    "add_funds",
		},
	})
	if err != nil {
		h.log.WithError(err).Error("gateway payment intent failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment sheet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"paymentIntent":  intent.ClientSecret,
		"ephemeralKey":   ephemeralKey,
		"customer":       customerID,
		"publishableKey": h.cfg.Stripe.PublishableKey,
	})
}

func balanceJSON(b *models.Balance) gin.H {
	return gin.H{
		"balance":    b.Amount.InexactFloat64(),
		"updated_at": b.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func transactionJSON(t *models.Transaction) gin.H {
	var metadata map[string]interface{}
	if t.Metadata != "" {
		_ = json.Unmarshal([]byte(t.Metadata), &metadata)
	}
	return gin.H{
		"id":                   t.ID,
		"application":          t.Application,
		"amount":               t.Amount.InexactFloat64(),
		"transaction_type":     t.Type,
		"operation":            t.Operation,
		"status":               t.Status,
		"reference_id":         t.ReferenceID,
		"transaction_metadata": metadata,
		"created_at":           t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
