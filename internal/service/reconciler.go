package service

import (
	"errors"
	"strconv"

	"draftly/internal/domain"
	"draftly/internal/repository"
	"draftly/pkg/gateway"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrBadEvent marks a provider event this backend refuses to process:
// missing or unknown user, or a customer reference that does not match the
// user on file. The webhook handler answers 400 so the provider stops
// retrying a delivery that can never succeed.
var ErrBadEvent = errors.New("unprocessable gateway event")

// Reconciler maps verified gateway events onto ledger mutations, at most one
// per payment intent. It keeps no state of its own: the completed-row unique
// index on (gateway_event_id, status) is the dedup ledger, so a redelivered
// event hits the constraint inside the credit transaction and becomes a
// no-op regardless of how many workers race on it.
type Reconciler struct {
	billing *BillingService
	users   *repository.UserRepository
	log     *logrus.Logger
}

func NewReconciler(billing *BillingService, users *repository.UserRepository, log *logrus.Logger) *Reconciler {
	return &Reconciler{billing: billing, users: users, log: log}
}

// Process applies one event. A nil return means the delivery is acknowledged
// (applied, already applied, or intentionally ignored). ErrBadEvent means the
// event itself is unusable; any other error is internal and the provider
// should redeliver.
func (r *Reconciler) Process(ev *gateway.Event) error {
	switch ev.Type {
	case gateway.EventPaymentSucceeded:
		return r.applySucceeded(ev)
	case gateway.EventPaymentFailed:
		return r.applyFailed(ev)
	case gateway.EventPaymentCreated, gateway.EventChargeSucceeded,
		gateway.EventChargeUpdated, gateway.EventPaymentMethodAttached:
		r.log.WithFields(logrus.Fields{"type": ev.Type, "intent": ev.IntentID}).
			Info("informational gateway event")
		return nil
	default:
		r.log.WithField("type", ev.Type).Warn("unhandled gateway event type")
		return nil
	}
}

func (r *Reconciler) applySucceeded(ev *gateway.Event) error {
	userID, err := r.resolveUser(ev)
	if err != nil {
		return err
	}
	amount := decimal.NewFromInt(ev.AmountCents).Div(decimal.NewFromInt(100))
	dedupKey := ev.IntentID
	_, _, err = r.billing.Credit(userID, amount, domain.DefaultApplication, "add_funds", map[string]interface{}{
		"gateway_payment_intent": ev.IntentID,
		"gateway_payment_method": ev.PaymentMethod,
		"gateway_customer":       ev.Customer,
	}, &dedupKey)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		r.log.WithField("intent", ev.IntentID).Info("payment already credited, ignoring redelivery")
		return nil
	}
	if err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"intent": ev.IntentID, "user_id": userID, "amount": amount.String()}).
		Info("payment credited")
	return nil
}

func (r *Reconciler) applyFailed(ev *gateway.Event) error {
	userID, err := r.resolveUser(ev)
	if err != nil {
		return err
	}
	amount := decimal.NewFromInt(ev.AmountCents).Div(decimal.NewFromInt(100))
	dedupKey := ev.IntentID
	_, err = r.billing.RecordFailedPurchase(userID, amount, domain.DefaultApplication, map[string]interface{}{
		"gateway_payment_intent": ev.IntentID,
		"gateway_error":          ev.FailureMessage,
	}, &dedupKey)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	if err != nil {
		return err
	}
	r.log.WithFields(logrus.Fields{"intent": ev.IntentID, "user_id": userID}).Warn("payment failed")
	return nil
}

// resolveUser extracts and validates the owning user. The metadata user_id is
// provider-echoed input, so it is cross-checked against the stored customer
// reference before any money moves.
func (r *Reconciler) resolveUser(ev *gateway.Event) (uint, error) {
	raw, ok := ev.Metadata["user_id"]
	if !ok || raw == "" {
		return 0, ErrBadEvent
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, ErrBadEvent
	}
	u, err := r.users.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrBadEvent
		}
		return 0, err
	}
	if ev.Customer != "" && u.StripeCustomerID != nil && *u.StripeCustomerID != ev.Customer {
		r.log.WithFields(logrus.Fields{"user_id": u.ID, "customer": ev.Customer}).
			Warn("gateway customer does not match user on file")
		return 0, ErrBadEvent
	}
	return u.ID, nil
}
