// Package gateway is the boundary to the external payment provider. The rest
// of the backend only sees verified, normalized Events and the small Client
// surface used to set up a payment sheet; provider wire formats stay here.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider event types consumed by the reconciler. Anything else is
// acknowledged and ignored.
const (
	EventPaymentSucceeded      = "payment_intent.succeeded"
	EventPaymentFailed         = "payment_intent.payment_failed"
	EventPaymentCreated        = "payment_intent.created"
	EventChargeSucceeded       = "charge.succeeded"
	EventChargeUpdated         = "charge.updated"
	EventPaymentMethodAttached = "payment_method.attached"
)

// Event is one normalized provider notification. IntentID identifies the
// underlying payment across redeliveries and is the ledger dedup key.
type Event struct {
	ID             string
	Type           string
	IntentID       string
	AmountCents    int64
	Currency       string
	Customer       string
	PaymentMethod  string
	Metadata       map[string]string
	FailureMessage string
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object paymentObject `json:"object"`
	} `json:"data"`
}

type paymentObject struct {
	ID               string            `json:"id"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Customer         string            `json:"customer"`
	PaymentMethod    string            `json:"payment_method"`
	Status           string            `json:"status"`
	Metadata         map[string]string `json:"metadata"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

// ParseEvent decodes a raw provider payload without verifying it.
func ParseEvent(payload []byte) (*Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("parse event: missing type")
	}
	ev := &Event{
		ID:            env.ID,
		Type:          env.Type,
		IntentID:      env.Data.Object.ID,
		AmountCents:   env.Data.Object.Amount,
		Currency:      env.Data.Object.Currency,
		Customer:      env.Data.Object.Customer,
		PaymentMethod: env.Data.Object.PaymentMethod,
		Metadata:      env.Data.Object.Metadata,
	}
	if env.Data.Object.LastPaymentError != nil {
		ev.FailureMessage = env.Data.Object.LastPaymentError.Message
	}
	return ev, nil
}

type PaymentIntentRequest struct {
	AmountCents int64
	Currency    string
	CustomerID  string
	Metadata    map[string]string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
}

// Client is the outbound provider API used when a user opens a payment sheet.
// Implementations are opaque to the core; nothing is credited until the
// provider's webhook lands.
type Client interface {
	// EnsureCustomer returns existingID when set, otherwise registers the
	// user with the provider and returns the new customer id.
	EnsureCustomer(ctx context.Context, email string, userID uint, existingID string) (string, error)
	CreateEphemeralKey(ctx context.Context, customerID string) (string, error)
	CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error)
}
