package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StubClient is a no-op provider for development and tests; no network calls,
// deterministic shapes.
type StubClient struct{}

func (s *StubClient) EnsureCustomer(_ context.Context, _ string, userID uint, existingID string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}
	return fmt.Sprintf("cus_stub_%d", userID), nil
}

func (s *StubClient) CreateEphemeralKey(_ context.Context, customerID string) (string, error) {
	return "ek_stub_" + customerID, nil
}

func (s *StubClient) CreatePaymentIntent(_ context.Context, _ PaymentIntentRequest) (*PaymentIntent, error) {
	id := "pi_stub_" + uuid.NewString()
	return &PaymentIntent{ID: id, ClientSecret: id + "_secret"}, nil
}
