package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeAPIVersion = "2023-10-16"

// StripeClient talks to the Stripe REST API with form-encoded requests.
type StripeClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		baseURL:   "https://api.stripe.com",
		secretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type stripeCustomer struct {
	ID string `json:"id"`
}

type stripeEphemeralKey struct {
	Secret string `json:"secret"`
}

type stripePaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type stripeError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *StripeClient) EnsureCustomer(ctx context.Context, email string, userID uint, existingID string) (string, error) {
	if existingID != "" {
		return existingID, nil
	}
	form := url.Values{}
	form.Set("email", email)
	form.Set("metadata[user_id]", strconv.FormatUint(uint64(userID), 10))
	var out stripeCustomer
	if err := c.post(ctx, "/v1/customers", form, &out); err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return out.ID, nil
}

func (c *StripeClient) CreateEphemeralKey(ctx context.Context, customerID string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	var out stripeEphemeralKey
	if err := c.post(ctx, "/v1/ephemeral_keys", form, &out); err != nil {
		return "", fmt.Errorf("create ephemeral key: %w", err)
	}
	return out.Secret, nil
}

func (c *StripeClient) CreatePaymentIntent(ctx context.Context, req PaymentIntentRequest) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", req.Currency)
	form.Set("customer", req.CustomerID)
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}
	var out stripePaymentIntent
	if err := c.post(ctx, "/v1/payment_intents", form, &out); err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	return &PaymentIntent{ID: out.ID, ClientSecret: out.ClientSecret}, nil
}

func (c *StripeClient) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Stripe-Version", stripeAPIVersion)
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var se stripeError
		if json.Unmarshal(body, &se) == nil && se.Error.Message != "" {
			return fmt.Errorf("stripe %s: %s", path, se.Error.Message)
		}
		return fmt.Errorf("stripe %s: status %d", path, resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}
