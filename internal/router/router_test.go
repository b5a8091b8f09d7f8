package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"draftly/config"
	"draftly/internal/database"
	"draftly/internal/models"
	"draftly/pkg/gateway"
	"draftly/pkg/mail"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const webhookSecret = "whsec_router_test"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Env: "test", FrontendURL: "http://localhost:5173"},
		JWT: config.JWTConfig{
			AccessSecret:  "test-access",
			RefreshSecret: "test-refresh",
			AccessExpiry:  15 * time.Minute,
			RefreshExpiry: 24 * time.Hour,
			ResetExpiry:   time.Hour,
			Issuer:        "draftly-test",
		},
		Stripe: config.StripeConfig{
			PublishableKey: "pk_test_123",
			WebhookSecret:  webhookSecret,
			Currency:       "usd",
		},
	}
}

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))

	log := logrus.New()
	log.SetOutput(io.Discard)
	return Setup(testConfig(), db, &gateway.StubClient{}, mail.NoopSender{}, log), db
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]interface{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		_ = json.Unmarshal(w.Body.Bytes(), &out)
	}
	return w, out
}

func registerAndLogin(t *testing.T, r *gin.Engine, email string) (access, refresh string) {
	t.Helper()
	w, _ := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "correct-horse", "name": "Test User",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	access, _ = resp["access_token"].(string)
	refresh, _ = resp["refresh_token"].(string)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	return access, refresh
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestServer(t)
	w, resp := doJSON(t, r, http.MethodGet, "/api/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp["status"])
}

// New user journey: first balance read mints the grant, a top-up moves it,
// and the ledger lists the purchase newest first.
func TestBalanceLifecycle(t *testing.T) {
	r, _ := newTestServer(t)
	token, _ := registerAndLogin(t, r, "journey@example.com")

	w, resp := doJSON(t, r, http.MethodGet, "/api/billing/balance", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.InDelta(t, 5.00, resp["balance"], 0.001)
	_, err := time.Parse(time.RFC3339, resp["updated_at"].(string))
	assert.NoError(t, err)

	w, resp = doJSON(t, r, http.MethodPost, "/api/billing/balance/add", token, gin.H{"amount": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	balance := resp["balance"].(map[string]interface{})
	assert.InDelta(t, 15.00, balance["balance"], 0.001)
	txn := resp["transaction"].(map[string]interface{})
	assert.Equal(t, "purchase", txn["transaction_type"])
	assert.Equal(t, "completed", txn["status"])
	assert.InDelta(t, 10.00, txn["amount"], 0.001)

	req := httptest.NewRequest(http.MethodGet, "/api/billing/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "platform", list[0]["application"])
}

func TestAddFundsRejectsBadAmount(t *testing.T) {
	r, _ := newTestServer(t)
	token, _ := registerAndLogin(t, r, "badamount@example.com")

	for _, amount := range []interface{}{0, -5} {
		w, _ := doJSON(t, r, http.MethodPost, "/api/billing/balance/add", token, gin.H{"amount": amount})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}

func TestBillingRequiresAuth(t *testing.T) {
	r, _ := newTestServer(t)
	for _, path := range []string{"/api/billing/balance", "/api/billing/transactions"} {
		w, _ := doJSON(t, r, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
}

func webhookPayload(eventType, intentID, userID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_test",
		"type": %q,
		"data": {"object": {
			"id": %q,
			"amount": 1000,
			"currency": "usd",
			"metadata": {"user_id": %q, "type": "add_funds"}
		}}
	}`, eventType, intentID, userID))
}

func postWebhook(t *testing.T, r *gin.Engine, payload []byte, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/billing/payment-webhook", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if sign {
		req.Header.Set("Stripe-Signature", gateway.SignPayload(payload, webhookSecret, time.Now()))
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookCreditOnceUnderRedelivery(t *testing.T) {
	r, db := newTestServer(t)
	token, _ := registerAndLogin(t, r, "hooked@example.com")

	payload := webhookPayload("payment_intent.succeeded", "pi_hook_1", "1")
	for i := 0; i < 3; i++ {
		w := postWebhook(t, r, payload, true)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w, resp := doJSON(t, r, http.MethodGet, "/api/billing/balance", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 15.00, resp["balance"], 0.001, "one credit despite three deliveries")

	var n int64
	db.Model(&models.Transaction{}).Count(&n)
	assert.EqualValues(t, 1, n)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r, db := newTestServer(t)
	registerAndLogin(t, r, "sig@example.com")

	payload := webhookPayload("payment_intent.succeeded", "pi_sig", "1")
	w := postWebhook(t, r, payload, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/billing/payment-webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", gateway.SignPayload(payload, "whsec_wrong", time.Now()))
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	assert.Equal(t, http.StatusBadRequest, w2.Code)

	var n int64
	db.Model(&models.Transaction{}).Count(&n)
	assert.EqualValues(t, 0, n, "nothing reaches the ledger on bad signatures")
}

func TestWebhookAcknowledgesUnknownType(t *testing.T) {
	r, db := newTestServer(t)
	registerAndLogin(t, r, "unknown@example.com")

	payload := webhookPayload("customer.subscription.created", "sub_1", "1")
	w := postWebhook(t, r, payload, true)
	assert.Equal(t, http.StatusOK, w.Code, "intentionally ignored events must not trigger retries")

	var n int64
	db.Model(&models.Transaction{}).Count(&n)
	assert.EqualValues(t, 0, n)
}

func TestWebhookRejectsMissingUserMetadata(t *testing.T) {
	r, _ := newTestServer(t)
	payload := webhookPayload("payment_intent.succeeded", "pi_nouser", "")
	w := postWebhook(t, r, payload, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookRecordsFailedPayment(t *testing.T) {
	r, db := newTestServer(t)
	token, _ := registerAndLogin(t, r, "declined@example.com")

	payload := webhookPayload("payment_intent.payment_failed", "pi_declined", "1")
	w := postWebhook(t, r, payload, true)
	require.Equal(t, http.StatusOK, w.Code)

	var txn models.Transaction
	require.NoError(t, db.First(&txn).Error)
	assert.Equal(t, "failed", txn.Status)

	_, resp := doJSON(t, r, http.MethodGet, "/api/billing/balance", token, nil)
	assert.InDelta(t, 5.00, resp["balance"], 0.001, "failed payments never credit")
}

func TestPaymentSheetAndPublishableKey(t *testing.T) {
	r, _ := newTestServer(t)
	token, _ := registerAndLogin(t, r, "sheet@example.com")

	w, resp := doJSON(t, r, http.MethodGet, "/api/billing/stripe/publishable_key", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pk_test_123", resp["publishable_key"])

	w, resp = doJSON(t, r, http.MethodPost, "/api/billing/create-payment-sheet", token, gin.H{"amount": 25})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, resp["paymentIntent"])
	assert.NotEmpty(t, resp["ephemeralKey"])
	assert.NotEmpty(t, resp["customer"])
	assert.Equal(t, "pk_test_123", resp["publishableKey"])

	w, _ = doJSON(t, r, http.MethodPost, "/api/billing/create-payment-sheet", token, gin.H{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthTokenLifecycle(t *testing.T) {
	r, _ := newTestServer(t)
	access, refresh := registerAndLogin(t, r, "tokens@example.com")

	w, resp := doJSON(t, r, http.MethodGet, "/api/auth/me", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := resp["user"].(map[string]interface{})
	assert.Equal(t, "tokens@example.com", user["email"])

	// Rotation: the old refresh token dies with the exchange.
	w, resp = doJSON(t, r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, w.Code)
	newAccess := resp["access_token"].(string)
	require.NotEmpty(t, newAccess)

	w, _ = doJSON(t, r, http.MethodPost, "/api/auth/refresh", "", gin.H{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "rotated refresh token must be dead")

	// Logout revokes the presented access token.
	w, _ = doJSON(t, r, http.MethodPost, "/api/auth/logout", newAccess, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, r, http.MethodGet, "/api/auth/me", newAccess, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	r, _ := newTestServer(t)
	registerAndLogin(t, r, "victim@example.com")

	w, resp := doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "victim@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "bad email or password", resp["error"])

	w, resp = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "ghost@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "bad email or password", resp["error"], "same message for unknown emails")
}

func TestForgotPasswordNeverRevealsAccounts(t *testing.T) {
	r, _ := newTestServer(t)
	registerAndLogin(t, r, "exists@example.com")

	w1, resp1 := doJSON(t, r, http.MethodPost, "/api/auth/forgot-password", "", gin.H{"email": "exists@example.com"})
	w2, resp2 := doJSON(t, r, http.MethodPost, "/api/auth/forgot-password", "", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, w1.Code)
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, resp1["message"], resp2["message"])
}
