package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Gateway creates orders with an external payment provider and checks the
// signatures it returns after checkout.
//
//go:generate mockery --name Gateway --output ../mocks --outpkg mocks
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

// Razorpay talks to the Razorpay orders API.
type Razorpay struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

// NewRazorpay creates a Razorpay gateway. A nil client gets a 30s timeout.
func NewRazorpay(baseURL, keyID, keySecret string, client *http.Client) *Razorpay {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Razorpay{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		client:    client,
	}
}

var _ Gateway = (*Razorpay)(nil)

// KeyID is the public key checkout clients need alongside an order.
func (r *Razorpay) KeyID() string {
	return r.keyID
}

type orderRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Receipt        string `json:"receipt"`
	PaymentCapture int    `json:"payment_capture"`
}

type orderResponse struct {
	ID string `json:"id"`
}

// CreateOrder registers an auto-captured order and returns its id.
func (r *Razorpay) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error) {
	body, err := json.Marshal(orderRequest{
		Amount:         amountMinor,
		Currency:       currency,
		Receipt:        receipt,
		PaymentCapture: 1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.keyID, r.keySecret)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("order request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode order response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("order response has no id")
	}
	return out.ID, nil
}

// VerifySignature checks a checkout signature in constant time.
func (r *Razorpay) VerifySignature(orderID, paymentID, signature string) bool {
	want := Sign(r.keySecret, orderID, paymentID)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(signature)))
}

// Sign computes the checkout signature for an order and payment.
func Sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
