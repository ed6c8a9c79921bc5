/**
 * @description
 * This package provides the payment gateway abstraction for the
 * settlement-service. The active gateway is a strategy selected by
 * configuration, not hard-coded branching per provider: the settlement engine
 * consumes the Client interface and never knows which provider is behind it.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Payment is the provider-independent view of one gateway charge, reduced to
// the fields the settlement core reads.
type Payment struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"` // normalized: confirmed, received, refunded, failed, pending
	Amount      int64  `json:"amount"` // in cents
	PaymentDate string `json:"payment_date"`
}

// Client is the gateway strategy consumed by the settlement engine.
type Client interface {
	GetPayment(ctx context.Context, reference string) (*Payment, error)
}

// New selects the gateway implementation by provider name. An unknown provider
// is a configuration error.
func New(provider, baseURL, apiKey string) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "asaas", "":
		return NewAsaasClient(baseURL, apiKey), nil
	default:
		return nil, fmt.Errorf("unknown gateway provider %q", provider)
	}
}

// AsaasClient is a client for the Asaas payments API.
type AsaasClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewAsaasClient creates a new Asaas API client.
func NewAsaasClient(baseURL, apiKey string) *AsaasClient {
	return &AsaasClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// asaasPayment mirrors the fields of the provider's payment resource the
// settlement core cares about. Amounts come back in whole currency units.
type asaasPayment struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Value       float64 `json:"value"`
	PaymentDate string  `json:"paymentDate"`
}

// GetPayment fetches one payment from the gateway and normalizes it.
func (c *AsaasClient) GetPayment(ctx context.Context, reference string) (*Payment, error) {
	url := fmt.Sprintf("%s/v3/payments/%s", c.BaseURL, reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("access_token", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	var payment asaasPayment
	if err := json.Unmarshal(body, &payment); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &Payment{
		Reference:   payment.ID,
		Status:      normalizeStatus(payment.Status),
		Amount:      int64(payment.Value*100 + 0.5),
		PaymentDate: payment.PaymentDate,
	}, nil
}

// normalizeStatus maps the provider's status vocabulary onto the service's.
func normalizeStatus(status string) string {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CONFIRMED":
		return "confirmed"
	case "RECEIVED", "RECEIVED_IN_CASH":
		return "received"
	case "REFUNDED":
		return "refunded"
	case "OVERDUE", "CHARGEBACK_REQUESTED", "FAILED":
		return "failed"
	default:
		return "pending"
	}
}
