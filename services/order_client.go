package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// OrderNotifier informs the order service of a payment outcome so order
// fulfillment can proceed.
type OrderNotifier interface {
	UpdatePaymentStatus(ctx context.Context, orderID, paymentStatus, paymentID string) error
}

// OrderClient communicates with the order service via HTTP.
type OrderClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOrderClient(baseURL string) *OrderClient {
	return &OrderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PaymentUpdateRequest is the payload sent to POST /orders/payment-update.
type PaymentUpdateRequest struct {
	OrderID       string `json:"orderId"`
	PaymentStatus string `json:"paymentStatus"`
	PaymentID     string `json:"paymentId"`
}

// UpdatePaymentStatus tells the order service that an order's payment
// reached the given status.
func (c *OrderClient) UpdatePaymentStatus(ctx context.Context, orderID, paymentStatus, paymentID string) error {
	payload := PaymentUpdateRequest{
		OrderID:       orderID,
		PaymentStatus: paymentStatus,
		PaymentID:     paymentID,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/orders/payment-update", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		errMsg := errResp["error"]
		if errMsg == "" {
			errMsg = fmt.Sprintf("order service returned %d", resp.StatusCode)
		}
		return fmt.Errorf("payment update failed: %s", errMsg)
	}
	return nil
}
