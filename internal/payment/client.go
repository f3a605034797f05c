// Package payment предоставляет клиент для внешней платёжной системы.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StatusSucceeded: единственный статус, который считается успешной оплатой.
const StatusSucceeded = "succeeded"

// Статусы, означающие окончательный отказ.
const (
	StatusCanceled = "canceled"
	StatusFailed   = "failed"
)

// ErrNotConfigured возвращается, если адрес платёжной системы не задан.
var ErrNotConfigured = errors.New("payment client not configured")

// Intent описывает созданное намерение оплаты.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// Confirmation описывает ответ платёжной системы о подтверждении оплаты.
// Amount в минимальных единицах валюты; 0, если платёжная система сумму не сообщила.
type Confirmation struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Amount int64  `json:"amount,omitempty"`
}

// Succeeded сообщает, подтвердила ли платёжная система списание.
func (c *Confirmation) Succeeded() bool {
	return c != nil && c.Status == StatusSucceeded
}

// RateLimitError возвращается при ответе 429.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("payment system rate limited, retry after %s", e.RetryAfter)
}

// Client инкапсулирует HTTP-взаимодействие с платёжной системой.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient создаёт HTTP-клиент для обращения к платёжной системе по указанному адресу.
func NewClient(baseURL, apiKey string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type createIntentRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// CreateIntent создаёт намерение оплаты на сумму amountCents в минимальных единицах валюты.
func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string) (*Intent, error) {
	var intent Intent
	err := c.do(ctx, http.MethodPost, "/v1/payment_intents", createIntentRequest{
		Amount:   amountCents,
		Currency: currency,
	}, &intent)
	if err != nil {
		return nil, err
	}
	if intent.ClientSecret == "" {
		return nil, fmt.Errorf("create intent: empty client secret")
	}
	return &intent, nil
}

type confirmRequest struct {
	ClientSecret  string `json:"client_secret"`
	PaymentMethod string `json:"payment_method"`
}

// Confirm подтверждает оплату по секрету намерения.
func (c *Client) Confirm(ctx context.Context, clientSecret, paymentMethod string) (*Confirmation, error) {
	var conf Confirmation
	err := c.do(ctx, http.MethodPost, "/v1/payment_intents/confirm", confirmRequest{
		ClientSecret:  clientSecret,
		PaymentMethod: paymentMethod,
	}, &conf)
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

// Status запрашивает текущий статус намерения оплаты.
func (c *Client) Status(ctx context.Context, clientSecret string) (*Confirmation, error) {
	var conf Confirmation
	path := "/v1/payment_intents/status?client_secret=" + url.QueryEscape(clientSecret)
	if err := c.do(ctx, http.MethodGet, path, nil, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c == nil || c.baseURL == "" {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{RetryAfter: retryAfter}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
