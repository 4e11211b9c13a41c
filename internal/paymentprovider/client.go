// Package paymentprovider клиент API шлюза банковских переводов SePay
// и его wire-типы.
package paymentprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/music-premium/internal/config"
	"github.com/magabrotheeeer/music-premium/internal/lib/metrics"
)

var (
	// ErrRateLimited шлюз отвечал 429 и попытки закончились.
	ErrRateLimited = errors.New("gateway rate limit exceeded")
	// ErrNotConfigured не задан API-ключ шлюза.
	ErrNotConfigured = errors.New("gateway api key is not configured")
)

// Client клиент API списка транзакций.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	accountNumber string
	limit         int
	maxRetries    int
	retryDelay    time.Duration
	limiter       *rate.Limiter
}

// NewClient создаёт клиент по настройкам шлюза.
func NewClient(cfg config.Sepay) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		accountNumber: cfg.AccountNumber,
		limit:         cfg.ListLimit,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
		// API шлюза допускает 2 запроса в секунду
		limiter: rate.NewLimiter(rate.Limit(2), 2),
	}
}

// Configured сообщает, задан ли API-ключ.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// ListTransactions возвращает последние операции по счёту.
//
// На ответ 429 запрос повторяется до maxRetries раз с линейной паузой
// (attempt+1)*retryDelay. Другие ошибки не повторяются. Ожидание
// прерывается отменой ctx.
func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	const op = "paymentprovider.ListTransactions"
	if !c.Configured() {
		return nil, fmt.Errorf("%s: %w", op, ErrNotConfigured)
	}

	for attempt := 0; ; attempt++ {
		txs, status, err := c.listOnce(ctx)
		if err == nil {
			return txs, nil
		}
		if status != http.StatusTooManyRequests {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if attempt >= c.maxRetries {
			return nil, fmt.Errorf("%s: %w", op, ErrRateLimited)
		}

		metrics.GatewayRetries.Inc()
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *Client) listOnce(ctx context.Context) ([]Transaction, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	q := url.Values{}
	q.Set("account_number", c.accountNumber)
	q.Set("limit", strconv.Itoa(c.limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/transactions/list?"+q.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var body ListTransactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return body.Transactions, resp.StatusCode, nil
}
