package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/bom"
	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/domain/stocksync"
)

// maxResponseSize is the maximum response body read from the storefront (1MB)
const maxResponseSize = 1 << 20

// ErrUnexpectedStatus wraps non-2xx responses that are not otherwise classified
var ErrUnexpectedStatus = errors.New("storefront: unexpected response status")

// Client implements stocksync.StockProvider against a storefront REST API.
// Each account reaches the storefront registered for it; accounts without an
// entry use the default configuration, or fail with ErrAccountNotConfigured
// when the client has none.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger

	mu       sync.RWMutex
	accounts map[uuid.UUID]*accountClient
	fallback *accountClient
}

type accountClient struct {
	config  *Config
	limiter *rate.Limiter
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the HTTP client, e.g. for tracing transports
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// NewClient creates a storefront client serving every account from config
func NewClient(config *Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return NewClientForAccounts(config, nil, logger, opts...)
}

// NewClientForAccounts creates a client that routes each listed account to
// its own storefront. def serves unlisted accounts and may be nil, in which
// case they are refused instead of being written to another account's store.
func NewClientForAccounts(def *Config, accounts map[uuid.UUID]*Config, logger *zap.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		httpClient: &http.Client{},
		logger:     logger.With(zap.String("component", "storefront_client")),
		accounts:   make(map[uuid.UUID]*accountClient, len(accounts)),
	}
	if def != nil {
		if err := def.Validate(); err != nil {
			return nil, err
		}
		c.fallback = newAccountClient(def)
	}
	for accountID, cfg := range accounts {
		if err := c.SetAccountConfig(accountID, cfg); err != nil {
			return nil, fmt.Errorf("storefront account %s: %w", accountID, err)
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func newAccountClient(config *Config) *accountClient {
	return &accountClient{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), config.RateBurst),
	}
}

// SetAccountConfig registers account-specific storefront credentials
func (c *Client) SetAccountConfig(accountID uuid.UUID, config *Config) error {
	if config == nil {
		return ErrConfigMissingBaseURL
	}
	if err := config.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[accountID] = newAccountClient(config)
	return nil
}

func (c *Client) accountClient(accountID uuid.UUID) (*accountClient, error) {
	c.mu.RLock()
	ac, ok := c.accounts[accountID]
	c.mu.RUnlock()
	if ok {
		return ac, nil
	}
	if c.fallback != nil {
		return c.fallback, nil
	}
	return nil, ErrAccountNotConfigured
}

// GetStock returns the recorded stock, or nil when the storefront does not
// manage stock for the product
func (c *Client) GetStock(ctx context.Context, accountID uuid.UUID, ref bom.ExternalRef) (*int64, error) {
	var product productStock
	if err := c.do(ctx, accountID, http.MethodGet, ref, nil, &product); err != nil {
		return nil, err
	}
	if !product.ManageStock {
		return nil, nil
	}
	return product.StockQuantity, nil
}

// SetStock writes an absolute stock quantity and turns on stock management
func (c *Client) SetStock(ctx context.Context, accountID uuid.UUID, ref bom.ExternalRef, quantity int64) error {
	if quantity < 0 {
		return stocksync.NewExternalSyncFailure(stocksync.FailureReasonValidation, ref, stocksync.ErrNegativeStock)
	}
	body := stockUpdate{ManageStock: true, StockQuantity: quantity}
	if err := c.do(ctx, accountID, http.MethodPut, ref, body, nil); err != nil {
		return err
	}
	c.logger.Debug("Storefront stock updated",
		zap.String("account_id", accountID.String()),
		zap.String("ref", ref.String()),
		zap.Int64("quantity", quantity),
	)
	return nil
}

func productPath(ref bom.ExternalRef) string {
	if ref.VariationID != 0 {
		return fmt.Sprintf("/products/%d/variations/%d", ref.ExternalID, ref.VariationID)
	}
	return fmt.Sprintf("/products/%d", ref.ExternalID)
}

// do performs one rate-limited request. All failures are returned as
// *stocksync.ExternalSyncFailure.
func (c *Client) do(ctx context.Context, accountID uuid.UUID, method string, ref bom.ExternalRef, in, out any) error {
	ac, err := c.accountClient(accountID)
	if err != nil {
		return stocksync.NewExternalSyncFailure(stocksync.FailureReasonAuth, ref, err)
	}
	if ref.ExternalID <= 0 {
		return stocksync.NewExternalSyncFailure(stocksync.FailureReasonValidation, ref, stocksync.ErrInvalidProduct)
	}

	if err := ac.limiter.Wait(ctx); err != nil {
		return stocksync.NewExternalSyncFailure(stocksync.FailureReasonNetwork, ref, err)
	}
	ctx, cancel := context.WithTimeout(ctx, ac.config.Timeout)
	defer cancel()

	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return stocksync.NewExternalSyncFailure(stocksync.FailureReasonUnknown, ref, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, ac.config.BaseURL+productPath(ref), reader)
	if err != nil {
		return stocksync.NewExternalSyncFailure(stocksync.FailureReasonUnknown, ref, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch ac.config.AuthMethod {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+ac.config.APIKey)
	default:
		req.SetBasicAuth(ac.config.APIKey, ac.config.APISecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stocksync.NewExternalSyncFailure(stocksync.FailureReasonNetwork, ref, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return stocksync.NewExternalSyncFailure(stocksync.FailureReasonNetwork, ref, err)
	}

	if resp.StatusCode >= 300 {
		reason := ClassifyStatus(resp.StatusCode)
		c.logger.Warn("Storefront request failed",
			zap.String("method", method),
			zap.String("ref", ref.String()),
			zap.Int("status", resp.StatusCode),
			zap.String("reason", string(reason)),
		)
		return stocksync.NewExternalSyncFailure(reason, ref, statusError(resp.StatusCode, body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return stocksync.NewExternalSyncFailure(stocksync.FailureReasonUnknown, ref,
				fmt.Errorf("storefront: failed to parse response: %w", err))
		}
	}
	return nil
}

// ClassifyStatus maps an HTTP status to the failure reason reported upstream
func ClassifyStatus(status int) stocksync.FailureReason {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return stocksync.FailureReasonAuth
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusNotFound:
		return stocksync.FailureReasonValidation
	case status == http.StatusTooManyRequests || status >= 500:
		return stocksync.FailureReasonNetwork
	default:
		return stocksync.FailureReasonUnknown
	}
}

func statusError(status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("%w: HTTP %d %s: %s", ErrUnexpectedStatus, status, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: HTTP %d", ErrUnexpectedStatus, status)
}

var _ stocksync.StockProvider = (*Client)(nil)
