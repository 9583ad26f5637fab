// Package binance implements exchange.Client and exchange.PriceProvider for Binance spot.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"altcoin-jumper/internal/observability"
)

// Default configuration values.
const (
	DefaultBaseURL     = "https://api.binance.com"
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
	DefaultRecvWindow  = 5000 // milliseconds
	DefaultFee         = 0.001
)

// Client talks to the Binance spot REST API.
type Client struct {
	baseURL     string
	apiKey      string
	secretKey   string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	recvWindow  int
	now         func() time.Time
	log         zerolog.Logger

	symbolsMu sync.RWMutex
	symbols   map[string]*symbolInfo

	feesMu sync.RWMutex
	fees   map[string]tradeFee
}

// ClientOption configures Client.
type ClientOption func(*Client)

// WithBaseURL sets the REST endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for idempotent requests.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.client = client
	}
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log.With().Str("component", "binance").Logger()
	}
}

// WithClock overrides the clock used for request timestamps.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Binance REST client.
func NewClient(apiKey, secretKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     DefaultBaseURL,
		apiKey:      apiKey,
		secretKey:   secretKey,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
		recvWindow:  DefaultRecvWindow,
		now:         time.Now,
		log:         zerolog.Nop(),
		symbols:     make(map[string]*symbolInfo),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is an error payload returned by Binance with a 4xx status.
type APIError struct {
	Status int
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance error %d (http %d): %s", e.Code, e.Status, e.Msg)
}

// request describes one REST call.
type request struct {
	method string
	path   string
	params url.Values
	signed bool
	retry  bool // only idempotent requests are retried
}

// do performs the request with retries and exponential backoff, decoding the body into result.
func (c *Client) do(ctx context.Context, r request, result interface{}) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordExchangeCall(r.path, time.Since(start).Seconds(), err)
	}()

	attempts := 1
	if r.retry {
		attempts += c.maxRetries
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		body, status, err := c.send(ctx, r)
		if err != nil {
			lastErr = err
			continue
		}

		if status == http.StatusTooManyRequests || status == http.StatusTeapot {
			lastErr = fmt.Errorf("rate limited (%d)", status)
			continue
		}

		if status >= 500 {
			lastErr = fmt.Errorf("unexpected status %d: %s", status, string(body))
			continue
		}

		if status != http.StatusOK {
			// 4xx: the request was understood and rejected; retrying will not help
			apiErr := &APIError{Status: status}
			if jsonErr := json.Unmarshal(body, apiErr); jsonErr != nil {
				apiErr.Msg = string(body)
			}
			return apiErr
		}

		if result != nil {
			if err := json.Unmarshal(body, result); err != nil {
				return fmt.Errorf("unmarshal %s response: %w", r.path, err)
			}
		}
		return nil
	}

	return fmt.Errorf("max retries exceeded for %s: %w", r.path, lastErr)
}

func (c *Client) send(ctx context.Context, r request) ([]byte, int, error) {
	params := url.Values{}
	for k, v := range r.params {
		params[k] = v
	}
	if r.signed {
		params.Set("recvWindow", strconv.Itoa(c.recvWindow))
		params.Set("timestamp", strconv.FormatInt(c.now().UnixMilli(), 10))
	}

	query := params.Encode()
	if r.signed {
		query += "&signature=" + c.sign(query)
	}

	endpoint := c.baseURL + r.path
	var reqBody io.Reader
	if r.method == http.MethodGet {
		if query != "" {
			endpoint += "?" + query
		}
	} else {
		reqBody = strings.NewReader(query)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if r.signed || c.apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// sign returns the hex HMAC-SHA256 of payload keyed by the secret.
func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
