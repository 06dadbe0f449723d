// Package cartapi is the REST client for the marketplace cart and checkout endpoints.
package cartapi

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
	"github.com/sony/gobreaker/v2"

	"github.com/angelmondragon/packfinderz-cart/internal/cart"
	"github.com/angelmondragon/packfinderz-cart/pkg/auth"
	"github.com/angelmondragon/packfinderz-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/packfinderz-cart/pkg/errors"
	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
)

const (
	headerRequestID = "X-Request-Id"
	maxBodyBytes    = 1 << 20
)

var (
	errBaseURLRequired = errors.New("remote base url is required")
	errLoggerRequired  = errors.New("cartapi logger is required")
	errServerStatus    = errors.New("remote server error")
)

type response struct {
	status int
	body   []byte
}

// Client implements cart.RemoteCart and cart.RemoteCheckout over HTTP.
type Client struct {
	baseURL   string
	authToken string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[response]
	logger    *logger.Logger
	requestID func() string
}

var (
	_ cart.RemoteCart     = (*Client)(nil)
	_ cart.RemoteCheckout = (*Client)(nil)
)

type Option func(*Client)

// WithHTTPClient replaces the default http.Client, which only carries the configured timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithRequestIDs(fn func() string) Option {
	return func(c *Client) {
		if fn != nil {
			c.requestID = fn
		}
	}
}

func New(cfg config.RemoteConfig, bc config.BreakerConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("parse remote base url: %w", err)
	}

	c := &Client{
		baseURL:   base,
		authToken: strings.TrimSpace(cfg.AuthToken),
		http:      &http.Client{Timeout: cfg.Timeout},
		logger:    logg,
		requestID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[response](breakerSettings(bc, logg))
	c.checkToken(time.Now())
	return c, nil
}

// checkToken warns about a bearer token the remote will reject. Opaque tokens
// are passed through untouched.
func (c *Client) checkToken(now time.Time) {
	if c.authToken == "" {
		return
	}
	info, err := auth.Inspect(c.authToken)
	if err != nil {
		c.logger.Debug(context.Background(), "remote token is not a jwt; skipping expiry check")
		return
	}
	ctx := c.logger.WithField(context.Background(), "token_subject", info.Subject)
	switch {
	case info.Expired(now):
		ctx = c.logger.WithField(ctx, "expired_at", info.ExpiresAt)
		c.logger.Warn(ctx, "remote auth token is expired")
	case info.ExpiresWithin(now, time.Hour):
		ctx = c.logger.WithField(ctx, "expires_at", info.ExpiresAt)
		c.logger.Warn(ctx, "remote auth token expires within the hour")
	}
}

func breakerSettings(bc config.BreakerConfig, logg *logger.Logger) gobreaker.Settings {
	threshold := bc.ConsecutiveFails
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.Settings{
		Name:        "remote-cart",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			logg.Warn(ctx, "remote cart breaker state changed")
		},
		IsSuccessful: func(err error) bool {
			// Only transport failures and 5xx responses count against the breaker.
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
}

// BreakerState reports the breaker state for the readiness probe.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) List(ctx context.Context) ([]cart.RemoteLine, error) {
	const op = "list"
	resp, err := c.do(ctx, op, http.MethodGet, "/cart", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeLines(op, resp.body)
}

func (c *Client) Add(ctx context.Context, productID int64, quantity int) (cart.RemoteLine, error) {
	const op = "add"
	query := url.Values{}
	query.Set("productId", formatID(productID))
	query.Set("quantity", strconv.Itoa(quantity))
	resp, err := c.do(ctx, op, http.MethodPost, "/cart/add", query, nil)
	if err != nil {
		return cart.RemoteLine{}, err
	}
	return decodeLine(op, resp.body)
}

func (c *Client) Remove(ctx context.Context, productID int64) error {
	_, err := c.do(ctx, "remove", http.MethodDelete, "/cart/remove/"+formatID(productID), nil, nil)
	return err
}

func (c *Client) Clear(ctx context.Context) error {
	_, err := c.do(ctx, "clear", http.MethodDelete, "/cart/clear", nil, nil)
	return err
}

func (c *Client) ValidateForCheckout(ctx context.Context) (cart.RemoteValidation, error) {
	const op = "validate"
	resp, err := c.do(ctx, op, http.MethodGet, "/cart/validate-for-checkout", nil, nil)
	if err != nil {
		return cart.RemoteValidation{}, err
	}
	return decodeValidation(op, resp.body)
}

func (c *Client) CreateCheckout(ctx context.Context, req cart.CheckoutRequest) (cart.CheckoutSession, error) {
	const op = "checkout"
	body, err := json.Marshal(wireCheckoutRequest{
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
		ProductIDs: req.ProductIDs,
	})
	if err != nil {
		return cart.CheckoutSession{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode checkout request")
	}
	resp, err := c.do(ctx, op, http.MethodPost, "/checkout/create-from-cart", nil, body)
	if err != nil {
		return cart.CheckoutSession{}, err
	}
	return decodeSession(op, resp.body)
}

// do sends one request through the breaker and returns the response only when it is a 2xx.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte) (response, error) {
	requestID := c.requestID()
	ctx = c.logger.WithFields(ctx, map[string]any{
		"remote_op":         op,
		"remote_request_id": requestID,
	})
	started := time.Now()

	resp, err := c.breaker.Execute(func() (response, error) {
		return c.send(ctx, method, path, query, body, requestID)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.logger.Warn(ctx, "remote cart breaker rejected call")
		return response{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remote cart unavailable")
	case errors.Is(err, errServerStatus):
		c.logger.Warn(c.logger.WithField(ctx, "status", resp.status), "remote cart server error")
		return response{}, errorFromResponse(op, resp)
	case err != nil:
		c.logger.WarnErr(ctx, "remote cart transport error", err)
		return response{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("remote %s failed", op))
	}

	ctx = c.logger.WithFields(ctx, map[string]any{
		"status":      resp.status,
		"duration_ms": time.Since(started).Milliseconds(),
	})
	if classify(resp.status) != kindSuccess {
		c.logger.Info(ctx, "remote cart rejected request")
		return response{}, errorFromResponse(op, resp)
	}
	c.logger.Debug(ctx, "remote cart call completed")
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body []byte, requestID string) (response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return response{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(headerRequestID, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return response{}, err
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return response{}, fmt.Errorf("read remote response: %w", err)
	}
	out := response{status: res.StatusCode, body: payload}
	if classify(res.StatusCode) == kindServer {
		return out, errServerStatus
	}
	return out, nil
}
