package hubrest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
	"github.com/spintrade/orion-broker/pkg/circuitbreaker"
	"github.com/spintrade/orion-broker/pkg/hubtoken"
)

const (
	opRegister = "register"
	opBalance  = "balance"
	opTrade    = "trade"

	// StatusRegistered is the status returned by the hub for a broker
	// registered for the first time.
	StatusRegistered = "REGISTERED"

	callbackPath     = "/api"
	tokenIssuer      = "orion-broker"
	requestIDHeader  = "X-Request-Id"
	defaultTimeout   = 30 * time.Second
	maxLoggedBodyLen = 512
)

// Config holds the endpoints of the hub and of the broker itself.
type Config struct {
	// HubURL serves registration and balance pushes.
	HubURL string
	// BlockchainURL serves trade relays. Defaults to HubURL.
	BlockchainURL string
	// CallbackURL is the public base url of this broker.
	CallbackURL string
	// Secret, if set, is used to sign a bearer token for every request.
	Secret         string
	RequestTimeout time.Duration
}

func (c Config) validate() error {
	if c.HubURL == "" {
		return ErrMissingHubURL
	}
	if c.CallbackURL == "" {
		return ErrMissingCallbackURL
	}
	return nil
}

type registerResponse struct {
	Status string `json:"status"`
	Broker string `json:"broker"`
}

// Client is the REST implementation of the hub protocol. Every operation runs
// through its own circuit breaker so that an unreachable endpoint fails fast
// without affecting the others.
type Client struct {
	hubURL        string
	blockchainURL string
	callbackURL   string
	secret        string

	http     *client
	breakers map[string]*gobreaker.CircuitBreaker

	state int32

	lock          sync.RWMutex
	statusHandler ports.OrderStatusHandler
}

// NewClient returns a disconnected client for the given config.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.BlockchainURL == "" {
		cfg.BlockchainURL = cfg.HubURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}

	return &Client{
		hubURL:        strings.TrimSuffix(cfg.HubURL, "/"),
		blockchainURL: strings.TrimSuffix(cfg.BlockchainURL, "/"),
		callbackURL:   strings.TrimSuffix(cfg.CallbackURL, "/"),
		secret:        cfg.Secret,
		http:          newHTTPClient(cfg.RequestTimeout),
		breakers: map[string]*gobreaker.CircuitBreaker{
			opRegister: circuitbreaker.NewCircuitBreaker("hub " + opRegister),
			opBalance:  circuitbreaker.NewCircuitBreaker("hub " + opBalance),
			opTrade:    circuitbreaker.NewCircuitBreaker("hub " + opTrade),
		},
	}, nil
}

// Connect is a lifecycle hook, the transport is stateless.
func (c *Client) Connect(_ context.Context) error {
	return nil
}

// Disconnect resets the registration state.
func (c *Client) Disconnect(_ context.Context) error {
	c.setState(ports.HubDisconnected)
	return nil
}

func (c *Client) State() ports.HubState {
	return ports.HubState(atomic.LoadInt32(&c.state))
}

func (c *Client) OnOrderStatusResponse(handler ports.OrderStatusHandler) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.statusHandler = handler
}

// Register sends the broker identity along with its callback url. Any JSON
// reply of the hub is a successful registration, whatever the status code;
// other failures are logged and leave the broker disconnected.
func (c *Client) Register(
	ctx context.Context, registration domain.BrokerRegistration,
) ports.Logged {
	outcome := ports.Logged{Op: opRegister}
	c.setState(ports.HubRegistering)

	registration.CallbackURL = c.callbackURL + callbackPath
	body, err := c.post(ctx, opRegister, c.hubURL+"/register", registration)
	if err != nil {
		var hubErr *HubError
		if !errors.As(err, &hubErr) || !hubErr.hasJSONBody() {
			c.setState(ports.HubDisconnected)
			log.WithError(err).Warn("error on broker registration")
			outcome.Err = err
			return outcome
		}
		log.WithField("status", hubErr.StatusCode).Debug(
			"hub replied to registration with an error status",
		)
		body = hubErr.body
	}

	var resp registerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		log.WithError(err).Warnf(
			"unexpected registration response: %s", truncate(body),
		)
	}
	outcome.Status = resp.Status

	if resp.Status == StatusRegistered {
		log.WithField("broker", resp.Broker).Info("broker has been registered")
	} else {
		log.WithField("response", truncate(body)).Info("broker connected")
	}
	c.setState(ports.HubRegistered)
	return outcome
}

// SendBalances pushes the snapshot to the hub. Failures are only logged.
func (c *Client) SendBalances(
	ctx context.Context, snapshot domain.BalanceSnapshot,
) ports.Logged {
	outcome := ports.Logged{Op: opBalance}
	if _, err := c.post(ctx, opBalance, c.hubURL+"/balance", snapshot); err != nil {
		log.WithError(err).Error("error on broker balance push")
		outcome.Err = err
	}
	return outcome
}

// SendTrade relays the signed message and forwards the hub ack to the order
// status handler. Errors are logged and returned: an unrelayed trade must be
// reconciled by the caller.
func (c *Client) SendTrade(
	ctx context.Context, orderID string, msg domain.SettlementMessage,
) (*domain.SettlementAck, error) {
	if !msg.IsSigned() {
		return nil, domain.ErrMessageNotSigned
	}

	logger := log.WithFields(log.Fields{"id": msg.ID, "order": orderID})
	logger.Debug("sending trade")

	body, err := c.post(ctx, opTrade, c.blockchainURL+"/trade", msg)
	if err != nil {
		logger.WithError(err).Error("error on trade relay")
		return nil, err
	}
	logger.WithField("response", truncate(body)).Debug("trade relayed")

	ack := &domain.SettlementAck{
		MessageID: msg.ID,
		OrderID:   orderID,
		Payload:   rawPayload(body),
	}

	if handler := c.getStatusHandler(); handler != nil {
		if err := handler.OnOrderStatus(ctx, *ack); err != nil {
			logger.WithError(err).Error("order status handler failed")
		}
	}
	return ack, nil
}

func (c *Client) post(
	ctx context.Context, op, url string, payload interface{},
) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to serialize request: %w", op, err)
	}

	headers := map[string]string{
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		requestIDHeader: uuid.New().String(),
	}
	if len(c.secret) > 0 {
		auth, err := hubtoken.AuthorizationHeader(c.secret, tokenIssuer)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to sign bearer token: %w", op, err)
		}
		headers["Authorization"] = auth
	}

	start := time.Now()
	res, err := c.breakers[op].Execute(func() (interface{}, error) {
		status, body, err := c.http.post(ctx, url, reqBody, headers)
		if err != nil {
			return nil, &HubError{Op: op, URL: url, Err: ErrHubUnreachable, Cause: err}
		}
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return nil, &HubError{
				Op: op, URL: url, StatusCode: status, Body: truncate(body),
				Err: ErrHubRejected, body: body,
			}
		}
		return body, nil
	})
	hubRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		var hubErr *HubError
		if !errors.As(err, &hubErr) {
			// Breaker is open or too many half-open requests.
			hubErr = &HubError{Op: op, URL: url, Err: ErrHubUnreachable, Cause: err}
		}
		result := resultUnreachable
		if errors.Is(hubErr, ErrHubRejected) {
			result = resultRejected
		}
		hubRequests.WithLabelValues(op, result).Inc()
		return nil, hubErr
	}

	hubRequests.WithLabelValues(op, resultOK).Inc()
	return res.([]byte), nil
}

func (c *Client) setState(state ports.HubState) {
	atomic.StoreInt32(&c.state, int32(state))
	hubState.Set(float64(state))
}

func (c *Client) getStatusHandler() ports.OrderStatusHandler {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.statusHandler
}

// rawPayload returns the body as a JSON value, quoting it if the hub replied
// with something else than JSON.
func rawPayload(body []byte) json.RawMessage {
	if len(body) <= 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, _ := json.Marshal(string(body))
	return quoted
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBodyLen {
		return string(body[:maxLoggedBodyLen]) + "..."
	}
	return string(body)
}
