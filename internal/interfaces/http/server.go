package httpinterface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
	"github.com/spintrade/orion-broker/internal/interfaces"
	"github.com/spintrade/orion-broker/pkg/hubtoken"
)

const (
	orderPath       = "/api/order"
	orderStatusPath = "/api/order/status"
	metricsPath     = "/metrics"

	maxBodySize     = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Config ...
type Config struct {
	Address string
	// Secret, if set, is used to verify the bearer token of every hub call.
	Secret string
}

// Server is the callback surface invoked by the hub. Every failure, including
// a panicking handler, is turned into an error envelope.
type Server struct {
	*httprouter.Router

	registry      *domain.AssetRegistry
	orders        ports.OrderManager
	statusHandler ports.OrderStatusHandler
	secret        string

	srv *http.Server
}

var _ interfaces.Service = (*Server)(nil)

// NewServer returns a server that validates the hub payloads against the
// registry and dispatches them to the order manager and to the order status
// handler.
func NewServer(
	cfg Config,
	registry *domain.AssetRegistry,
	orders ports.OrderManager,
	statusHandler ports.OrderStatusHandler,
) (*Server, error) {
	if cfg.Address == "" {
		return nil, ErrMissingAddress
	}
	if registry == nil {
		return nil, ErrMissingRegistry
	}
	if orders == nil {
		return nil, ErrMissingOrders
	}
	if statusHandler == nil {
		return nil, ErrMissingStatus
	}

	s := &Server{
		Router:        httprouter.New(),
		registry:      registry,
		orders:        orders,
		statusHandler: statusHandler,
		secret:        cfg.Secret,
	}
	s.PanicHandler = s.recoverPanic

	s.POST(orderPath, s.withAuth(s.CreateOrder))
	s.DELETE(orderPath, s.withAuth(s.CancelOrder))
	s.POST(orderStatusPath, s.withAuth(s.OrderStatus))
	s.Handler(http.MethodGet, metricsPath, promhttp.Handler())

	s.srv = &http.Server{
		Addr:              cfg.Address,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// ServeHTTP logs every request before routing it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log.WithFields(log.Fields{
		"method": r.Method, "path": r.URL.Path,
	}).Debug("callback request")
	s.Router.ServeHTTP(w, r)
}

// Start listens until Stop is called.
func (s *Server) Start() error {
	log.Infof("callback server listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("error on callback server shutdown")
	}
	log.Debug("callback server stopped")
}

// CreateOrder handles a hub-initiated order creation.
func (s *Server) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := domain.CreateOrderRequest{}
	if err := unmarshalBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.Validate(s.registry); err != nil {
		s.fail(w, r, err)
		return
	}

	order, err := s.orders.CreateOrder(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, order, http.StatusOK)
}

// CancelOrder handles a hub-initiated order cancellation.
func (s *Server) CancelOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req := domain.CancelOrderRequest{}
	if err := unmarshalBody(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}

	order, err := s.orders.CancelOrder(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeSuccess(w, order, http.StatusOK)
}

type orderStatusResponse struct {
	ID      string `json:"id"`
	OrderID string `json:"orderId"`
}

// OrderStatus handles a hub-initiated order status response. The whole body
// is forwarded as ack payload.
func (s *Server) OrderStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	body, err := readBody(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp := orderStatusResponse{}
	if err := json.Unmarshal(body, &resp); err != nil {
		s.fail(w, r, errUnsupportedPayload)
		return
	}
	if resp.ID == "" {
		s.fail(w, r, ErrMissingAckID)
		return
	}

	ack := domain.SettlementAck{
		MessageID: resp.ID,
		OrderID:   resp.OrderID,
		Payload:   body,
	}
	if err := s.statusHandler.OnOrderStatus(r.Context(), ack); err != nil {
		// The ack has been forwarded anyway, the journal just doesn't track a
		// pending settlement with this id.
		if !errors.Is(err, domain.ErrSettlementNotFound) &&
			!errors.Is(err, domain.ErrSettlementNotPending) {
			s.fail(w, r, err)
			return
		}
		log.WithError(err).WithField("id", resp.ID).Warn(
			"order status response does not match any pending settlement",
		)
	}
	writeSuccess(w, map[string]string{"id": resp.ID}, http.StatusOK)
}

func (s *Server) withAuth(handle httprouter.Handle) httprouter.Handle {
	if s.secret == "" {
		return handle
	}
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if err := hubtoken.VerifyAuthorizationHeader(
			s.secret, r.Header.Get("Authorization"),
		); err != nil {
			log.WithError(err).Warnf("rejected unauthorized call to %s", r.URL.Path)
			writeError(w, ErrUnauthorized, http.StatusUnauthorized)
			return
		}
		handle(w, r, p)
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	log.WithError(err).Errorf("%s %s failed", r.Method, r.URL.Path)
	writeError(w, err, http.StatusBadRequest)
}

func (s *Server) recoverPanic(w http.ResponseWriter, r *http.Request, v interface{}) {
	s.fail(w, r, fmt.Errorf("%w: %v", errUnexpectedFailure, v))
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	return body, nil
}

func unmarshalBody(w http.ResponseWriter, r *http.Request, into interface{}) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, into); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	return nil
}
