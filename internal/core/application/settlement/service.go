package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
)

var (
	ErrMissingRegistry    = fmt.Errorf("missing asset registry")
	ErrMissingSigner      = fmt.Errorf("missing signer")
	ErrMissingHub         = fmt.Errorf("missing hub client")
	ErrMissingRepoManager = fmt.Errorf("missing repo manager")
	ErrMissingAckID       = fmt.Errorf("order status response must carry the settlement id")
)

// Service turns matched trades into signed settlement messages, journals and
// relays them to the hub, and correlates the hub acks back to the journal.
type Service struct {
	identity    domain.BrokerIdentity
	registry    *domain.AssetRegistry
	signer      ports.Signer
	hub         ports.Hub
	repoManager ports.RepoManager

	lock          sync.RWMutex
	statusHandler ports.OrderStatusHandler
}

// NewService builds the broker identity out of the signer address and the
// given matcher address, and subscribes the service to the hub acks.
func NewService(
	registry *domain.AssetRegistry,
	signer ports.Signer,
	matcherAddress string,
	hub ports.Hub,
	repoManager ports.RepoManager,
) (*Service, error) {
	if registry == nil {
		return nil, ErrMissingRegistry
	}
	if signer == nil {
		return nil, ErrMissingSigner
	}
	if hub == nil {
		return nil, ErrMissingHub
	}
	if repoManager == nil {
		return nil, ErrMissingRepoManager
	}

	identity, err := domain.NewBrokerIdentity(signer.Address(), matcherAddress)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		identity:    identity,
		registry:    registry,
		signer:      signer,
		hub:         hub,
		repoManager: repoManager,
	}
	hub.OnOrderStatusResponse(svc)
	return svc, nil
}

// Identity returns the addresses stamped on every message.
func (s *Service) Identity() domain.BrokerIdentity {
	return s.identity
}

// Registration returns the payload sent to the hub at startup. The callback
// url is filled by the hub client.
func (s *Service) Registration() domain.BrokerRegistration {
	return domain.BrokerRegistration{
		Address:   s.identity.Address,
		PublicKey: s.signer.PublicKey(),
	}
}

// SetStatusHandler sets an optional handler notified with every hub ack once
// the journal has been updated.
func (s *Service) SetStatusHandler(handler ports.OrderStatusHandler) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.statusHandler = handler
}

// SignTrade builds the settlement message for the given trade and computes
// its id and signature.
func (s *Service) SignTrade(
	subOrder domain.SubOrder, trade domain.Trade,
) (*domain.SettlementMessage, error) {
	msg, err := domain.NewSettlementMessage(s.identity, s.registry, subOrder, trade)
	if err != nil {
		return nil, err
	}

	id, err := s.signer.HashMessage(*msg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash settlement message: %w", err)
	}
	signature, err := s.signer.SignMessage(*msg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign settlement message: %w", err)
	}
	msg.ID = id
	msg.Signature = signature
	return msg, nil
}

// SettleTrade signs the trade, journals the message as pending and relays it
// to the hub. A relay failure marks the journal record as failed and is
// returned, wrapped with the message id, so that the caller can reconcile the
// order or resend the message later.
func (s *Service) SettleTrade(
	ctx context.Context, orderID string,
	subOrder domain.SubOrder, trade domain.Trade,
) (*domain.SettlementMessage, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidOrderID
	}

	msg, err := s.SignTrade(subOrder, trade)
	if err != nil {
		return nil, err
	}

	record, err := domain.NewSettlementRecord(orderID, *msg)
	if err != nil {
		return nil, err
	}
	if err := s.repoManager.SettlementRepository().AddSettlement(
		ctx, *record,
	); err != nil {
		return nil, fmt.Errorf("settlement %s: %w", msg.ID, err)
	}

	if _, err := s.relay(ctx, orderID, *msg); err != nil {
		return nil, fmt.Errorf("settlement %s: %w", msg.ID, err)
	}
	return msg, nil
}

// ResendSettlement relays again the very same signed message of a failed
// settlement.
func (s *Service) ResendSettlement(
	ctx context.Context, id string,
) (*domain.SettlementAck, error) {
	repo := s.repoManager.SettlementRepository()

	var record *domain.SettlementRecord
	if err := repo.UpdateSettlement(
		ctx, id,
		func(r *domain.SettlementRecord) (*domain.SettlementRecord, error) {
			if err := r.Retry(); err != nil {
				return nil, err
			}
			record = r
			return r, nil
		},
	); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"id": id, "attempt": record.Attempts,
	}).Info("resending settlement")

	return s.relay(ctx, record.OrderID, record.Message)
}

// OnOrderStatus correlates a hub ack with the journal by message id. Acks are
// forwarded to the status handler even if they don't match any settlement.
func (s *Service) OnOrderStatus(ctx context.Context, ack domain.SettlementAck) error {
	if ack.MessageID == "" {
		return ErrMissingAckID
	}

	err := s.repoManager.SettlementRepository().UpdateSettlement(
		ctx, ack.MessageID,
		func(r *domain.SettlementRecord) (*domain.SettlementRecord, error) {
			if err := r.Acknowledge(ack.Payload); err != nil {
				return nil, err
			}
			return r, nil
		},
	)
	if err != nil {
		log.WithError(err).WithField("id", ack.MessageID).Warn(
			"failed to correlate order status response",
		)
	} else {
		log.WithField("id", ack.MessageID).Debug("settlement acknowledged")
	}

	if handler := s.getStatusHandler(); handler != nil {
		if err := handler.OnOrderStatus(ctx, ack); err != nil {
			log.WithError(err).WithField("id", ack.MessageID).Error(
				"order status handler failed",
			)
		}
	}
	return err
}

func (s *Service) GetSettlement(
	ctx context.Context, id string,
) (*domain.SettlementRecord, error) {
	return s.repoManager.SettlementRepository().GetSettlement(ctx, id)
}

func (s *Service) ListSettlementsByOrder(
	ctx context.Context, orderID string,
) ([]domain.SettlementRecord, error) {
	return s.repoManager.SettlementRepository().GetSettlementsByOrder(ctx, orderID)
}

func (s *Service) ListPendingSettlements(
	ctx context.Context,
) ([]domain.SettlementRecord, error) {
	return s.repoManager.SettlementRepository().GetPendingSettlements(ctx)
}

// relay sends the message to the hub. On success the hub client has already
// dispatched the ack to OnOrderStatus.
func (s *Service) relay(
	ctx context.Context, orderID string, msg domain.SettlementMessage,
) (*domain.SettlementAck, error) {
	ack, err := s.hub.SendTrade(ctx, orderID, msg)
	if err == nil {
		return ack, nil
	}

	if updateErr := s.repoManager.SettlementRepository().UpdateSettlement(
		ctx, msg.ID,
		func(r *domain.SettlementRecord) (*domain.SettlementRecord, error) {
			if err := r.Fail(err); err != nil {
				return nil, err
			}
			return r, nil
		},
	); updateErr != nil && !errors.Is(updateErr, domain.ErrSettlementNotPending) {
		log.WithError(updateErr).WithField("id", msg.ID).Error(
			"failed to mark settlement as failed",
		)
	}
	return nil, err
}

func (s *Service) getStatusHandler() ports.OrderStatusHandler {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.statusHandler
}
