package domain

import (
	"context"
	"encoding/json"
	"time"
)

// SettlementStatus is the relay status of a settlement message.
type SettlementStatus string

const (
	SettlementStatusPending      SettlementStatus = "PENDING"
	SettlementStatusAcknowledged SettlementStatus = "ACKNOWLEDGED"
	SettlementStatusFailed       SettlementStatus = "FAILED"
)

// SettlementAck is the hub's acknowledgment of a relayed settlement message,
// correlated by message id. Payload is forwarded verbatim.
type SettlementAck struct {
	MessageID string          `json:"id"`
	OrderID   string          `json:"orderId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// SettlementRecord journals a signed settlement message together with the
// order it settles and the outcome of its relay.
type SettlementRecord struct {
	ID        string
	OrderID   string
	Message   SettlementMessage
	Status    SettlementStatus
	Ack       []byte
	Error     string
	Attempts  int
	CreatedAt int64
	UpdatedAt int64
}

// NewSettlementRecord returns a pending record for the given signed message.
func NewSettlementRecord(orderID string, msg SettlementMessage) (*SettlementRecord, error) {
	if !msg.IsSigned() {
		return nil, ErrMessageNotSigned
	}
	now := time.Now().Unix()
	return &SettlementRecord{
		ID:        msg.ID,
		OrderID:   orderID,
		Message:   msg,
		Status:    SettlementStatusPending,
		Attempts:  1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsPending ...
func (r *SettlementRecord) IsPending() bool {
	return r.Status == SettlementStatusPending
}

// IsAcknowledged ...
func (r *SettlementRecord) IsAcknowledged() bool {
	return r.Status == SettlementStatusAcknowledged
}

// IsFailed ...
func (r *SettlementRecord) IsFailed() bool {
	return r.Status == SettlementStatusFailed
}

// Acknowledge stores the hub ack. Acknowledging twice is a no-op so that a
// status callback racing the synchronous ack does not fail.
func (r *SettlementRecord) Acknowledge(payload []byte) error {
	if r.IsAcknowledged() {
		return nil
	}
	if !r.IsPending() {
		return ErrSettlementNotPending
	}
	r.Status = SettlementStatusAcknowledged
	r.Ack = payload
	r.Error = ""
	r.UpdatedAt = time.Now().Unix()
	return nil
}

// Fail marks the relay as failed with the given reason.
func (r *SettlementRecord) Fail(reason error) error {
	if !r.IsPending() {
		return ErrSettlementNotPending
	}
	r.Status = SettlementStatusFailed
	if reason != nil {
		r.Error = reason.Error()
	}
	r.UpdatedAt = time.Now().Unix()
	return nil
}

// Retry moves a failed record back to pending before re-relaying the very
// same signed message.
func (r *SettlementRecord) Retry() error {
	if !r.IsFailed() {
		return ErrSettlementNotFailed
	}
	r.Status = SettlementStatusPending
	r.Attempts++
	r.UpdatedAt = time.Now().Unix()
	return nil
}

// SettlementRepository is the journal of relayed settlement messages.
type SettlementRepository interface {
	// AddSettlement fails with ErrSettlementAlreadyExists if a record with the
	// same id exists.
	AddSettlement(ctx context.Context, record SettlementRecord) error
	GetSettlement(ctx context.Context, id string) (*SettlementRecord, error)
	UpdateSettlement(
		ctx context.Context, id string,
		updateFn func(r *SettlementRecord) (*SettlementRecord, error),
	) error
	GetSettlementsByOrder(ctx context.Context, orderID string) ([]SettlementRecord, error)
	GetPendingSettlements(ctx context.Context) ([]SettlementRecord, error)
}
