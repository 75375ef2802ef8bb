package inmemory

import (
	"context"
	"sort"
	"sync"

	"github.com/spintrade/orion-broker/internal/core/domain"
)

type settlementInmemoryStore struct {
	settlements map[string]domain.SettlementRecord
	locker      *sync.RWMutex
}

type settlementRepositoryImpl struct {
	store *settlementInmemoryStore
}

// NewSettlementRepositoryImpl returns a new inmemory SettlementRepository
// implementation. Records are stored and returned by value so that callers
// can't alter the journal without going through UpdateSettlement.
func NewSettlementRepositoryImpl() domain.SettlementRepository {
	return &settlementRepositoryImpl{
		store: &settlementInmemoryStore{
			settlements: map[string]domain.SettlementRecord{},
			locker:      &sync.RWMutex{},
		},
	}
}

func (r *settlementRepositoryImpl) AddSettlement(
	_ context.Context, record domain.SettlementRecord,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.settlements[record.ID]; ok {
		return domain.ErrSettlementAlreadyExists
	}
	r.store.settlements[record.ID] = copyRecord(record)
	return nil
}

func (r *settlementRepositoryImpl) GetSettlement(
	_ context.Context, id string,
) (*domain.SettlementRecord, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	record, ok := r.store.settlements[id]
	if !ok {
		return nil, domain.ErrSettlementNotFound
	}
	record = copyRecord(record)
	return &record, nil
}

func (r *settlementRepositoryImpl) UpdateSettlement(
	_ context.Context, id string,
	updateFn func(r *domain.SettlementRecord) (*domain.SettlementRecord, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	record, ok := r.store.settlements[id]
	if !ok {
		return domain.ErrSettlementNotFound
	}
	record = copyRecord(record)

	updatedRecord, err := updateFn(&record)
	if err != nil {
		return err
	}
	r.store.settlements[id] = copyRecord(*updatedRecord)
	return nil
}

func (r *settlementRepositoryImpl) GetSettlementsByOrder(
	_ context.Context, orderID string,
) ([]domain.SettlementRecord, error) {
	return r.find(func(s domain.SettlementRecord) bool {
		return s.OrderID == orderID
	}), nil
}

func (r *settlementRepositoryImpl) GetPendingSettlements(
	_ context.Context,
) ([]domain.SettlementRecord, error) {
	return r.find(func(s domain.SettlementRecord) bool {
		return s.IsPending()
	}), nil
}

func (r *settlementRepositoryImpl) find(
	filter func(s domain.SettlementRecord) bool,
) []domain.SettlementRecord {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	settlements := make([]domain.SettlementRecord, 0)
	for _, s := range r.store.settlements {
		if filter(s) {
			settlements = append(settlements, copyRecord(s))
		}
	}
	sort.SliceStable(settlements, func(i, j int) bool {
		if settlements[i].CreatedAt == settlements[j].CreatedAt {
			return settlements[i].ID < settlements[j].ID
		}
		return settlements[i].CreatedAt < settlements[j].CreatedAt
	})
	return settlements
}

func copyRecord(r domain.SettlementRecord) domain.SettlementRecord {
	if r.Ack != nil {
		ack := make([]byte, len(r.Ack))
		copy(ack, r.Ack)
		r.Ack = ack
	}
	return r
}
