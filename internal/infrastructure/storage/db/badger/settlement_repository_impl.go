package dbbadger

import (
	"context"
	"errors"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type settlementRepositoryImpl struct {
	store *badgerhold.Store
	// serializes read-modify-write cycles to avoid badger txn conflicts.
	lock *sync.Mutex
}

// NewSettlementRepositoryImpl initialize a badger implementation of the
// domain.SettlementRepository.
func NewSettlementRepositoryImpl(store *badgerhold.Store) domain.SettlementRepository {
	return &settlementRepositoryImpl{store, &sync.Mutex{}}
}

func (r *settlementRepositoryImpl) AddSettlement(
	_ context.Context, record domain.SettlementRecord,
) error {
	if err := r.store.Insert(record.ID, &record); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrSettlementAlreadyExists
		}
		return err
	}
	return nil
}

func (r *settlementRepositoryImpl) GetSettlement(
	_ context.Context, id string,
) (*domain.SettlementRecord, error) {
	var record domain.SettlementRecord
	if err := r.store.Get(id, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrSettlementNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *settlementRepositoryImpl) UpdateSettlement(
	_ context.Context, id string,
	updateFn func(r *domain.SettlementRecord) (*domain.SettlementRecord, error),
) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.store.Badger().Update(func(tx *badger.Txn) error {
		var record domain.SettlementRecord
		if err := r.store.TxGet(tx, id, &record); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				return domain.ErrSettlementNotFound
			}
			return err
		}

		updatedRecord, err := updateFn(&record)
		if err != nil {
			return err
		}
		return r.store.TxUpdate(tx, id, updatedRecord)
	})
}

func (r *settlementRepositoryImpl) GetSettlementsByOrder(
	_ context.Context, orderID string,
) ([]domain.SettlementRecord, error) {
	query := badgerhold.Where("OrderID").Eq(orderID)
	return r.findSettlements(query)
}

func (r *settlementRepositoryImpl) GetPendingSettlements(
	_ context.Context,
) ([]domain.SettlementRecord, error) {
	query := badgerhold.Where("Status").Eq(domain.SettlementStatusPending)
	return r.findSettlements(query)
}

func (r *settlementRepositoryImpl) findSettlements(
	query *badgerhold.Query,
) ([]domain.SettlementRecord, error) {
	var settlements []domain.SettlementRecord
	if err := r.store.Find(
		&settlements, query.SortBy("CreatedAt", "ID"),
	); err != nil {
		return nil, err
	}
	if settlements == nil {
		settlements = make([]domain.SettlementRecord, 0)
	}
	return settlements, nil
}
