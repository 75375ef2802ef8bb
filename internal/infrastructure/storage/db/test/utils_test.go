package db_test

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/google/uuid"
	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
	dbbadger "github.com/spintrade/orion-broker/internal/infrastructure/storage/db/badger"
	"github.com/spintrade/orion-broker/internal/infrastructure/storage/db/inmemory"
	"github.com/stretchr/testify/require"
)

type repoManager struct {
	Name    string
	Manager ports.RepoManager
}

func createRepoManagers(t *testing.T) []repoManager {
	badgerManager, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	t.Cleanup(badgerManager.Close)

	return []repoManager{
		{Name: "badger", Manager: badgerManager},
		{Name: "inmemory", Manager: inmemory.NewRepoManager()},
	}
}

func makeRandomSettlement(t *testing.T, orderID string) domain.SettlementRecord {
	record, err := domain.NewSettlementRecord(orderID, domain.SettlementMessage{
		ID:              "0x" + randomHex(32),
		SenderAddress:   "0x" + randomHex(20),
		MatcherAddress:  "0x" + randomHex(20),
		BaseAsset:       "0x" + randomHex(20),
		QuoteAsset:      "0x" + randomHex(20),
		MatcherFeeAsset: "0x" + randomHex(20),
		Amount:          1000000000,
		Price:           200000000,
		MatcherFee:      4000000,
		Nonce:           1600000000000,
		Expiration:      1602505600000,
		BuySide:         true,
		Signature:       "0x" + randomHex(65),
	})
	require.NoError(t, err)
	return *record
}

func randomOrderID() string {
	return uuid.New().String()
}

func randomHex(len int) string {
	return hex.EncodeToString(randomBytes(len))
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return b
}
