package dbbadger

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

const (
	settlementDir = "settlement"
	gcInterval    = 30 * time.Minute
)

type repoManager struct {
	store                *badgerhold.Store
	settlementRepository domain.SettlementRepository
	stopGC               chan struct{}
}

// NewRepoManager opens (or creates if not exists) the badger store in a
// dedicated subdirectory of the given base dir. An empty base dir makes the
// store in-memory, which is handy for testing.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, settlementDir)
	}

	store, err := createDb(dbDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening settlement db: %w", err)
	}

	rm := &repoManager{
		store:                store,
		settlementRepository: NewSettlementRepositoryImpl(store),
		stopGC:               make(chan struct{}),
	}
	if len(dbDir) > 0 {
		go rm.runValueLogGC()
	}
	return rm, nil
}

func (d *repoManager) SettlementRepository() domain.SettlementRepository {
	return d.settlementRepository
}

func (d *repoManager) Close() {
	close(d.stopGC)
	if err := d.store.Close(); err != nil {
		log.WithError(err).Warn("error on closing settlement db")
	}
}

func (d *repoManager) runValueLogGC() {
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopGC:
			return
		case <-ticker.C:
			if err := d.store.Badger().RunValueLogGC(0.5); err != nil &&
				err != badger.ErrNoRewrite {
				log.WithError(err).Warn("error on settlement db value log gc")
			}
		}
	}
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	return badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
}
