package inmemory

import (
	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
)

type repoManager struct {
	settlementRepository domain.SettlementRepository
}

// NewRepoManager returns a RepoManager whose repositories live in memory only.
func NewRepoManager() ports.RepoManager {
	return &repoManager{
		settlementRepository: NewSettlementRepositoryImpl(),
	}
}

func (d *repoManager) SettlementRepository() domain.SettlementRepository {
	return d.settlementRepository
}

func (d *repoManager) Close() {}
