package ports

import "github.com/spintrade/orion-broker/internal/core/domain"

// RepoManager holds the repositories of the broker.
type RepoManager interface {
	SettlementRepository() domain.SettlementRepository
	Close()
}
