package filesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spintrade/orion-broker/internal/core/domain"
	"github.com/spintrade/orion-broker/internal/core/ports"
)

var ErrMissingPath = errors.New("missing balances file path")

type source struct {
	path string
}

// NewBalanceSource returns a BalanceSource reading the snapshot written by the
// exchange connectors to the given JSON file, in the form
// {"exchange": {"SYMBOL": "amount"}}.
func NewBalanceSource(path string) (ports.BalanceSource, error) {
	if path == "" {
		return nil, ErrMissingPath
	}
	return &source{path}, nil
}

func (s *source) GetBalances(_ context.Context) (domain.BalanceSnapshot, error) {
	buf, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read balances file: %w", err)
	}

	snapshot := make(domain.BalanceSnapshot)
	if err := json.Unmarshal(buf, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse balances file: %w", err)
	}
	return snapshot, nil
}
