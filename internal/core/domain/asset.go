package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// PairSeparator separates base and quote symbols of a trading pair.
const PairSeparator = "-"

// AssetRegistry is the static, bijective mapping between asset symbols and
// their on-chain addresses. It is read-only once created and therefore safe
// for concurrent use.
type AssetRegistry struct {
	assetBySymbol map[string]string
	symbolByAsset map[string]string
}

// NewAssetRegistry returns a registry for the given symbol -> address table.
// Addresses are stored lowercase.
func NewAssetRegistry(assets map[string]string) (*AssetRegistry, error) {
	if len(assets) <= 0 {
		return nil, ErrEmptyAssetTable
	}

	assetBySymbol := make(map[string]string, len(assets))
	symbolByAsset := make(map[string]string, len(assets))
	for symbol, asset := range assets {
		if !isValidSymbol(symbol) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAssetSymbol, symbol)
		}
		if !common.IsHexAddress(asset) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAssetAddress, asset)
		}
		asset = normalizeAddress(asset)
		if other, ok := symbolByAsset[asset]; ok {
			return nil, fmt.Errorf(
				"%w: %s and %s share address %s", ErrDuplicateAsset, other, symbol, asset,
			)
		}
		assetBySymbol[symbol] = asset
		symbolByAsset[asset] = symbol
	}

	return &AssetRegistry{assetBySymbol, symbolByAsset}, nil
}

// ParseAssetTable parses a list of SYMBOL:address entries into a table
// suitable for NewAssetRegistry.
func ParseAssetTable(entries []string) (map[string]string, error) {
	assets := make(map[string]string, len(entries))
	for _, entry := range entries {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid asset entry %q, must be SYMBOL:address", entry)
		}
		symbol, asset := parts[0], parts[1]
		if _, ok := assets[symbol]; ok {
			return nil, fmt.Errorf("%w: symbol %s is repeated", ErrDuplicateAsset, symbol)
		}
		assets[symbol] = asset
	}
	return assets, nil
}

// SymbolOf returns the symbol of the given asset address.
func (r *AssetRegistry) SymbolOf(asset string) (string, error) {
	symbol, ok := r.symbolByAsset[normalizeAddress(asset)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}
	return symbol, nil
}

// AssetOf returns the address of the asset with the given symbol.
func (r *AssetRegistry) AssetOf(symbol string) (string, error) {
	asset, ok := r.assetBySymbol[symbol]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return asset, nil
}

// PairToAssets splits a BASE-QUOTE pair symbol and resolves both halves.
func (r *AssetRegistry) PairToAssets(pair string) (baseAsset, quoteAsset string, err error) {
	symbols := strings.Split(pair, PairSeparator)
	if len(symbols) != 2 || symbols[0] == "" || symbols[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedPair, pair)
	}

	if baseAsset, err = r.AssetOf(symbols[0]); err != nil {
		return "", "", err
	}
	if quoteAsset, err = r.AssetOf(symbols[1]); err != nil {
		return "", "", err
	}
	return baseAsset, quoteAsset, nil
}

// AssetsToPair is the inverse of PairToAssets.
func (r *AssetRegistry) AssetsToPair(baseAsset, quoteAsset string) (string, error) {
	baseSymbol, err := r.SymbolOf(baseAsset)
	if err != nil {
		return "", err
	}
	quoteSymbol, err := r.SymbolOf(quoteAsset)
	if err != nil {
		return "", err
	}
	return baseSymbol + PairSeparator + quoteSymbol, nil
}

// Symbols returns the sorted list of supported symbols.
func (r *AssetRegistry) Symbols() []string {
	symbols := make([]string, 0, len(r.assetBySymbol))
	for symbol := range r.assetBySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

func isValidSymbol(symbol string) bool {
	return len(symbol) > 0 &&
		strings.ToUpper(symbol) == symbol &&
		!strings.Contains(symbol, PairSeparator) &&
		!strings.ContainsAny(symbol, " :")
}

// normalizeAddress returns valid addresses as lowercase 0x-prefixed hex.
func normalizeAddress(addr string) string {
	if !common.IsHexAddress(addr) {
		return addr
	}
	return strings.ToLower(common.HexToAddress(addr).Hex())
}
