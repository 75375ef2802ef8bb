package ports

import "github.com/spintrade/orion-broker/internal/core/domain"

// Signer computes the id and the signature of settlement messages with the
// broker's key. Implementations must be safe for concurrent use.
type Signer interface {
	// Address is the broker address derived from the signing key.
	Address() string
	// PublicKey is the hex encoded compressed public key.
	PublicKey() string
	// HashMessage returns the content hash of the message, ie. its id.
	HashMessage(msg domain.SettlementMessage) (string, error)
	// SignMessage returns the typed-data signature of the message.
	SignMessage(msg domain.SettlementMessage) (string, error)
}
