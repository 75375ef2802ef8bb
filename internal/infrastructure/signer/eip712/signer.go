package eip712signer

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/spintrade/orion-broker/internal/core/domain"
)

const (
	signatureLen = crypto.SignatureLength
	// recoveryIDOffset turns the 0/1 recovery id into the 27/28 v value
	// expected by typed-data verifiers.
	recoveryIDOffset = 27
)

var (
	// ErrInvalidPrivateKey is returned if the hex private key cannot be parsed.
	ErrInvalidPrivateKey = errors.New("invalid private key")
	// ErrInvalidAddress is returned if any address field of a message is not a
	// valid hex address.
	ErrInvalidAddress = errors.New("invalid address in settlement message")
	// ErrInvalidSignature ...
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signer hashes and signs settlement messages with the broker key. The key
// pair is immutable, so a Signer is safe for concurrent use.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner parses the given hex private key, with or without 0x prefix, and
// derives the broker address from it.
func NewSigner(hexPrivateKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexPrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrivateKey, err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the lowercase hex address of the broker.
func (s *Signer) Address() string {
	return strings.ToLower(s.address.Hex())
}

// PublicKey returns the hex encoded compressed public key.
func (s *Signer) PublicKey() string {
	return hexutil.Encode(crypto.CompressPubkey(&s.key.PublicKey))
}

// HashMessage returns the id of the given message.
func (s *Signer) HashMessage(msg domain.SettlementMessage) (string, error) {
	return HashMessage(msg)
}

// SignMessage signs the EIP-712 digest of the message and returns the 65
// bytes r||s||v signature as hex.
func (s *Signer) SignMessage(msg domain.SettlementMessage) (string, error) {
	digest, err := typedDataDigest(msg)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", err
	}
	sig[crypto.RecoveryIDOffset] += recoveryIDOffset
	return hexutil.Encode(sig), nil
}

// HashMessage returns the keccak256 of the packed message fields:
// prefix(1) | 5 addresses(20 each) | amount, price, matcherFee, nonce,
// expiration (8 bytes big endian each) | buySide(1).
func HashMessage(msg domain.SettlementMessage) (string, error) {
	addresses := []string{
		msg.SenderAddress,
		msg.MatcherAddress,
		msg.BaseAsset,
		msg.QuoteAsset,
		msg.MatcherFeeAsset,
	}
	values := []uint64{
		msg.Amount, msg.Price, msg.MatcherFee, msg.Nonce, msg.Expiration,
	}

	buf := make([]byte, 0, 1+len(addresses)*common.AddressLength+len(values)*8+1)
	buf = append(buf, hashPrefix)
	for _, addr := range addresses {
		if !common.IsHexAddress(addr) {
			return "", fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
		buf = append(buf, common.HexToAddress(addr).Bytes()...)
	}
	for _, v := range values {
		buf = binary.BigEndian.AppendUint64(buf, v)
	}
	buf = append(buf, msg.BuySideFlag())

	return hexutil.Encode(crypto.Keccak256(buf)), nil
}

// RecoverSigner returns the address that produced the signature of the given
// message.
func RecoverSigner(msg domain.SettlementMessage) (string, error) {
	sig, err := hexutil.Decode(msg.Signature)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if len(sig) != signatureLen {
		return "", fmt.Errorf(
			"%w: expected %d bytes, got %d", ErrInvalidSignature, signatureLen, len(sig),
		)
	}
	if sig[crypto.RecoveryIDOffset] >= recoveryIDOffset {
		sig[crypto.RecoveryIDOffset] -= recoveryIDOffset
	}

	digest, err := typedDataDigest(msg)
	if err != nil {
		return "", err
	}
	pubkey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	return strings.ToLower(crypto.PubkeyToAddress(*pubkey).Hex()), nil
}

func typedDataDigest(msg domain.SettlementMessage) ([]byte, error) {
	for _, addr := range []string{
		msg.SenderAddress, msg.MatcherAddress, msg.BaseAsset, msg.QuoteAsset,
		msg.MatcherFeeAsset,
	} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
		}
	}
	digest, _, err := apitypes.TypedDataAndHash(newTypedData(msg))
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return digest, nil
}
