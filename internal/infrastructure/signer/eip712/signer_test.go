package eip712signer_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spintrade/orion-broker/internal/core/domain"
	eip712signer "github.com/spintrade/orion-broker/internal/infrastructure/signer/eip712"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	privateKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	address        = "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"
	matcherAddress = "0x2222222222222222222222222222222222222222"
	ethAsset       = "0x0000000000000000000000000000000000000000"
	usdtAsset      = "0xfc1cd13a7f126efd823e373c4086f69beb8611c2"
)

func newTestMessage() domain.SettlementMessage {
	return domain.SettlementMessage{
		SenderAddress:   address,
		MatcherAddress:  matcherAddress,
		BaseAsset:       ethAsset,
		QuoteAsset:      usdtAsset,
		MatcherFeeAsset: usdtAsset,
		Amount:          1000000000,
		Price:           200000000,
		MatcherFee:      4000000,
		Nonce:           1600000000000,
		Expiration:      1602505600000,
		BuySide:         false,
	}
}

func TestNewSigner(t *testing.T) {
	t.Parallel()

	signer, err := eip712signer.NewSigner(privateKey)
	require.NoError(t, err)
	require.Equal(t, address, signer.Address())

	pubkey, err := hexutil.Decode(signer.PublicKey())
	require.NoError(t, err)
	require.Len(t, pubkey, 33)

	// The 0x prefix is optional.
	signer, err = eip712signer.NewSigner(strings.TrimPrefix(privateKey, "0x"))
	require.NoError(t, err)
	require.Equal(t, address, signer.Address())
}

func TestFailingNewSigner(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "0x", "0xzz", "0x0102"} {
		signer, err := eip712signer.NewSigner(key)
		require.ErrorIs(t, err, eip712signer.ErrInvalidPrivateKey, key)
		require.Nil(t, signer)
	}
}

func TestHashMessage(t *testing.T) {
	t.Parallel()

	msg := newTestMessage()

	id, err := eip712signer.HashMessage(msg)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "0x"))
	require.Len(t, id, 66)

	// Packed layout computed by hand.
	packed := "03" +
		strings.TrimPrefix(address, "0x") +
		strings.TrimPrefix(matcherAddress, "0x") +
		strings.TrimPrefix(ethAsset, "0x") +
		strings.TrimPrefix(usdtAsset, "0x") +
		strings.TrimPrefix(usdtAsset, "0x") +
		"000000003b9aca00" + // amount
		"000000000bebc200" + // price
		"00000000003d0900" + // matcher fee
		"00000174876e8000" + // nonce
		"000001751cc6ec00" + // expiration
		"00"
	expected := hexutil.Encode(crypto.Keccak256(hexutil.MustDecode("0x" + packed)))
	require.Equal(t, expected, id)

	again, err := eip712signer.HashMessage(msg)
	require.NoError(t, err)
	require.Equal(t, id, again)
}

func TestHashMessageChangesWithEveryField(t *testing.T) {
	t.Parallel()

	id, err := eip712signer.HashMessage(newTestMessage())
	require.NoError(t, err)

	mutations := map[string]func(m *domain.SettlementMessage){
		"sender":     func(m *domain.SettlementMessage) { m.SenderAddress = matcherAddress },
		"matcher":    func(m *domain.SettlementMessage) { m.MatcherAddress = address },
		"base":       func(m *domain.SettlementMessage) { m.BaseAsset = usdtAsset },
		"quote":      func(m *domain.SettlementMessage) { m.QuoteAsset = ethAsset },
		"fee_asset":  func(m *domain.SettlementMessage) { m.MatcherFeeAsset = ethAsset },
		"amount":     func(m *domain.SettlementMessage) { m.Amount++ },
		"price":      func(m *domain.SettlementMessage) { m.Price++ },
		"fee":        func(m *domain.SettlementMessage) { m.MatcherFee++ },
		"nonce":      func(m *domain.SettlementMessage) { m.Nonce++ },
		"expiration": func(m *domain.SettlementMessage) { m.Expiration++ },
		"buy_side":   func(m *domain.SettlementMessage) { m.BuySide = !m.BuySide },
	}
	for name, mutate := range mutations {
		msg := newTestMessage()
		mutate(&msg)
		otherID, err := eip712signer.HashMessage(msg)
		require.NoError(t, err)
		require.NotEqual(t, id, otherID, name)
	}

	// Id and signature are not part of the hashed content.
	msg := newTestMessage()
	msg.ID, msg.Signature = "0x01", "0x02"
	sameID, err := eip712signer.HashMessage(msg)
	require.NoError(t, err)
	require.Equal(t, id, sameID)
}

func TestSignMessage(t *testing.T) {
	t.Parallel()

	signer, err := eip712signer.NewSigner(privateKey)
	require.NoError(t, err)

	msg := newTestMessage()
	msg.ID, err = signer.HashMessage(msg)
	require.NoError(t, err)
	msg.Signature, err = signer.SignMessage(msg)
	require.NoError(t, err)

	sig, err := hexutil.Decode(msg.Signature)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	require.Contains(t, []byte{27, 28}, sig[64])

	// Deterministic signing.
	again, err := signer.SignMessage(msg)
	require.NoError(t, err)
	require.Equal(t, msg.Signature, again)

	recovered, err := eip712signer.RecoverSigner(msg)
	require.NoError(t, err)
	require.Equal(t, signer.Address(), recovered)

	// Signing and hashing must read the same fields: tampering with any of
	// them invalidates the signature.
	tampered := msg
	tampered.Nonce++
	recovered, err = eip712signer.RecoverSigner(tampered)
	require.NoError(t, err)
	require.NotEqual(t, signer.Address(), recovered)
}

func TestSignMessageConcurrently(t *testing.T) {
	t.Parallel()

	signer, err := eip712signer.NewSigner(privateKey)
	require.NoError(t, err)

	expected, err := signer.SignMessage(newTestMessage())
	require.NoError(t, err)

	wg := &sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sig, err := signer.SignMessage(newTestMessage())
			assert.NoError(t, err)
			assert.Equal(t, expected, sig)
		}()
	}
	wg.Wait()
}

func TestFailingSignMessage(t *testing.T) {
	t.Parallel()

	signer, err := eip712signer.NewSigner(privateKey)
	require.NoError(t, err)

	msg := newTestMessage()
	msg.BaseAsset = "ETH"

	_, err = signer.HashMessage(msg)
	require.ErrorIs(t, err, eip712signer.ErrInvalidAddress)

	_, err = signer.SignMessage(msg)
	require.ErrorIs(t, err, eip712signer.ErrInvalidAddress)

	msg = newTestMessage()
	msg.Signature = "0x0102"
	_, err = eip712signer.RecoverSigner(msg)
	require.ErrorIs(t, err, eip712signer.ErrInvalidSignature)
}
