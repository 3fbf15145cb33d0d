package order

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/bluefin-exchange/bluefin-go/pkg/crypto"
)

// Sign produces the maker signature over the order's serialization.
// Returns the hex-encoded 65-byte signature.
func Sign(signer crypto.Signer, o *Order) (string, error) {
	if signer == nil {
		return "", crypto.ErrNoSigner
	}
	hash, err := Hash(o)
	if err != nil {
		return "", fmt.Errorf("failed to hash order: %w", err)
	}
	signature, err := signer.SignHash(hash)
	if err != nil {
		return "", fmt.Errorf("failed to sign order: %w", err)
	}
	return hexutil.Encode(signature), nil
}

// SignPayload signs an arbitrary serialized payload with the holder's
// key: keccak256 the bytes, sign the digest. Cancellation payloads are
// signed through this path.
func SignPayload(signer crypto.Signer, payload []byte) (string, error) {
	if signer == nil {
		return "", crypto.ErrNoSigner
	}
	hash := eth_crypto.Keccak256(payload)
	signature, err := signer.SignHash(hash)
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return hexutil.Encode(signature), nil
}

// CancelPayload is the serialized form signed for order cancellation.
type CancelPayload struct {
	OrderHashes []string `json:"orderHashes"`
	Symbol      string   `json:"symbol"`
}

// SignCancel signs a cancellation for the given order hashes.
func SignCancel(signer crypto.Signer, symbol string, hashes []string) (string, error) {
	payload, err := json.Marshal(CancelPayload{OrderHashes: hashes, Symbol: symbol})
	if err != nil {
		return "", fmt.Errorf("failed to serialize cancel payload: %w", err)
	}
	return SignPayload(signer, payload)
}

// Verify reports whether sigHex is a valid maker signature for o.
func Verify(o *Order, sigHex string) (bool, error) {
	hash, err := Hash(o)
	if err != nil {
		return false, err
	}
	signature, err := hexutil.Decode(sigHex)
	if err != nil {
		return false, fmt.Errorf("invalid signature hex: %w", err)
	}
	return crypto.VerifySignature(common.HexToAddress(o.Maker), hash, signature), nil
}
