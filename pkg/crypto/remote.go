package crypto

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RemoteSigner asks a custodial signing service (e.g. a KMS bridge) to
// sign digests. The key never leaves the service; the client only knows
// the address the service signs for. Signatures come back in the same
// [R || S || V] format local keys produce, so the exchange's recovery
// rule does not distinguish the two backends.
type RemoteSigner struct {
	endpoint   string
	address    common.Address
	httpClient *http.Client
}

// NewRemoteSigner creates a signer backed by an HTTP signing service.
// httpClient may be nil; a 10s-timeout default is used then.
func NewRemoteSigner(endpoint, addressHex string, httpClient *http.Client) (*RemoteSigner, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("remote signer endpoint required")
	}
	if !common.IsHexAddress(addressHex) {
		return nil, fmt.Errorf("invalid remote signer address: %q", addressHex)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteSigner{
		endpoint:   endpoint,
		address:    common.HexToAddress(addressHex),
		httpClient: httpClient,
	}, nil
}

// Address returns the address held by the remote service.
func (r *RemoteSigner) Address() common.Address {
	return r.address
}

type remoteSignRequest struct {
	Hash    string `json:"hash"`    // 0x-prefixed 32-byte digest
	Address string `json:"address"` // key the service should sign with
}

type remoteSignResponse struct {
	Signature string `json:"signature"` // 0x-prefixed 65-byte [R||S||V]
	Error     string `json:"error,omitempty"`
}

// SignHash submits the digest to the signing service. Signing failures
// are propagated, never retried.
func (r *RemoteSigner) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}

	body, err := json.Marshal(remoteSignRequest{
		Hash:    "0x" + hex.EncodeToString(hash),
		Address: r.address.Hex(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sign request: %w", err)
	}

	resp, err := r.httpClient.Post(r.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("remote signer unreachable: %w", err)
	}
	defer resp.Body.Close()

	var signResp remoteSignResponse
	if err := json.NewDecoder(resp.Body).Decode(&signResp); err != nil {
		return nil, fmt.Errorf("failed to decode sign response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote signer status %d: %s", resp.StatusCode, signResp.Error)
	}

	signature, err := hex.DecodeString(strings.TrimPrefix(signResp.Signature, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex from remote signer: %w", err)
	}
	if len(signature) != 65 {
		return nil, fmt.Errorf("remote signature must be 65 bytes, got %d", len(signature))
	}
	return signature, nil
}
