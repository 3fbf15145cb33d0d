package crypto

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoSigner is returned when an operation that requires signing runs
// on a session that was constructed without any signer backend.
var ErrNoSigner = errors.New("no signer initialized")

// Signer is the capability every backend must provide: sign a 32-byte
// digest with the holder's key and report the holder's address. All
// backends produce [R || S || V] signatures recoverable with Ecrecover,
// the same rule the matching engine and on-chain contract verify with.
type Signer interface {
	SignHash(hash []byte) ([]byte, error)
	Address() common.Address
}

// Kind selects a signer backend explicitly. The caller names the variant
// instead of the library guessing from the argument's shape.
type Kind int

const (
	KindKeypair Kind = iota // hex-encoded secp256k1 private key
	KindSeed                // deterministic key derived from a seed phrase
	KindRemote              // custodial/KMS HTTP signing service
	KindHook                // caller-provided signing callback (UI wallet)
)

// Config is the tagged variant describing which backend to build.
type Config struct {
	Kind Kind

	PrivateKeyHex string // KindKeypair
	Seed          []byte // KindSeed

	RemoteURL     string // KindRemote
	RemoteAddress string // KindRemote: address held by the remote service

	HookAddress string                            // KindHook
	HookSign    func(hash []byte) ([]byte, error) // KindHook
}

// New builds a Signer from a tagged Config.
func New(cfg Config) (Signer, error) {
	switch cfg.Kind {
	case KindKeypair:
		return FromPrivateKeyHex(cfg.PrivateKeyHex)
	case KindSeed:
		return FromSeed(cfg.Seed)
	case KindRemote:
		return NewRemoteSigner(cfg.RemoteURL, cfg.RemoteAddress, nil)
	case KindHook:
		if cfg.HookSign == nil {
			return nil, ErrNoSigner
		}
		return &hookSigner{
			address: common.HexToAddress(cfg.HookAddress),
			sign:    cfg.HookSign,
		}, nil
	default:
		return nil, fmt.Errorf("unknown signer kind %d", cfg.Kind)
	}
}

// KeypairSigner holds a local secp256k1 key pair (Ethereum-compatible).
type KeypairSigner struct {
	privateKey *ecdsa.PrivateKey
	publicKey  *ecdsa.PublicKey
	address    common.Address
}

// GenerateKey creates a new random secp256k1 key pair
func GenerateKey() (*KeypairSigner, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return fromECDSA(privateKey)
}

// FromPrivateKeyHex creates a KeypairSigner from a hex-encoded private key
// Format: "0x1234..." or "1234..." (64 hex chars)
func FromPrivateKeyHex(hexKey string) (*KeypairSigner, error) {
	if len(hexKey) >= 2 && hexKey[:2] == "0x" {
		hexKey = hexKey[2:]
	}
	privateKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return fromECDSA(privateKey)
}

// FromSeed derives a deterministic key pair from arbitrary seed bytes by
// using their Keccak256 digest as the private scalar.
func FromSeed(seed []byte) (*KeypairSigner, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("empty seed")
	}
	privateKey, err := crypto.ToECDSA(crypto.Keccak256(seed))
	if err != nil {
		return nil, fmt.Errorf("failed to derive key from seed: %w", err)
	}
	return fromECDSA(privateKey)
}

func fromECDSA(privateKey *ecdsa.PrivateKey) (*KeypairSigner, error) {
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to cast public key to ECDSA")
	}
	return &KeypairSigner{
		privateKey: privateKey,
		publicKey:  publicKeyECDSA,
		address:    crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

// Address returns the Ethereum address derived from the public key
func (s *KeypairSigner) Address() common.Address {
	return s.address
}

// PrivateKeyHex returns the private key as hex string (WITHOUT 0x prefix)
// WARNING: Keep this secret! Never expose to users or logs
func (s *KeypairSigner) PrivateKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSA(s.privateKey))
}

// PublicKeyHex returns the public key as hex string (uncompressed, 130 chars)
func (s *KeypairSigner) PublicKeyHex() string {
	return fmt.Sprintf("%x", crypto.FromECDSAPub(s.publicKey))
}

// SignHash signs a 32-byte digest and returns the signature in
// [R || S || V] format (65 bytes).
func (s *KeypairSigner) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	signature, err := crypto.Sign(hash, s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return signature, nil
}

// SignMessage signs a message (not a hash) by first hashing it with Keccak256
// Use this for arbitrary byte messages
func (s *KeypairSigner) SignMessage(message []byte) ([]byte, error) {
	hash := crypto.Keccak256Hash(message)
	return s.SignHash(hash.Bytes())
}

// hookSigner delegates the signature to a caller-provided callback,
// typically a UI wallet prompt.
type hookSigner struct {
	address common.Address
	sign    func(hash []byte) ([]byte, error)
}

func (h *hookSigner) Address() common.Address { return h.address }

func (h *hookSigner) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("hash must be 32 bytes, got %d", len(hash))
	}
	return h.sign(hash)
}

// VerifySignature verifies that signature was created by address for given hash
// Returns true if signature is valid, false otherwise
func VerifySignature(address common.Address, hash []byte, signature []byte) bool {
	if len(signature) != 65 {
		return false
	}
	if len(hash) != 32 {
		return false
	}

	publicKeyBytes, err := crypto.Ecrecover(hash, signature)
	if err != nil {
		return false
	}

	publicKey, err := crypto.UnmarshalPubkey(publicKeyBytes)
	if err != nil {
		return false
	}

	return crypto.PubkeyToAddress(*publicKey) == address
}

// RecoverAddress recovers the signer's address from a message hash and signature
func RecoverAddress(hash []byte, signature []byte) (common.Address, error) {
	if len(signature) != 65 {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}
	if len(hash) != 32 {
		return common.Address{}, fmt.Errorf("invalid hash length: %d", len(hash))
	}

	publicKeyBytes, err := crypto.Ecrecover(hash, signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	publicKey, err := crypto.UnmarshalPubkey(publicKeyBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}
