package crypto

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
)

func TestGenerateKey(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	// Check address is valid
	if signer.Address() == (common.Address{}) {
		t.Error("generated zero address")
	}

	// Check private key hex is 64 chars (32 bytes)
	privHex := signer.PrivateKeyHex()
	if len(privHex) != 64 {
		t.Errorf("private key hex length = %d, want 64", len(privHex))
	}

	// Check public key hex is 130 chars (04 prefix + 64 bytes uncompressed)
	pubHex := signer.PublicKeyHex()
	if len(pubHex) != 130 {
		t.Errorf("public key hex length = %d, want 130", len(pubHex))
	}
}

func TestFromPrivateKeyHex(t *testing.T) {
	// Generate a key and use it for round-trip testing
	signer1, _ := GenerateKey()
	privHex := signer1.PrivateKeyHex()
	expectedAddr := signer1.Address()

	// Load from hex (no prefix)
	signer2, err := FromPrivateKeyHex(privHex)
	if err != nil {
		t.Fatalf("failed to load key: %v", err)
	}
	if signer2.Address() != expectedAddr {
		t.Errorf("address = %s, want %s", signer2.Address().Hex(), expectedAddr.Hex())
	}

	// Load with 0x prefix
	signer3, err := FromPrivateKeyHex("0x" + privHex)
	if err != nil {
		t.Fatalf("failed to load 0x-prefixed key: %v", err)
	}
	if signer3.Address() != expectedAddr {
		t.Errorf("0x-prefixed address = %s, want %s", signer3.Address().Hex(), expectedAddr.Hex())
	}
}

func TestFromSeedDeterministic(t *testing.T) {
	seed := []byte("test seed phrase for deterministic key")

	signer1, err := FromSeed(seed)
	if err != nil {
		t.Fatalf("failed to derive key: %v", err)
	}
	signer2, err := FromSeed(seed)
	if err != nil {
		t.Fatalf("failed to derive key again: %v", err)
	}

	if signer1.Address() != signer2.Address() {
		t.Errorf("same seed produced different addresses: %s vs %s",
			signer1.Address().Hex(), signer2.Address().Hex())
	}

	// Different seed, different key
	signer3, _ := FromSeed([]byte("a different seed"))
	if signer3.Address() == signer1.Address() {
		t.Error("different seeds produced the same address")
	}

	if _, err := FromSeed(nil); err == nil {
		t.Error("empty seed should fail")
	}
}

func TestSignAndVerify(t *testing.T) {
	signer, _ := GenerateKey()

	message := []byte("authorize me")
	signature, err := signer.SignMessage(message)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	// Signature should be 65 bytes [R || S || V]
	if len(signature) != 65 {
		t.Errorf("signature length = %d, want 65", len(signature))
	}

	hash := eth_crypto.Keccak256Hash(message)
	if !VerifySignature(signer.Address(), hash.Bytes(), signature) {
		t.Error("valid signature did not verify")
	}

	// Wrong address must not verify
	other, _ := GenerateKey()
	if VerifySignature(other.Address(), hash.Bytes(), signature) {
		t.Error("signature verified against wrong address")
	}

	// Tampered signature must not verify
	tampered := append([]byte{}, signature...)
	tampered[10] ^= 0xff
	if VerifySignature(signer.Address(), hash.Bytes(), tampered) {
		t.Error("tampered signature verified")
	}
}

func TestRecoverAddress(t *testing.T) {
	signer, _ := GenerateKey()
	hash := eth_crypto.Keccak256([]byte("recover me"))

	signature, err := signer.SignHash(hash)
	if err != nil {
		t.Fatalf("failed to sign: %v", err)
	}

	recovered, err := RecoverAddress(hash, signature)
	if err != nil {
		t.Fatalf("failed to recover: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered %s, want %s", recovered.Hex(), signer.Address().Hex())
	}

	if _, err := RecoverAddress(hash, signature[:64]); err == nil {
		t.Error("short signature should fail recovery")
	}
}

func TestSignHashRejectsBadLength(t *testing.T) {
	signer, _ := GenerateKey()
	if _, err := signer.SignHash([]byte("too short")); err == nil {
		t.Error("expected error for non-32-byte hash")
	}
}

func TestNewTaggedVariants(t *testing.T) {
	keypair, _ := GenerateKey()

	t.Run("keypair", func(t *testing.T) {
		s, err := New(Config{Kind: KindKeypair, PrivateKeyHex: keypair.PrivateKeyHex()})
		if err != nil {
			t.Fatalf("keypair config failed: %v", err)
		}
		if s.Address() != keypair.Address() {
			t.Errorf("address = %s, want %s", s.Address().Hex(), keypair.Address().Hex())
		}
	})

	t.Run("seed", func(t *testing.T) {
		s, err := New(Config{Kind: KindSeed, Seed: []byte("seed bytes")})
		if err != nil {
			t.Fatalf("seed config failed: %v", err)
		}
		if s.Address() == (common.Address{}) {
			t.Error("seed signer has zero address")
		}
	})

	t.Run("hook", func(t *testing.T) {
		var sawHash []byte
		s, err := New(Config{
			Kind:        KindHook,
			HookAddress: keypair.Address().Hex(),
			HookSign: func(hash []byte) ([]byte, error) {
				sawHash = hash
				return keypair.SignHash(hash)
			},
		})
		if err != nil {
			t.Fatalf("hook config failed: %v", err)
		}

		hash := eth_crypto.Keccak256([]byte("hook payload"))
		signature, err := s.SignHash(hash)
		if err != nil {
			t.Fatalf("hook signing failed: %v", err)
		}
		if !bytes.Equal(sawHash, hash) {
			t.Error("hook did not receive the digest")
		}
		if !VerifySignature(keypair.Address(), hash, signature) {
			t.Error("hook signature did not verify")
		}
	})

	t.Run("hook without callback", func(t *testing.T) {
		if _, err := New(Config{Kind: KindHook}); err == nil {
			t.Error("hook config without callback should fail")
		}
	})

	t.Run("unknown kind", func(t *testing.T) {
		if _, err := New(Config{Kind: Kind(99)}); err == nil {
			t.Error("unknown kind should fail")
		}
	})
}
