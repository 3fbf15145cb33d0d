package crypto

import (
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// LowerHex renders an address the way the exchange stores makers:
// 0x-prefixed, all lower case.
func LowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// EIP55 renders a 20-byte address as its mixed-case checksummed hex
// string: each alphabetic hex digit is uppercased when the matching
// nibble of keccak256(lowercase-hex) is >= 8.
func EIP55(addr20 []byte) string {
	hexaddr := hex.EncodeToString(addr20)

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(hexaddr))
	hash := h.Sum(nil)

	out := []byte("0x" + hexaddr)
	for i := 0; i < len(hexaddr); i++ {
		c := hexaddr[i]
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := hash[i/2] >> 4
		if i%2 == 1 {
			nibble = hash[i/2] & 0x0f
		}
		if nibble >= 8 {
			out[2+i] = c - ('a' - 'A')
		}
	}
	return string(out)
}

// ChecksumValid reports whether a hex address string passes the EIP-55
// checksum. All-lowercase and all-uppercase strings carry no checksum
// and are accepted; mixed-case strings must match exactly.
func ChecksumValid(s string) bool {
	hexPart := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hexPart == strings.ToLower(hexPart) || hexPart == strings.ToUpper(hexPart) {
		return true
	}
	raw, err := hex.DecodeString(strings.ToLower(hexPart))
	if err != nil || len(raw) != common.AddressLength {
		return false
	}
	return EIP55(raw) == "0x"+hexPart
}
