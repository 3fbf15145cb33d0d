package order

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/bluefin-exchange/bluefin-go/params"
)

// SerializedSize is the fixed length of a signable order payload.
const SerializedSize = 144

// Fixed byte offsets of the signable layout. The on-chain contract
// reads the same offsets, so any change here breaks verification.
const (
	offPrice      = 0   // 16 bytes
	offQuantity   = 16  // 16 bytes
	offLeverage   = 32  // 16 bytes
	offSalt       = 48  // 16 bytes
	offExpiration = 64  // 8 bytes
	offMaker      = 72  // 32 bytes, 20-byte address right-aligned
	offMarket     = 104 // 32 bytes
	offFlags      = 136 // 2 bytes, bitfield in the low byte
	offDomainTag  = 137 // 7 bytes ("Bluefin")
)

// Flag bits packed into the low byte of the flags field.
const (
	flagIsBuy = 1 << iota
	flagReduceOnly
	flagPostOnly
	flagIOC
	flagOrderbookOnly
)

// Serialize encodes an order into its fixed 144-byte signable layout.
// The buffer is zero-initialized and every field is written at a fixed
// offset, so identical orders always produce identical bytes.
//
// Note the domain tag starts one byte into the 2-byte flags field and
// overwrites its high (reserved) byte. The contract verifies against
// this exact layout, so the overlap is kept as is.
func Serialize(o *Order) ([]byte, error) {
	if o == nil {
		return nil, fmt.Errorf("nil order")
	}

	buf := make([]byte, SerializedSize)

	if err := putUint128(buf[offPrice:], o.Price, "price"); err != nil {
		return nil, err
	}
	if err := putUint128(buf[offQuantity:], o.Quantity, "quantity"); err != nil {
		return nil, err
	}
	if err := putUint128(buf[offLeverage:], o.Leverage, "leverage"); err != nil {
		return nil, err
	}
	if err := putUint128(buf[offSalt:], o.Salt, "salt"); err != nil {
		return nil, err
	}

	binary.BigEndian.PutUint64(buf[offExpiration:], o.Expiration)

	if !common.IsHexAddress(o.Maker) {
		return nil, fmt.Errorf("invalid maker address: %q", o.Maker)
	}
	maker := common.HexToAddress(o.Maker)
	copy(buf[offMaker+12:offMarket], maker.Bytes()) // right-align in 32 bytes

	if o.Market == nil || o.Market.Sign() < 0 || o.Market.BitLen() > 256 {
		return nil, fmt.Errorf("market id out of range")
	}
	o.Market.FillBytes(buf[offMarket : offMarket+32])

	var flags uint16
	if o.IsBuy {
		flags |= flagIsBuy
	}
	if o.ReduceOnly {
		flags |= flagReduceOnly
	}
	if o.PostOnly {
		flags |= flagPostOnly
	}
	if o.IOC {
		flags |= flagIOC
	}
	if o.OrderbookOnly {
		flags |= flagOrderbookOnly
	}
	binary.LittleEndian.PutUint16(buf[offFlags:], flags)

	// Domain tag overwrites buf[137], the flags field's reserved byte.
	copy(buf[offDomainTag:], params.DomainTag)

	return buf, nil
}

// putUint128 writes v big-endian into dst[0:16].
func putUint128(dst []byte, v *big.Int, name string) error {
	if v == nil {
		return fmt.Errorf("%s is nil", name)
	}
	if v.Sign() < 0 || v.BitLen() > 128 {
		return fmt.Errorf("%s out of range for 16-byte field: %s", name, v.String())
	}
	v.FillBytes(dst[:16])
	return nil
}

// Hash returns the keccak256 digest of the order serialization. This is
// the digest the maker signs and the hash the exchange keys updates by.
func Hash(o *Order) ([]byte, error) {
	serialized, err := Serialize(o)
	if err != nil {
		return nil, err
	}
	return crypto.Keccak256(serialized), nil
}

// HashHex returns the order hash as a 0x-prefixed hex string.
func HashHex(o *Order) (string, error) {
	h, err := Hash(o)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(h), nil
}
