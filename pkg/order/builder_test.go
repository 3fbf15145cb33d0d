package order

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bluefin-exchange/bluefin-go/params"
	"github.com/bluefin-exchange/bluefin-go/pkg/crypto"
	"github.com/bluefin-exchange/bluefin-go/pkg/market"
)

// fakeClock pins time for deterministic expiration and salt assertions.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time                         { return c.now }
func (c *fakeClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func newTestSigner(t *testing.T) *crypto.KeypairSigner {
	t.Helper()
	signer, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	return signer
}

func lowerAddress(signer crypto.Signer) string {
	return crypto.LowerHex(signer.Address())
}

func testRegistry(t *testing.T) *market.Registry {
	t.Helper()
	registry := market.NewRegistry()
	marketID, _ := new(big.Int).SetString("3a9f1e8c5f1a4f0bb0c2d7e6a1b9d4c8e5f2a7b3", 16)
	if err := registry.Register(&market.Meta{Symbol: "ETH-PERP", OnChainID: marketID}); err != nil {
		t.Fatalf("failed to register market: %v", err)
	}
	return registry
}

func TestBuildMarketOrder(t *testing.T) {
	signer := newTestSigner(t)
	clock := &fakeClock{now: time.Unix(1726000000, 0)}
	builder := NewBuilder(testRegistry(t), signer, clock)

	o, err := builder.Build(Request{
		Symbol:   "ETH-PERP",
		Side:     Sell,
		Type:     Market,
		Price:    decimal.RequireFromString("1850"), // must be ignored
		Quantity: decimal.RequireFromString("0.1"),
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if o.Price.Sign() != 0 {
		t.Errorf("market order price = %s, want 0", o.Price)
	}
	if !o.IOC {
		t.Error("market order must be immediate-or-cancel")
	}
	if o.IsBuy {
		t.Error("sell order flagged as buy")
	}
	if !o.OrderbookOnly {
		t.Error("orderbookOnly must always be set")
	}

	// 0.1 at 18 decimals
	wantQty, _ := new(big.Int).SetString("100000000000000000", 10)
	if o.Quantity.Cmp(wantQty) != 0 {
		t.Errorf("quantity = %s, want %s", o.Quantity, wantQty)
	}

	// Default leverage 1 at 18 decimals
	wantLev, _ := new(big.Int).SetString("1000000000000000000", 10)
	if o.Leverage.Cmp(wantLev) != 0 {
		t.Errorf("leverage = %s, want %s", o.Leverage, wantLev)
	}

	wantExp := uint64(clock.now.Add(params.MarketOrderExpiration).Unix())
	if o.Expiration != wantExp {
		t.Errorf("expiration = %d, want %d", o.Expiration, wantExp)
	}

	if o.Maker != lowerAddress(signer) {
		t.Errorf("maker = %s, want signer address %s", o.Maker, lowerAddress(signer))
	}
}

func TestBuildLimitOrder(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1726000000, 0)}
	builder := NewBuilder(testRegistry(t), newTestSigner(t), clock)

	o, err := builder.Build(Request{
		Symbol:   "ETH-PERP",
		Side:     Buy,
		Type:     Limit,
		Price:    decimal.RequireFromString("1850.5"),
		Quantity: decimal.RequireFromString("2"),
		Leverage: decimal.NewFromInt(3),
		PostOnly: true,
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	wantPrice, _ := new(big.Int).SetString("1850500000000000000000", 10)
	if o.Price.Cmp(wantPrice) != 0 {
		t.Errorf("price = %s, want %s", o.Price, wantPrice)
	}
	if o.IOC {
		t.Error("resting limit order must not be IOC")
	}
	if !o.PostOnly {
		t.Error("postOnly not carried through")
	}

	wantExp := uint64(clock.now.Add(params.LimitOrderExpiration).Unix())
	if o.Expiration != wantExp {
		t.Errorf("expiration = %d, want %d", o.Expiration, wantExp)
	}
}

func TestBuildIOCTimeInForce(t *testing.T) {
	builder := NewBuilder(testRegistry(t), newTestSigner(t), nil)

	o, err := builder.Build(Request{
		Symbol:      "ETH-PERP",
		Side:        Buy,
		Type:        Limit,
		Price:       decimal.NewFromInt(1850),
		Quantity:    decimal.NewFromInt(1),
		TimeInForce: ImmediateOrCancel,
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !o.IOC {
		t.Error("IOC time-in-force must set the IOC flag")
	}
}

func TestBuildSaltPolicy(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1726000000, 0)}
	builder := NewBuilder(testRegistry(t), newTestSigner(t), clock)

	req := Request{
		Symbol:   "ETH-PERP",
		Side:     Buy,
		Type:     Limit,
		Price:    decimal.NewFromInt(1850),
		Quantity: decimal.NewFromInt(1),
	}

	t.Run("generated salt is in range", func(t *testing.T) {
		o, err := builder.Build(req)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		if o.Salt.Sign() < 0 || o.Salt.Cmp(params.SaltCeiling) >= 0 {
			t.Errorf("salt %s outside [0, 2^60)", o.Salt)
		}
		// Generated salts encode the build time in their top digits.
		floor := new(big.Int).SetInt64(clock.now.UnixMilli() * 1000)
		if o.Salt.Cmp(floor) < 0 {
			t.Errorf("salt %s below millisecond floor %s", o.Salt, floor)
		}
	})

	t.Run("salts diverge across builds", func(t *testing.T) {
		first, err := builder.Build(req)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		clock.now = clock.now.Add(time.Millisecond)
		second, err := builder.Build(req)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		if first.Salt.Cmp(second.Salt) == 0 {
			t.Error("consecutive builds produced identical salts")
		}
	})

	t.Run("valid caller salt is kept", func(t *testing.T) {
		withSalt := req
		withSalt.Salt = big.NewInt(424242)
		o, err := builder.Build(withSalt)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		if o.Salt.Cmp(withSalt.Salt) != 0 {
			t.Errorf("salt = %s, want caller's %s", o.Salt, withSalt.Salt)
		}
	})

	t.Run("salt at ceiling is regenerated", func(t *testing.T) {
		withSalt := req
		withSalt.Salt = new(big.Int).Set(params.SaltCeiling)
		o, err := builder.Build(withSalt)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		if o.Salt.Cmp(params.SaltCeiling) >= 0 {
			t.Errorf("over-ceiling salt passed through: %s", o.Salt)
		}
	})

	t.Run("negative salt is regenerated", func(t *testing.T) {
		withSalt := req
		withSalt.Salt = big.NewInt(-1)
		o, err := builder.Build(withSalt)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		if o.Salt.Sign() < 0 {
			t.Errorf("negative salt passed through: %s", o.Salt)
		}
	})
}

func TestBuildValidation(t *testing.T) {
	builder := NewBuilder(testRegistry(t), newTestSigner(t), nil)

	if _, err := builder.Build(Request{Quantity: decimal.NewFromInt(1)}); err == nil {
		t.Error("missing symbol should fail")
	}
	if _, err := builder.Build(Request{Symbol: "ETH-PERP"}); err == nil {
		t.Error("zero quantity should fail")
	}

	_, err := builder.Build(Request{
		Symbol:   "DOGE-PERP",
		Quantity: decimal.NewFromInt(1),
	})
	if err == nil {
		t.Fatal("unknown symbol should fail")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("unknown-symbol error = %q", err)
	}
}

func TestBuildMakerOverride(t *testing.T) {
	signer := newTestSigner(t)
	builder := NewBuilder(testRegistry(t), signer, nil)

	o, err := builder.Build(Request{
		Symbol:   "ETH-PERP",
		Side:     Buy,
		Type:     Limit,
		Price:    decimal.NewFromInt(1850),
		Quantity: decimal.NewFromInt(1),
		Maker:    "0x90F8BF6A479F320EAD074411A4B0E7944EA8C9C1",
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if o.Maker != "0x90f8bf6a479f320ead074411a4b0e7944ea8c9c1" {
		t.Errorf("maker not lower-cased: %s", o.Maker)
	}

	// A properly checksummed mixed-case maker is accepted.
	other := newTestSigner(t)
	req := Request{
		Symbol:   "ETH-PERP",
		Side:     Buy,
		Type:     Limit,
		Price:    decimal.NewFromInt(1850),
		Quantity: decimal.NewFromInt(1),
		Maker:    other.Address().Hex(),
	}
	o, err = builder.Build(req)
	if err != nil {
		t.Fatalf("build with checksummed maker failed: %v", err)
	}
	if o.Maker != crypto.LowerHex(other.Address()) {
		t.Errorf("maker = %s, want %s", o.Maker, crypto.LowerHex(other.Address()))
	}

	// Flipping the case of one hex letter breaks the EIP-55 checksum;
	// the order must not build against a mistyped account.
	tampered := []byte(req.Maker)
	for i := 2; i < len(tampered); i++ {
		switch c := tampered[i]; {
		case c >= 'a' && c <= 'f':
			tampered[i] = c - ('a' - 'A')
		case c >= 'A' && c <= 'F':
			tampered[i] = c + ('a' - 'A')
		default:
			continue
		}
		break
	}
	if string(tampered) != req.Maker {
		req.Maker = string(tampered)
		if _, err := builder.Build(req); err == nil {
			t.Error("checksum-mismatched maker should fail")
		}
	}

	// Without a signer and without an explicit maker there is no address.
	unsigned := NewBuilder(testRegistry(t), nil, nil)
	_, err = unsigned.Build(Request{
		Symbol:   "ETH-PERP",
		Side:     Buy,
		Type:     Limit,
		Price:    decimal.NewFromInt(1850),
		Quantity: decimal.NewFromInt(1),
	})
	if err != crypto.ErrNoSigner {
		t.Errorf("err = %v, want ErrNoSigner", err)
	}
}

func TestBuildExpirationOverride(t *testing.T) {
	builder := NewBuilder(testRegistry(t), newTestSigner(t), nil)

	o, err := builder.Build(Request{
		Symbol:     "ETH-PERP",
		Side:       Buy,
		Type:       Limit,
		Price:      decimal.NewFromInt(1850),
		Quantity:   decimal.NewFromInt(1),
		Expiration: 1790000000,
	})
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if o.Expiration != 1790000000 {
		t.Errorf("expiration = %d, want caller's 1790000000", o.Expiration)
	}
}

func TestBuildAndSign(t *testing.T) {
	signer := newTestSigner(t)
	builder := NewBuilder(testRegistry(t), signer, nil)

	signed, err := builder.BuildAndSign(Request{
		Symbol:   "eth-perp",
		Side:     Buy,
		Type:     Limit,
		Price:    decimal.NewFromInt(1850),
		Quantity: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("build and sign failed: %v", err)
	}

	if signed.Symbol != "ETH-PERP" {
		t.Errorf("symbol = %s, want ETH-PERP", signed.Symbol)
	}
	if signed.TimeInForce != GoodTillTime {
		t.Errorf("default time in force = %s, want GTT", signed.TimeInForce)
	}
	if !strings.HasPrefix(signed.ClientID, params.ClientIDTag) {
		t.Errorf("client id %q missing tag prefix", signed.ClientID)
	}

	wantHash, err := HashHex(&signed.Order)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if signed.Hash != wantHash {
		t.Errorf("hash = %s, want %s", signed.Hash, wantHash)
	}

	valid, err := Verify(&signed.Order, signed.Signature)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !valid {
		t.Error("built order's signature did not verify")
	}

	// Explicit client ids are preserved.
	signed2, err := builder.BuildAndSign(Request{
		Symbol:   "ETH-PERP",
		Side:     Buy,
		Type:     Limit,
		Price:    decimal.NewFromInt(1850),
		Quantity: decimal.NewFromInt(1),
		ClientID: "my-correlation-id",
	})
	if err != nil {
		t.Fatalf("build and sign failed: %v", err)
	}
	if signed2.ClientID != "my-correlation-id" {
		t.Errorf("client id = %q, want caller's", signed2.ClientID)
	}
}

func TestBaseUnits(t *testing.T) {
	cases := []struct {
		human string
		base  string
	}{
		{"0.1", "100000000000000000"},
		{"1", "1000000000000000000"},
		{"1850.5", "1850500000000000000000"},
		{"0", "0"},
	}
	for _, tc := range cases {
		got := ToBaseUnits(decimal.RequireFromString(tc.human))
		if got.String() != tc.base {
			t.Errorf("ToBaseUnits(%s) = %s, want %s", tc.human, got, tc.base)
		}
		back := FromBaseUnits(got)
		if !back.Equal(decimal.RequireFromString(tc.human)) {
			t.Errorf("FromBaseUnits round-trip of %s = %s", tc.human, back)
		}
	}
}

func TestSignCancelVerifiable(t *testing.T) {
	signer := newTestSigner(t)
	hashes := []string{"0xaaa", "0xbbb"}

	signature, err := SignCancel(signer, "ETH-PERP", hashes)
	if err != nil {
		t.Fatalf("cancel signing failed: %v", err)
	}
	if !strings.HasPrefix(signature, "0x") || len(signature) != 132 {
		t.Errorf("cancel signature = %q, want 0x-prefixed 65 bytes", signature)
	}
}
