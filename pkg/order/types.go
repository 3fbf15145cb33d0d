package order

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Side of an order from the maker's perspective.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Type distinguishes market orders (priced at zero, short expiration)
// from resting limit orders.
type Type string

const (
	Market Type = "MARKET"
	Limit  Type = "LIMIT"
)

// TimeInForce values understood by the matching engine.
type TimeInForce string

const (
	GoodTillTime      TimeInForce = "GTT"
	ImmediateOrCancel TimeInForce = "IOC"
)

// Order is the canonical, signable unit the exchange matches. All
// numeric fields are fixed-point base units (10^18); the exchange and
// the on-chain contract re-derive the same serialization from these
// fields to verify the maker signature.
type Order struct {
	Market     *big.Int // on-chain market identifier
	Price      *big.Int // 0 for market orders
	Quantity   *big.Int
	Leverage   *big.Int
	Salt       *big.Int // per-order anti-replay nonce, < 2^60
	Expiration uint64   // unix seconds
	Maker      string   // lower-case hex address placing the order

	IsBuy         bool
	ReduceOnly    bool
	PostOnly      bool
	OrderbookOnly bool
	IOC           bool
}

// Request is the user-facing description of an order to be built and
// signed. Zero values get builder defaults: leverage 1, expiration per
// order type, generated salt, maker = signer address.
type Request struct {
	Symbol   string
	Price    decimal.Decimal // human-readable; ignored for market orders
	Quantity decimal.Decimal
	Leverage decimal.Decimal // optional; defaults to 1
	Side     Side
	Type     Type

	TimeInForce TimeInForce // optional; defaults to GTT
	ReduceOnly  bool
	PostOnly    bool

	// Maker overrides the signer address for sub-account trading
	// (the parent account places orders on the sub-account's behalf).
	Maker string

	// Salt overrides the generated nonce. Values at or above the salt
	// ceiling are discarded and regenerated.
	Salt *big.Int

	// Expiration overrides the per-type default (unix seconds).
	Expiration uint64

	// ClientID correlates exchange updates with this request. Generated
	// with the client tag prefix when empty.
	ClientID string
}

// Signed is a built order together with its maker signature and hash,
// carrying everything the exchange needs to re-verify it.
type Signed struct {
	Symbol      string
	Order       Order
	Type        Type
	Side        Side
	TimeInForce TimeInForce
	ClientID    string

	// Hash is the keccak256 digest of the order serialization, used to
	// correlate REST responses with realtime updates.
	Hash string

	// Signature is the maker signature over Hash, hex-encoded.
	Signature string
}
