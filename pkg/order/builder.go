package order

import (
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bluefin-exchange/bluefin-go/params"
	"github.com/bluefin-exchange/bluefin-go/pkg/crypto"
	"github.com/bluefin-exchange/bluefin-go/pkg/util"
)

// Resolver maps a market symbol to its on-chain identifier.
// *market.Registry satisfies this.
type Resolver interface {
	Resolve(symbol string) (*big.Int, error)
}

// Builder turns user-facing order requests into canonical signable
// orders, applying default leverage, expiration policy, salt policy and
// fixed-point conversion.
type Builder struct {
	resolver Resolver
	signer   crypto.Signer
	clock    util.Clock
}

// NewBuilder creates a builder. clock may be nil (RealClock is used).
func NewBuilder(resolver Resolver, signer crypto.Signer, clock util.Clock) *Builder {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Builder{resolver: resolver, signer: signer, clock: clock}
}

// Build maps a Request into a canonical Order.
func (b *Builder) Build(req Request) (*Order, error) {
	if req.Symbol == "" {
		return nil, fmt.Errorf("order symbol required")
	}
	if req.Quantity.Sign() <= 0 {
		return nil, fmt.Errorf("order quantity must be positive")
	}

	marketID, err := b.resolver.Resolve(req.Symbol)
	if err != nil {
		return nil, err
	}

	now := b.clock.Now()

	// Market orders carry price zero; the engine fills at market.
	price := big.NewInt(0)
	if req.Type != Market {
		price = ToBaseUnits(req.Price)
	}

	leverage := req.Leverage
	if leverage.Sign() == 0 {
		leverage = decimal.NewFromInt(params.DefaultLeverage)
	}

	expiration := req.Expiration
	if expiration == 0 {
		ttl := params.LimitOrderExpiration
		if req.Type == Market {
			ttl = params.MarketOrderExpiration
		}
		expiration = uint64(now.Add(ttl).Unix())
	}

	// Caller-supplied salts above the ceiling are discarded rather than
	// passed through; the engine would reject them anyway.
	salt := req.Salt
	if salt == nil || salt.Sign() < 0 || salt.Cmp(params.SaltCeiling) >= 0 {
		salt = GenerateSalt(now)
	}

	// Mixed-case maker addresses carry an EIP-55 checksum; a mismatch
	// means a typo, not a different account, so reject before lowering.
	if req.Maker != "" && !crypto.ChecksumValid(req.Maker) {
		return nil, fmt.Errorf("maker address checksum mismatch: %s", req.Maker)
	}
	maker := strings.ToLower(req.Maker)
	if maker == "" {
		if b.signer == nil {
			return nil, crypto.ErrNoSigner
		}
		maker = crypto.LowerHex(b.signer.Address())
	}

	return &Order{
		Market:        marketID,
		Price:         price,
		Quantity:      ToBaseUnits(req.Quantity),
		Leverage:      ToBaseUnits(leverage),
		Salt:          salt,
		Expiration:    expiration,
		Maker:         maker,
		IsBuy:         req.Side == Buy,
		ReduceOnly:    req.ReduceOnly,
		PostOnly:      req.PostOnly,
		OrderbookOnly: true,
		IOC:           req.TimeInForce == ImmediateOrCancel || req.Type == Market,
	}, nil
}

// BuildAndSign builds the canonical order and attaches the maker
// signature, hash and client id.
func (b *Builder) BuildAndSign(req Request) (*Signed, error) {
	o, err := b.Build(req)
	if err != nil {
		return nil, err
	}

	signature, err := Sign(b.signer, o)
	if err != nil {
		return nil, err
	}
	hash, err := HashHex(o)
	if err != nil {
		return nil, err
	}

	tif := req.TimeInForce
	if tif == "" {
		tif = GoodTillTime
	}
	clientID := req.ClientID
	if clientID == "" {
		clientID = params.ClientIDTag + uuid.NewString()
	}

	return &Signed{
		Symbol:      strings.ToUpper(req.Symbol),
		Order:       *o,
		Type:        req.Type,
		Side:        req.Side,
		TimeInForce: tif,
		ClientID:    clientID,
		Hash:        hash,
		Signature:   signature,
	}, nil
}

// GenerateSalt produces a fresh per-order nonce:
// floor((now_ms + rand + rand) * 1000). Two orders built in the same
// millisecond still diverge through the random fractions.
func GenerateSalt(now time.Time) *big.Int {
	ms := float64(now.UnixMilli())
	v := math.Floor((ms + rand.Float64() + rand.Float64()) * 1000)
	return new(big.Int).SetUint64(uint64(v))
}
