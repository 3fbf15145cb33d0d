// Package client is the single entry point for trading against the
// exchange: it composes the REST session, the order builder/signer and
// the realtime channel behind one facade.
package client

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"go.uber.org/zap"

	"github.com/bluefin-exchange/bluefin-go/params"
	"github.com/bluefin-exchange/bluefin-go/pkg/contracts"
	"github.com/bluefin-exchange/bluefin-go/pkg/crypto"
	"github.com/bluefin-exchange/bluefin-go/pkg/exchange"
	"github.com/bluefin-exchange/bluefin-go/pkg/market"
	"github.com/bluefin-exchange/bluefin-go/pkg/order"
	"github.com/bluefin-exchange/bluefin-go/pkg/realtime"
	"github.com/bluefin-exchange/bluefin-go/pkg/util"
)

// Client owns one trading identity against one network. Multiple
// clients are fully independent; nothing is shared across instances.
type Client struct {
	network  params.Network
	signer   crypto.Signer
	log      *zap.Logger
	clock    util.Clock
	http     *http.Client
	contract contracts.Caller

	session  *exchange.Session
	registry *market.Registry
	builder  *order.Builder
	channel  *realtime.Channel
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithClock(clock util.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.http = httpClient }
}

// WithContractCaller wires the on-chain contract-call collaborator.
func WithContractCaller(caller contracts.Caller) Option {
	return func(c *Client) { c.contract = caller }
}

// New creates a client for the given network and signer configuration.
func New(network params.Network, signerCfg crypto.Config, opts ...Option) (*Client, error) {
	signer, err := crypto.New(signerCfg)
	if err != nil {
		return nil, err
	}
	return NewWithSigner(network, signer, opts...)
}

// NewWithSigner creates a client around an already-built signer.
// signer may be nil for read-only use.
func NewWithSigner(network params.Network, signer crypto.Signer, opts ...Option) (*Client, error) {
	c := &Client{
		network: network,
		signer:  signer,
		log:     zap.NewNop(),
		clock:   util.RealClock{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.session = exchange.NewSession(network, signer, c.http, c.log)
	c.registry = market.NewRegistry()
	c.builder = order.NewBuilder(c.registry, signer, c.clock)
	c.channel = realtime.NewChannel(network.SocketURL, c.log)
	return c, nil
}

// Init loads market metadata so symbols can be resolved to on-chain
// identifiers. Must run before building orders.
func (c *Client) Init(ctx context.Context) error {
	meta, err := c.session.GetMarketsMeta(ctx)
	if err != nil {
		return fmt.Errorf("failed to load market meta: %w", err)
	}

	for _, m := range meta {
		id, ok := parseMarketID(m.OnChainID)
		if !ok {
			return fmt.Errorf("market %s has malformed on-chain id %q", m.Symbol, m.OnChainID)
		}
		err := c.registry.Register(&market.Meta{
			Symbol:          m.Symbol,
			OnChainID:       id,
			TickSize:        m.TickSize,
			StepSize:        m.StepSize,
			MinOrderSize:    m.MinOrderSize,
			MaxOrderSize:    m.MaxOrderSize,
			DefaultLeverage: m.DefaultLeverage,
			MaxLeverage:     m.MaxLeverage,
			Status:          m.Status,
		})
		if err != nil {
			return err
		}
	}

	c.log.Info("market meta loaded", zap.Int("markets", c.registry.Count()))
	return nil
}

// parseMarketID accepts hex (0x...) or decimal on-chain identifiers.
func parseMarketID(s string) (*big.Int, bool) {
	if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
		return new(big.Int).SetString(s[2:], 16)
	}
	return new(big.Int).SetString(s, 10)
}

// Address returns the signer's wallet address, empty when read-only.
func (c *Client) Address() string {
	return c.session.Address()
}

// Markets exposes the resolved market registry.
func (c *Client) Markets() *market.Registry {
	return c.registry
}

// Session exposes the underlying REST session for advanced use.
func (c *Client) Session() *exchange.Session {
	return c.session
}

// Realtime exposes the push channel. The caller opens it, subscribes
// and registers callbacks directly.
func (c *Client) Realtime() *realtime.Channel {
	return c.channel
}

// Authenticate mints a bearer token with the held signer and propagates
// it to subsequent authenticated calls.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	return c.session.Authenticate(ctx)
}

// SubscribeUserUpdates joins the authenticated user room on the
// realtime channel using the session's bearer token.
func (c *Client) SubscribeUserUpdates() bool {
	token := c.session.Token()
	if token == "" {
		return false
	}
	return c.channel.SubscribeUserUpdates(token)
}

// CreateSignedOrder builds the canonical order and signs it without
// submitting.
func (c *Client) CreateSignedOrder(req order.Request) (*order.Signed, error) {
	return c.builder.BuildAndSign(req)
}

// PostSignedOrder submits an already signed order.
func (c *Client) PostSignedOrder(ctx context.Context, so *order.Signed) (*exchange.Envelope, error) {
	return c.session.PlaceSignedOrder(ctx, so)
}

// PlaceOrder is the build → sign → submit composite.
func (c *Client) PlaceOrder(ctx context.Context, req order.Request) (*exchange.Envelope, error) {
	so, err := c.CreateSignedOrder(req)
	if err != nil {
		return nil, err
	}
	return c.PostSignedOrder(ctx, so)
}

// SignAndCancel cancels the given order hashes for a symbol.
func (c *Client) SignAndCancel(ctx context.Context, symbol string, hashes []string) (*exchange.Envelope, error) {
	return c.session.SignAndCancel(ctx, symbol, hashes)
}

// CancelAllOpenOrders cancels every open, partial or pending order for
// the symbol; surfaces exchange.ErrNoOrderHashes when there are none.
func (c *Client) CancelAllOpenOrders(ctx context.Context, symbol string) (*exchange.Envelope, error) {
	return c.session.CancelAllOpenOrders(ctx, symbol)
}

// DepositToMarginBank delegates to the wired contract caller.
func (c *Client) DepositToMarginBank(ctx context.Context, amount *big.Int) (contracts.Result, error) {
	if c.contract == nil {
		return contracts.Result{}, fmt.Errorf("no contract caller configured")
	}
	return c.contract.DepositToMarginBank(ctx, amount)
}

// WithdrawFromMarginBank delegates to the wired contract caller.
func (c *Client) WithdrawFromMarginBank(ctx context.Context, amount *big.Int) (contracts.Result, error) {
	if c.contract == nil {
		return contracts.Result{}, fmt.Errorf("no contract caller configured")
	}
	return c.contract.WithdrawFromMarginBank(ctx, amount)
}

// AdjustLeverage delegates to the wired contract caller.
func (c *Client) AdjustLeverage(ctx context.Context, symbol string, leverage *big.Int) (contracts.Result, error) {
	if c.contract == nil {
		return contracts.Result{}, fmt.Errorf("no contract caller configured")
	}
	return c.contract.AdjustLeverage(ctx, symbol, leverage)
}

// Close tears down the realtime channel. REST calls need no teardown.
func (c *Client) Close() error {
	return c.channel.Close()
}
