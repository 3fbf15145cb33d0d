package exchange

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/bluefin-exchange/bluefin-go/params"
	"github.com/bluefin-exchange/bluefin-go/pkg/crypto"
	"github.com/bluefin-exchange/bluefin-go/pkg/order"
)

// REST paths of the exchange's request/response surface.
const (
	pathAuthorize      = "/auth/token"
	pathOrders         = "/orders"
	pathCancelOrders   = "/orders/hash"
	pathMeta           = "/meta"
	pathOrderbook      = "/orderbook"
	pathTicker         = "/ticker"
	pathMarketData     = "/marketData"
	pathCandles        = "/candlestickData"
	pathRecentTrades   = "/recentTrades"
	pathUserOrders     = "/userOrders"
	pathUserPosition   = "/userPosition"
	pathUserTrades     = "/userTrades"
	pathAccount        = "/account"
	pathExchangeHealth = "/status"
	pathDeadManSwitch  = "/dead-man-switch"
)

// Session owns the trading identity: the signer, the wallet address and
// the bearer token lifecycle. It dispatches signed orders and
// cancellations to the engine over request/response calls.
//
// A session exclusively owns its token; multiple sessions (e.g. a maker
// and a taker in one test) are fully independent.
type Session struct {
	cfg       params.Network
	signer    crypto.Signer
	transport *transport
	log       *zap.Logger
}

// NewSession creates a session for the given identity. signer may be
// nil for read-only use; signing operations then fail with ErrNoSigner.
// httpClient and log may be nil (defaults are used).
func NewSession(cfg params.Network, signer crypto.Signer, httpClient *http.Client, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	walletAddress := ""
	if signer != nil {
		walletAddress = crypto.LowerHex(signer.Address())
	}
	return &Session{
		cfg:       cfg,
		signer:    signer,
		transport: newTransport(cfg, walletAddress, httpClient, log),
		log:       log,
	}
}

// Address returns the session's wallet address (lower-case hex).
func (s *Session) Address() string {
	return s.transport.walletAddress
}

// Token returns the current bearer token, empty until authenticated.
func (s *Session) Token() string {
	return s.transport.authToken()
}

// UseToken adopts an externally minted bearer token.
func (s *Session) UseToken(token string) {
	s.transport.setToken(token)
}

// Authenticate signs the network's onboarding URL with the held signer,
// submits it for verification and stores the minted bearer token.
func (s *Session) Authenticate(ctx context.Context) (string, error) {
	if s.signer == nil {
		return "", crypto.ErrNoSigner
	}

	signature, err := order.SignPayload(s.signer, []byte(s.cfg.OnboardingURL))
	if err != nil {
		return "", err
	}

	env, err := s.transport.post(ctx, pathAuthorize, AuthRequest{
		Signature:      signature,
		UserAddress:    s.Address(),
		IsTermAccepted: true,
	}, false)
	if err != nil {
		return "", err
	}
	if !env.Ok {
		return "", env.Err()
	}

	var auth AuthResponse
	if err := env.Decode(&auth); err != nil {
		return "", err
	}

	s.transport.setToken(auth.Token)
	s.log.Info("session authenticated", zap.String("address", s.Address()))
	return auth.Token, nil
}

// PlaceSignedOrder submits a signed order. The success criterion is the
// engine's "created" status; any other application status comes back as
// an Ok=false envelope, never as an error.
func (s *Session) PlaceSignedOrder(ctx context.Context, so *order.Signed) (*Envelope, error) {
	payload := OrderPayload{
		Symbol:         so.Symbol,
		Maker:          so.Order.Maker,
		OrderType:      string(so.Type),
		Side:           string(so.Side),
		Price:          so.Order.Price.String(),
		TriggerPrice:   "0",
		Quantity:       so.Order.Quantity.String(),
		Leverage:       so.Order.Leverage.String(),
		ReduceOnly:     so.Order.ReduceOnly,
		PostOnly:       so.Order.PostOnly,
		Salt:           so.Order.Salt.String(),
		Expiration:     so.Order.Expiration,
		OrderSignature: so.Signature,
		TimeInForce:    string(so.TimeInForce),
		OrderbookOnly:  true,
		ClientID:       so.ClientID,
	}

	env, err := s.transport.post(ctx, pathOrders, payload, true)
	if err != nil {
		return nil, err
	}
	if env.Ok && env.Status != http.StatusCreated {
		env.Ok = false
		if env.Message == "" {
			env.Message = "order not created"
		}
	}
	return env, nil
}

// CreateCancelSignature signs a cancellation payload (hashes + symbol)
// the same way orders are signed.
func (s *Session) CreateCancelSignature(symbol string, hashes []string) (string, error) {
	if s.signer == nil {
		return "", crypto.ErrNoSigner
	}
	return order.SignCancel(s.signer, symbol, hashes)
}

// CancelOrders cancels orders by hash with a pre-created cancellation
// signature.
func (s *Session) CancelOrders(ctx context.Context, symbol string, hashes []string, signature string) (*Envelope, error) {
	return s.transport.del(ctx, pathCancelOrders, CancelBody{
		Symbol:          symbol,
		Hashes:          hashes,
		CancelSignature: signature,
	}, true)
}

// SignAndCancel creates the cancellation signature and submits the
// cancellation. Fails fast when the hash list is empty.
func (s *Session) SignAndCancel(ctx context.Context, symbol string, hashes []string) (*Envelope, error) {
	if len(hashes) == 0 {
		return nil, ErrNoOrderHashes
	}
	signature, err := s.CreateCancelSignature(symbol, hashes)
	if err != nil {
		return nil, err
	}
	return s.CancelOrders(ctx, symbol, hashes, signature)
}

// CancelAllOpenOrders cancels every open, partially filled or pending
// order for the symbol. With zero open orders this surfaces
// ErrNoOrderHashes from SignAndCancel; callers that treat "nothing to
// cancel" as success must guard for it.
func (s *Session) CancelAllOpenOrders(ctx context.Context, symbol string) (*Envelope, error) {
	orders, err := s.GetUserOrders(ctx, UserOrdersQuery{
		Symbol:   symbol,
		Statuses: []string{OrderStatusOpen, OrderStatusPartialFilled, OrderStatusPending},
	})
	if err != nil {
		return nil, err
	}

	hashes := make([]string, 0, len(orders))
	for _, o := range orders {
		hashes = append(hashes, o.Hash)
	}
	return s.SignAndCancel(ctx, symbol, hashes)
}

// ResetCancelOnDisconnectTimer arms the dead-man switch for the given
// symbols; a countdown of 0 clears a previously armed symbol. A 503
// from the engine means the feature is not deployed, which is fatal for
// callers relying on it.
func (s *Session) ResetCancelOnDisconnectTimer(ctx context.Context, timers ...CountdownTimer) (*CountdownResponse, error) {
	env, err := s.transport.post(ctx, pathDeadManSwitch, CountdownRequest{CountDowns: timers}, true)
	if err != nil {
		return nil, err
	}
	if env.Status == http.StatusServiceUnavailable {
		return nil, ErrCancelOnDisconnectUnavailable
	}
	if !env.Ok {
		return nil, env.Err()
	}

	var resp CountdownResponse
	if err := env.Decode(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCancelOnDisconnectTimers returns the currently armed countdown
// timers for this account.
func (s *Session) GetCancelOnDisconnectTimers(ctx context.Context) ([]CountdownTimer, error) {
	env, err := s.transport.get(ctx, pathDeadManSwitch, nil, true)
	if err != nil {
		return nil, err
	}
	if env.Status == http.StatusServiceUnavailable {
		return nil, ErrCancelOnDisconnectUnavailable
	}
	if !env.Ok {
		return nil, env.Err()
	}

	var resp CountdownResponse
	if err := env.Decode(&resp); err != nil {
		return nil, err
	}
	return resp.Timers, nil
}
