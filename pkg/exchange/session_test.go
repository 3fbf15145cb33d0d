package exchange_test

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bluefin-exchange/bluefin-go/params"
	"github.com/bluefin-exchange/bluefin-go/pkg/crypto"
	"github.com/bluefin-exchange/bluefin-go/pkg/exchange"
	"github.com/bluefin-exchange/bluefin-go/pkg/exchangetest"
	"github.com/bluefin-exchange/bluefin-go/pkg/market"
	"github.com/bluefin-exchange/bluefin-go/pkg/order"
)

const testOnboardingURL = "https://onboard.test"

// testRig wires one session against an in-process mock exchange.
type testRig struct {
	mock    *exchangetest.Server
	session *exchange.Session
	signer  *crypto.KeypairSigner
	builder *order.Builder
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()

	mock := exchangetest.NewServer(testOnboardingURL)
	server := httptest.NewServer(mock.Handler())
	t.Cleanup(server.Close)

	signer, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	network := params.Network{
		Name:          "test",
		APIURL:        server.URL,
		OnboardingURL: testOnboardingURL,
		HTTPTimeout:   5 * time.Second,
	}
	session := exchange.NewSession(network, signer, nil, nil)

	registry := market.NewRegistry()
	marketID, _ := new(big.Int).SetString("3a9f1e8c5f1a4f0bb0c2d7e6a1b9d4c8e5f2a7b3", 16)
	if err := registry.Register(&market.Meta{Symbol: "ETH-PERP", OnChainID: marketID}); err != nil {
		t.Fatalf("failed to register market: %v", err)
	}

	return &testRig{
		mock:    mock,
		session: session,
		signer:  signer,
		builder: order.NewBuilder(registry, signer, nil),
	}
}

func (r *testRig) authenticate(t *testing.T) {
	t.Helper()
	if _, err := r.session.Authenticate(context.Background()); err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
}

func (r *testRig) signedOrder(t *testing.T) *order.Signed {
	t.Helper()
	signed, err := r.builder.BuildAndSign(order.Request{
		Symbol:   "ETH-PERP",
		Side:     order.Buy,
		Type:     order.Limit,
		Price:    decimal.NewFromInt(1850),
		Quantity: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("build and sign failed: %v", err)
	}
	return signed
}

func TestAuthenticate(t *testing.T) {
	rig := newTestRig(t)

	token, err := rig.session.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if token == "" {
		t.Fatal("empty token")
	}
	if rig.session.Token() != token {
		t.Error("session did not store the minted token")
	}
	if rig.session.Address() != crypto.LowerHex(rig.signer.Address()) {
		t.Errorf("session address = %s", rig.session.Address())
	}
}

func TestAuthenticatedCallWithoutToken(t *testing.T) {
	rig := newTestRig(t)

	_, err := rig.session.GetAccountData(context.Background())
	if !errors.Is(err, exchange.ErrNotAuthenticated) {
		t.Errorf("err = %v, want ErrNotAuthenticated", err)
	}
}

func TestInvalidTokenClearedOn401(t *testing.T) {
	rig := newTestRig(t)
	rig.session.UseToken("tok-forged")

	if _, err := rig.session.GetAccountData(context.Background()); err == nil {
		t.Fatal("forged token should be rejected")
	}
	// A 401 invalidates the stored token so the next call fails fast.
	if rig.session.Token() != "" {
		t.Error("token not cleared after 401")
	}
}

func TestPlaceSignedOrder(t *testing.T) {
	rig := newTestRig(t)
	rig.authenticate(t)

	signed := rig.signedOrder(t)
	env, err := rig.session.PlaceSignedOrder(context.Background(), signed)
	if err != nil {
		t.Fatalf("place failed: %v", err)
	}
	if !env.Ok {
		t.Fatalf("envelope not ok: status %d, %s", env.Status, env.Message)
	}
	if env.Status != 201 {
		t.Errorf("status = %d, want 201", env.Status)
	}

	var placed exchange.PlacedOrder
	if err := env.Decode(&placed); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if placed.Hash != signed.Hash {
		t.Errorf("engine hash = %s, want %s", placed.Hash, signed.Hash)
	}
	if placed.OrderStatus != exchange.OrderStatusOpen {
		t.Errorf("order status = %s, want OPEN", placed.OrderStatus)
	}
}

func TestPlaceTamperedOrderRejected(t *testing.T) {
	rig := newTestRig(t)
	rig.authenticate(t)

	signed := rig.signedOrder(t)
	// Mutate a signed field; the engine re-serializes and the maker
	// signature no longer matches.
	signed.Order.Quantity = new(big.Int).Add(signed.Order.Quantity, big.NewInt(1))

	env, err := rig.session.PlaceSignedOrder(context.Background(), signed)
	if err != nil {
		t.Fatalf("rejections must come back in the envelope, got error: %v", err)
	}
	if env.Ok {
		t.Fatal("tampered order accepted")
	}
	if env.Message != "Invalid Order Signature" {
		t.Errorf("message = %q, want %q", env.Message, "Invalid Order Signature")
	}
}

func TestSignAndCancel(t *testing.T) {
	rig := newTestRig(t)
	rig.authenticate(t)
	ctx := context.Background()

	signed := rig.signedOrder(t)
	if env, err := rig.session.PlaceSignedOrder(ctx, signed); err != nil || !env.Ok {
		t.Fatalf("place failed: %v / %+v", err, env)
	}

	env, err := rig.session.SignAndCancel(ctx, "ETH-PERP", []string{signed.Hash})
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !env.Ok {
		t.Fatalf("cancel envelope not ok: %s", env.Message)
	}

	var result exchange.CancelResult
	if err := env.Decode(&result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(result.AcceptedHashes) != 1 || result.AcceptedHashes[0] != signed.Hash {
		t.Errorf("accepted hashes = %v", result.AcceptedHashes)
	}

	// Cancelling again fails per-hash, not per-call.
	env, err = rig.session.SignAndCancel(ctx, "ETH-PERP", []string{signed.Hash})
	if err != nil {
		t.Fatalf("re-cancel failed: %v", err)
	}
	if err := env.Decode(&result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(result.FailedHashes) != 1 {
		t.Errorf("failed hashes = %v, want the already-cancelled hash", result.FailedHashes)
	}
}

func TestSignAndCancelEmptyHashes(t *testing.T) {
	rig := newTestRig(t)
	rig.authenticate(t)

	_, err := rig.session.SignAndCancel(context.Background(), "ETH-PERP", nil)
	if !errors.Is(err, exchange.ErrNoOrderHashes) {
		t.Errorf("err = %v, want ErrNoOrderHashes", err)
	}
}

func TestCancelAllOpenOrders(t *testing.T) {
	rig := newTestRig(t)
	rig.authenticate(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		signed := rig.signedOrder(t)
		if env, err := rig.session.PlaceSignedOrder(ctx, signed); err != nil || !env.Ok {
			t.Fatalf("place %d failed: %v / %+v", i, err, env)
		}
	}

	env, err := rig.session.CancelAllOpenOrders(ctx, "ETH-PERP")
	if err != nil {
		t.Fatalf("cancel all failed: %v", err)
	}
	var result exchange.CancelResult
	if err := env.Decode(&result); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(result.AcceptedHashes) != 2 {
		t.Errorf("accepted %d cancellations, want 2", len(result.AcceptedHashes))
	}

	// Nothing left open: the empty-hash guard surfaces.
	_, err = rig.session.CancelAllOpenOrders(ctx, "ETH-PERP")
	if !errors.Is(err, exchange.ErrNoOrderHashes) {
		t.Errorf("err = %v, want ErrNoOrderHashes", err)
	}
}

func TestGetUserOrdersFiltering(t *testing.T) {
	rig := newTestRig(t)
	rig.authenticate(t)
	ctx := context.Background()

	signed := rig.signedOrder(t)
	if env, err := rig.session.PlaceSignedOrder(ctx, signed); err != nil || !env.Ok {
		t.Fatalf("place failed: %v / %+v", err, env)
	}

	open, err := rig.session.GetUserOrders(ctx, exchange.UserOrdersQuery{
		Symbol:   "ETH-PERP",
		Statuses: []string{exchange.OrderStatusOpen},
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open orders = %d, want 1", len(open))
	}

	cancelled, err := rig.session.GetUserOrders(ctx, exchange.UserOrdersQuery{
		Symbol:   "ETH-PERP",
		Statuses: []string{exchange.OrderStatusCancelled},
	})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(cancelled) != 0 {
		t.Errorf("cancelled orders = %d, want 0", len(cancelled))
	}
}

func TestCancelOnDisconnect(t *testing.T) {
	rig := newTestRig(t)
	rig.authenticate(t)
	ctx := context.Background()

	resp, err := rig.session.ResetCancelOnDisconnectTimer(ctx, exchange.CountdownTimer{
		Symbol:    "ETH-PERP",
		CountDown: 300_000,
	})
	if err != nil {
		t.Fatalf("arm failed: %v", err)
	}
	if len(resp.Timers) != 1 || resp.Timers[0].CountDown != 300_000 {
		t.Errorf("timers = %+v", resp.Timers)
	}

	timers, err := rig.session.GetCancelOnDisconnectTimers(ctx)
	if err != nil {
		t.Fatalf("get timers failed: %v", err)
	}
	if len(timers) != 1 {
		t.Errorf("armed timers = %d, want 1", len(timers))
	}

	// Countdown zero disarms the symbol.
	if _, err := rig.session.ResetCancelOnDisconnectTimer(ctx, exchange.CountdownTimer{
		Symbol: "ETH-PERP",
	}); err != nil {
		t.Fatalf("disarm failed: %v", err)
	}
	timers, err = rig.session.GetCancelOnDisconnectTimers(ctx)
	if err != nil {
		t.Fatalf("get timers failed: %v", err)
	}
	if len(timers) != 0 {
		t.Errorf("timers after disarm = %+v, want none", timers)
	}
}

func TestCancelOnDisconnectUnavailable(t *testing.T) {
	rig := newTestRig(t)
	rig.authenticate(t)
	rig.mock.SetCancelOnDisconnectUnavailable(true)

	_, err := rig.session.ResetCancelOnDisconnectTimer(context.Background(), exchange.CountdownTimer{
		Symbol:    "ETH-PERP",
		CountDown: 300_000,
	})
	if !errors.Is(err, exchange.ErrCancelOnDisconnectUnavailable) {
		t.Errorf("reset err = %v, want ErrCancelOnDisconnectUnavailable", err)
	}

	_, err = rig.session.GetCancelOnDisconnectTimers(context.Background())
	if !errors.Is(err, exchange.ErrCancelOnDisconnectUnavailable) {
		t.Errorf("get err = %v, want ErrCancelOnDisconnectUnavailable", err)
	}
}

func TestPublicQueries(t *testing.T) {
	rig := newTestRig(t)
	ctx := context.Background()

	meta, err := rig.session.GetMarketsMeta(ctx)
	if err != nil {
		t.Fatalf("meta failed: %v", err)
	}
	if len(meta) != 2 {
		t.Errorf("markets = %d, want 2", len(meta))
	}

	book, err := rig.session.GetOrderbook(ctx, "ETH-PERP", 10)
	if err != nil {
		t.Fatalf("orderbook failed: %v", err)
	}
	if book.Symbol != "ETH-PERP" || len(book.Bids) == 0 {
		t.Errorf("orderbook = %+v", book)
	}

	ticker, err := rig.session.GetTicker(ctx, "ETH-PERP")
	if err != nil {
		t.Fatalf("ticker failed: %v", err)
	}
	if ticker.LastPrice == "" {
		t.Error("ticker has no last price")
	}

	candles, err := rig.session.GetCandlestickData(ctx, "ETH-PERP", "1m", 0)
	if err != nil {
		t.Fatalf("candles failed: %v", err)
	}
	if len(candles) == 0 {
		t.Error("no candles")
	}

	health, err := rig.session.GetExchangeHealth(ctx)
	if err != nil {
		t.Fatalf("health failed: %v", err)
	}
	if !health.IsAlive {
		t.Error("exchange not alive")
	}
}
