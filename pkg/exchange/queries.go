package exchange

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// Read-only queries. Each decodes the envelope payload into a typed
// result and converts application failures into errors (reads have no
// partial-success semantics worth an envelope).

// GetMarketsMeta returns the static configuration of every market,
// including the on-chain identifiers the order codec serializes.
func (s *Session) GetMarketsMeta(ctx context.Context) ([]MarketMeta, error) {
	env, err := s.transport.get(ctx, pathMeta, nil, false)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var meta []MarketMeta
	if err := env.Decode(&meta); err != nil {
		return nil, err
	}
	return meta, nil
}

// GetOrderbook returns the current book for a symbol, depth-limited
// when limit > 0.
func (s *Session) GetOrderbook(ctx context.Context, symbol string, limit int) (*Orderbook, error) {
	q := url.Values{"symbol": {symbol}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	env, err := s.transport.get(ctx, pathOrderbook, q, false)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var book Orderbook
	if err := env.Decode(&book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (s *Session) GetTicker(ctx context.Context, symbol string) (*Ticker, error) {
	env, err := s.transport.get(ctx, pathTicker, url.Values{"symbol": {symbol}}, false)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var ticker Ticker
	if err := env.Decode(&ticker); err != nil {
		return nil, err
	}
	return &ticker, nil
}

func (s *Session) GetMarketData(ctx context.Context, symbol string) (*MarketData, error) {
	env, err := s.transport.get(ctx, pathMarketData, url.Values{"symbol": {symbol}}, false)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var data MarketData
	if err := env.Decode(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCandlestickData returns OHLCV bars for symbol at the given
// interval (e.g. "1m", "5m", "1h").
func (s *Session) GetCandlestickData(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	q := url.Values{"symbol": {symbol}, "interval": {interval}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	env, err := s.transport.get(ctx, pathCandles, q, false)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var candles []Candle
	if err := env.Decode(&candles); err != nil {
		return nil, err
	}
	return candles, nil
}

func (s *Session) GetRecentTrades(ctx context.Context, symbol string) ([]RecentTrade, error) {
	env, err := s.transport.get(ctx, pathRecentTrades, url.Values{"symbol": {symbol}}, false)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var trades []RecentTrade
	if err := env.Decode(&trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// UserOrdersQuery filters the authenticated user-orders listing.
type UserOrdersQuery struct {
	Symbol        string
	Statuses      []string
	ParentAddress string
}

// GetUserOrders lists the caller's orders, optionally filtered by
// symbol and lifecycle status.
func (s *Session) GetUserOrders(ctx context.Context, query UserOrdersQuery) ([]PlacedOrder, error) {
	q := url.Values{}
	if query.Symbol != "" {
		q.Set("symbol", query.Symbol)
	}
	if len(query.Statuses) > 0 {
		q.Set("statuses", strings.Join(query.Statuses, ","))
	}
	if query.ParentAddress != "" {
		q.Set("parentAddress", query.ParentAddress)
	}

	env, err := s.transport.get(ctx, pathUserOrders, q, true)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var orders []PlacedOrder
	if err := env.Decode(&orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetUserPositions returns open positions; pass an empty symbol for all.
func (s *Session) GetUserPositions(ctx context.Context, symbol string) ([]Position, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	env, err := s.transport.get(ctx, pathUserPosition, q, true)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var positions []Position
	if err := env.Decode(&positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (s *Session) GetUserTrades(ctx context.Context, symbol string) ([]UserTrade, error) {
	q := url.Values{}
	if symbol != "" {
		q.Set("symbol", symbol)
	}
	env, err := s.transport.get(ctx, pathUserTrades, q, true)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var trades []UserTrade
	if err := env.Decode(&trades); err != nil {
		return nil, err
	}
	return trades, nil
}

func (s *Session) GetAccountData(ctx context.Context) (*AccountData, error) {
	env, err := s.transport.get(ctx, pathAccount, nil, true)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var account AccountData
	if err := env.Decode(&account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *Session) GetExchangeHealth(ctx context.Context) (*ExchangeHealth, error) {
	env, err := s.transport.get(ctx, pathExchangeHealth, nil, false)
	if err != nil {
		return nil, err
	}
	if !env.Ok {
		return nil, env.Err()
	}
	var health ExchangeHealth
	if err := env.Decode(&health); err != nil {
		return nil, err
	}
	return &health, nil
}
