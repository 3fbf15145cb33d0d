package realtime

import (
	"github.com/goccy/go-json"

	"go.uber.org/zap"
)

// decodeInto adapts a typed callback to the raw dispatch table. Frames
// that fail to decode are logged and dropped; they never reach the
// callback half-parsed.
func decodeInto[T any](log *zap.Logger, event string, cb func(T)) func(json.RawMessage) {
	return func(raw json.RawMessage) {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			log.Warn("dropping malformed event payload",
				zap.String("event", event), zap.Error(err))
			return
		}
		cb(payload)
	}
}

// Each On* method registers exactly one callback for its event kind; a
// later registration replaces the earlier one.

func (c *Channel) OnOrderbookUpdate(cb func(OrderbookUpdate)) {
	c.on(EventOrderbookUpdate, decodeInto(c.log, EventOrderbookUpdate, cb))
}

func (c *Channel) OnMarketDataUpdate(cb func(MarketDataUpdate)) {
	c.on(EventMarketDataUpdate, decodeInto(c.log, EventMarketDataUpdate, cb))
}

func (c *Channel) OnMarketHealth(cb func(MarketHealthUpdate)) {
	c.on(EventMarketHealth, decodeInto(c.log, EventMarketHealth, cb))
}

func (c *Channel) OnExchangeHealth(cb func(ExchangeHealthUpdate)) {
	c.on(EventExchangeHealth, decodeInto(c.log, EventExchangeHealth, cb))
}

func (c *Channel) OnTickerUpdate(cb func(TickerUpdate)) {
	c.on(EventTickerUpdate, decodeInto(c.log, EventTickerUpdate, cb))
}

func (c *Channel) OnRecentTrades(cb func(RecentTradesUpdate)) {
	c.on(EventRecentTrades, decodeInto(c.log, EventRecentTrades, cb))
}

// OnCandleStickUpdate registers for one symbol+interval bar stream.
// Distinct symbol/interval pairs are distinct event kinds.
func (c *Channel) OnCandleStickUpdate(symbol, interval string, cb func(CandleUpdate)) {
	key := CandleEventKey(symbol, interval)
	c.on(key, decodeInto(c.log, key, cb))
}

func (c *Channel) OnUserOrderUpdate(cb func(UserOrderUpdate)) {
	c.on(EventUserOrderUpdate, decodeInto(c.log, EventUserOrderUpdate, cb))
}

func (c *Channel) OnUserPositionUpdate(cb func(UserPositionUpdate)) {
	c.on(EventUserPositionUpdate, decodeInto(c.log, EventUserPositionUpdate, cb))
}

func (c *Channel) OnUserTradeUpdate(cb func(UserTradeUpdate)) {
	c.on(EventUserTradeUpdate, decodeInto(c.log, EventUserTradeUpdate, cb))
}

func (c *Channel) OnUserAccountDataUpdate(cb func(UserAccountDataUpdate)) {
	c.on(EventUserAccountDataUpdate, decodeInto(c.log, EventUserAccountDataUpdate, cb))
}

func (c *Channel) OnOrderSettlementUpdate(cb func(OrderSettlementUpdate)) {
	c.on(EventOrderSettlementUpdate, decodeInto(c.log, EventOrderSettlementUpdate, cb))
}

func (c *Channel) OnOrderRequeueUpdate(cb func(OrderSettlementUpdate)) {
	c.on(EventOrderRequeueUpdate, decodeInto(c.log, EventOrderRequeueUpdate, cb))
}

func (c *Channel) OnOrderCancelledOnReversion(cb func(OrderSettlementUpdate)) {
	c.on(EventOrderCancelledOnReversion, decodeInto(c.log, EventOrderCancelledOnReversion, cb))
}
