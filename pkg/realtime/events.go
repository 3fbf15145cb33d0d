package realtime

import (
	"github.com/goccy/go-json"
)

// Event kinds pushed by the exchange. Inbound frames are routed to the
// callback registered for their event key; events nobody registered for
// are dropped silently.
const (
	EventOrderbookUpdate  = "OrderbookUpdate"
	EventMarketDataUpdate = "MarketDataUpdate"
	EventMarketHealth     = "MarketHealth"
	EventExchangeHealth   = "ExchangeHealth"
	EventTickerUpdate     = "TickerUpdate"
	EventRecentTrades     = "RecentTrades"

	EventUserOrderUpdate       = "OrderUpdate"
	EventUserPositionUpdate    = "PositionUpdate"
	EventUserTradeUpdate       = "UserTrade"
	EventUserAccountDataUpdate = "AccountDataUpdate"

	EventOrderSettlementUpdate     = "OrderSettlementUpdate"
	EventOrderRequeueUpdate        = "OrderRequeueUpdate"
	EventOrderCancelledOnReversion = "OrderCancellationOnReversionUpdate"
)

// CandleEventKey builds the per-symbol, per-interval event key candle
// updates are pushed under, e.g. "ETH-PERP@candle@1m".
func CandleEventKey(symbol, interval string) string {
	return symbol + "@candle@" + interval
}

// Room kinds on the push layer.
const (
	RoomGlobalUpdates = "globalUpdates" // keyed by symbol
	RoomUserUpdates   = "userUpdates"   // keyed by auth token
)

// Room describes one subscription target.
type Room struct {
	Name     string `json:"room"`
	Symbol   string `json:"symbol,omitempty"`
	Token    string `json:"token,omitempty"`
	APIToken string `json:"apiToken,omitempty"`
}

// key identifies a joined room. User rooms are keyed by token: after
// re-authentication the new token's room is a distinct subscription,
// not a duplicate of the old one.
func (r Room) key() string {
	if r.Name == RoomUserUpdates {
		return r.Name + ":" + r.Token
	}
	return r.Name + ":" + r.Symbol
}

// controlFrame is the outbound SUBSCRIBE/UNSUBSCRIBE message.
type controlFrame struct {
	Type  string `json:"type"` // "SUBSCRIBE" or "UNSUBSCRIBE"
	Rooms []Room `json:"rooms"`
}

// eventFrame is the inbound push message shape.
type eventFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ==============================
// Event payloads
// ==============================

type OrderbookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type OrderbookUpdate struct {
	Symbol    string           `json:"symbol"`
	Bids      []OrderbookLevel `json:"bids"`
	Asks      []OrderbookLevel `json:"asks"`
	Timestamp int64            `json:"timestamp"`
	Sequence  int64            `json:"sequence"`
}

type MarketDataUpdate struct {
	Symbol       string `json:"symbol"`
	MarketPrice  string `json:"marketPrice"`
	IndexPrice   string `json:"indexPrice"`
	FundingRate  string `json:"fundingRate"`
	OpenInterest string `json:"openInterest"`
	Timestamp    int64  `json:"timestamp"`
}

type MarketHealthUpdate struct {
	Symbol string `json:"symbol"`
	Health string `json:"health"` // "GREEN", "YELLOW", "RED"
}

type ExchangeHealthUpdate struct {
	IsAlive bool   `json:"isAlive"`
	Status  string `json:"status"`
}

type TickerUpdate struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	BestBid     string `json:"bestBidPrice"`
	BestAsk     string `json:"bestAskPrice"`
	Volume24h   string `json:"_24hrVolume"`
	PriceChange string `json:"_24hrPriceChangePercent"`
	Timestamp   int64  `json:"timestamp"`
}

type RecentTradesUpdate struct {
	Symbol string `json:"symbol"`
	Trades []struct {
		ID        string `json:"id"`
		Price     string `json:"price"`
		Quantity  string `json:"quantity"`
		Side      string `json:"side"`
		Timestamp int64  `json:"timestamp"`
	} `json:"trades"`
}

// CandleUpdate is one OHLCV bar pushed per symbol+interval:
// [openTime, open, high, low, close, volume, closeTime].
type CandleUpdate []any

type UserOrderUpdate struct {
	Hash           string `json:"hash"`
	ClientID       string `json:"clientId"`
	Symbol         string `json:"symbol"`
	OrderStatus    string `json:"orderStatus"`
	Side           string `json:"side"`
	OrderType      string `json:"orderType"`
	Price          string `json:"price"`
	Quantity       string `json:"quantity"`
	FilledQuantity string `json:"filledQty"`
	AvgFillPrice   string `json:"avgFillPrice"`
	Timestamp      int64  `json:"timestamp"`
}

type UserPositionUpdate struct {
	Symbol           string `json:"symbol"`
	Side             string `json:"side"`
	Quantity         string `json:"quantity"`
	AvgEntryPrice    string `json:"avgEntryPrice"`
	Margin           string `json:"margin"`
	Leverage         string `json:"leverage"`
	LiquidationPrice string `json:"liquidationPrice"`
	Timestamp        int64  `json:"timestamp"`
}

type UserTradeUpdate struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	OrderHash string `json:"orderHash"`
	Side      string `json:"side"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	Fee       string `json:"fee"`
	IsMaker   bool   `json:"isMaker"`
	Timestamp int64  `json:"timestamp"`
}

type UserAccountDataUpdate struct {
	Address        string `json:"address"`
	WalletBalance  string `json:"walletBalance"`
	FreeCollateral string `json:"freeCollateral"`
	AccountValue   string `json:"accountValue"`
	Timestamp      int64  `json:"timestamp"`
}

// OrderSettlementUpdate notifies on-chain settlement of a matched order;
// requeue and reversion-cancellation share the shape.
type OrderSettlementUpdate struct {
	OrderHash string `json:"orderHash"`
	Symbol    string `json:"symbol"`
	Quantity  string `json:"quantity"`
	IsMaker   bool   `json:"isMaker"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
