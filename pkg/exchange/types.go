package exchange

// Wire types for the exchange's REST surface. Numeric order fields are
// string-encoded base-unit integers (10^18 scale) so they survive JSON
// number precision.

// ==============================
// Auth
// ==============================

// AuthRequest is the onboarding payload: a signature over the network's
// onboarding URL minted into a bearer token.
type AuthRequest struct {
	Signature      string `json:"signature"`
	UserAddress    string `json:"userAddress"`
	IsTermAccepted bool   `json:"isTermAccepted"`
}

type AuthResponse struct {
	Token string `json:"token"`
}

// ==============================
// Orders
// ==============================

// OrderPayload is the order submission body. It echoes every field the
// engine needs to re-serialize the order and verify the maker signature.
type OrderPayload struct {
	Symbol         string `json:"symbol"`
	Maker          string `json:"maker"`
	OrderType      string `json:"orderType"`
	Side           string `json:"side"`
	Price          string `json:"price"`
	TriggerPrice   string `json:"triggerPrice"`
	Quantity       string `json:"quantity"`
	Leverage       string `json:"leverage"`
	ReduceOnly     bool   `json:"reduceOnly"`
	PostOnly       bool   `json:"postOnly"`
	Salt           string `json:"salt"`
	Expiration     uint64 `json:"expiration"`
	OrderSignature string `json:"orderSignature"`
	TimeInForce    string `json:"timeInForce"`
	OrderbookOnly  bool   `json:"orderbookOnly"` // always true for this client
	ClientID       string `json:"clientId,omitempty"`
	ParentAddress  string `json:"parentAddress,omitempty"`
}

// PlacedOrder is the engine's record of a submitted order.
type PlacedOrder struct {
	ID              int64  `json:"id"`
	ClientID        string `json:"clientId"`
	Symbol          string `json:"symbol"`
	Hash            string `json:"hash"`
	OrderStatus     string `json:"orderStatus"`
	Side            string `json:"side"`
	OrderType       string `json:"orderType"`
	Price           string `json:"price"`
	Quantity        string `json:"quantity"`
	FilledQuantity  string `json:"filledQty"`
	Leverage        string `json:"leverage"`
	Maker           string `json:"maker"`
	Salt            string `json:"salt"`
	Expiration      uint64 `json:"expiration"`
	CreatedAtMillis int64  `json:"createdAt"`
	UpdatedAtMillis int64  `json:"updatedAt"`
}

// Order lifecycle statuses reported by the engine.
const (
	OrderStatusPending       = "PENDING"
	OrderStatusOpen          = "OPEN"
	OrderStatusPartialFilled = "PARTIAL_FILLED"
	OrderStatusFilled        = "FILLED"
	OrderStatusCancelled     = "CANCELLED"
	OrderStatusExpired       = "EXPIRED"
)

// CancelBody is the DELETE payload for order cancellation.
type CancelBody struct {
	Symbol          string   `json:"symbol"`
	Hashes          []string `json:"hashes"`
	CancelSignature string   `json:"cancelSignature"`
	ParentAddress   string   `json:"parentAddress,omitempty"`
}

// CancelResult lists the hashes the engine accepted and rejected.
type CancelResult struct {
	AcceptedHashes []string `json:"acceptedHashes"`
	FailedHashes   []string `json:"failedHashes"`
	Message        string   `json:"message,omitempty"`
}

// ==============================
// Queries
// ==============================

// MarketMeta mirrors the meta endpoint's per-market record.
type MarketMeta struct {
	Symbol          string `json:"symbol"`
	OnChainID       string `json:"onchainId"` // hex or decimal string
	TickSize        string `json:"tickSize"`
	StepSize        string `json:"stepSize"`
	MinOrderSize    string `json:"minOrderSize"`
	MaxOrderSize    string `json:"maxOrderSize"`
	DefaultLeverage int    `json:"defaultLeverage"`
	MaxLeverage     int    `json:"maxLeverage"`
	Status          string `json:"status"`
}

// OrderbookLevel is a [price, size] pair in base units.
type OrderbookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type Orderbook struct {
	Symbol      string           `json:"symbol"`
	Bids        []OrderbookLevel `json:"bids"`
	Asks        []OrderbookLevel `json:"asks"`
	LastUpdated int64            `json:"lastUpdatedAt"`
}

type Ticker struct {
	Symbol        string `json:"symbol"`
	LastPrice     string `json:"lastPrice"`
	IndexPrice    string `json:"indexPrice"`
	OraclePrice   string `json:"oraclePrice"`
	BestBid       string `json:"bestBidPrice"`
	BestAsk       string `json:"bestAskPrice"`
	Volume24h     string `json:"_24hrVolume"`
	PriceChange   string `json:"_24hrPriceChangePercent"`
	FundingRate   string `json:"nextFundingRate"`
	NextFundingAt int64  `json:"nextFundingTime"`
}

type MarketData struct {
	Symbol        string `json:"symbol"`
	MarketPrice   string `json:"marketPrice"`
	IndexPrice    string `json:"indexPrice"`
	OpenInterest  string `json:"openInterest"`
	FundingRate   string `json:"fundingRate"`
	MarketHealth  string `json:"marketHealth"`
	LastUpdatedAt int64  `json:"lastUpdatedAt"`
}

// Candle is one OHLCV bar:
// [openTime, open, high, low, close, volume, closeTime].
type Candle []any

type RecentTrade struct {
	ID        string `json:"id"`
	Symbol    string `json:"symbol"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
	Side      string `json:"side"`
	Timestamp int64  `json:"timestamp"`
}

type Position struct {
	Symbol           string `json:"symbol"`
	UserAddress      string `json:"userAddress"`
	Side             string `json:"side"`
	Quantity         string `json:"quantity"`
	AvgEntryPrice    string `json:"avgEntryPrice"`
	Margin           string `json:"margin"`
	Leverage         string `json:"leverage"`
	LiquidationPrice string `json:"liquidationPrice"`
	UnrealizedProfit string `json:"unrealizedProfit"`
	UpdatedAtMillis  int64  `json:"updatedAt"`
}

type UserTrade struct {
	ID               string `json:"id"`
	Symbol           string `json:"symbol"`
	OrderHash        string `json:"orderHash"`
	Side             string `json:"side"`
	Price            string `json:"price"`
	Quantity         string `json:"quantity"`
	Fee              string `json:"fee"`
	IsMaker          bool   `json:"isMaker"`
	ExecutedAtMillis int64  `json:"executedAt"`
}

type AccountData struct {
	Address             string `json:"address"`
	WalletBalance       string `json:"walletBalance"`
	FreeCollateral      string `json:"freeCollateral"`
	TotalPositionMargin string `json:"totalPositionMargin"`
	AccountValue        string `json:"accountValue"`
	CanTrade            bool   `json:"canTrade"`
}

type ExchangeHealth struct {
	IsAlive bool   `json:"isAlive"`
	Status  string `json:"status"`
}

// ==============================
// Cancel on disconnect
// ==============================

// CountdownTimer arms (or, with CountDown 0, clears) the dead-man
// switch for one symbol. CountDown is milliseconds.
type CountdownTimer struct {
	Symbol    string `json:"symbol"`
	CountDown int64  `json:"countDown"`
}

type CountdownRequest struct {
	CountDowns    []CountdownTimer `json:"countDowns"`
	ParentAddress string           `json:"parentAddress,omitempty"`
}

type CountdownResponse struct {
	AcceptedToReset []string         `json:"acceptedToReset"`
	FailedToReset   []string         `json:"failedToReset"`
	Timers          []CountdownTimer `json:"timers"`
}
