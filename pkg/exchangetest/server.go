// Package exchangetest hosts an in-process mock of the exchange's REST
// and push surfaces. Tests (and the mock-exchange binary) run the full
// client against it: onboarding signatures and order signatures are
// actually verified, so a tampered signature fails here the same way it
// fails in production.
package exchangetest

import (
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	eth_crypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/bluefin-exchange/bluefin-go/pkg/crypto"
	"github.com/bluefin-exchange/bluefin-go/pkg/exchange"
	"github.com/bluefin-exchange/bluefin-go/pkg/order"
)

// Server is the mock exchange. Zero-value maps are initialized by
// NewServer; all state is guarded by mu.
type Server struct {
	OnboardingURL string
	Hub           *Hub

	router  *mux.Router
	handler http.Handler

	mu             sync.Mutex
	markets        []exchange.MarketMeta
	tokens         map[string]string                 // bearer token -> address
	orders         map[string]*exchange.PlacedOrder  // hash -> order
	codTimers      map[string]map[string]int64       // address -> symbol -> countdown ms
	codUnavailable bool
	nextOrderID    int64
}

// NewServer creates a mock exchange that accepts onboarding signatures
// over onboardingURL. Two markets are pre-registered: ETH-PERP and
// BTC-PERP.
func NewServer(onboardingURL string) *Server {
	s := &Server{
		OnboardingURL: onboardingURL,
		Hub:           NewHub(),
		router:        mux.NewRouter(),
		tokens:        make(map[string]string),
		orders:        make(map[string]*exchange.PlacedOrder),
		codTimers:     make(map[string]map[string]int64),
		markets: []exchange.MarketMeta{
			{
				Symbol:          "ETH-PERP",
				OnChainID:       "0x3a9f1e8c5f1a4f0bb0c2d7e6a1b9d4c8e5f2a7b3",
				TickSize:        "10000000000000000",
				StepSize:        "10000000000000000",
				MinOrderSize:    "10000000000000000",
				MaxOrderSize:    "10000000000000000000000",
				DefaultLeverage: 3,
				MaxLeverage:     20,
				Status:          "ACTIVE",
			},
			{
				Symbol:          "BTC-PERP",
				OnChainID:       "0x7c4d2b9e8a1f6c3d5e0b4a8f2c7d1e9b6a3f5c8d",
				TickSize:        "100000000000000000",
				StepSize:        "1000000000000000",
				MinOrderSize:    "1000000000000000",
				MaxOrderSize:    "1000000000000000000000",
				DefaultLeverage: 3,
				MaxLeverage:     50,
				Status:          "ACTIVE",
			},
		},
	}
	s.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "x-wallet-address"},
		AllowCredentials: true,
	})
	s.handler = c.Handler(s.router)
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/auth/token", s.handleAuthorize).Methods("POST")
	s.router.HandleFunc("/orders", s.handlePlaceOrder).Methods("POST")
	s.router.HandleFunc("/orders/hash", s.handleCancelOrders).Methods("DELETE")
	s.router.HandleFunc("/meta", s.handleMeta).Methods("GET")
	s.router.HandleFunc("/orderbook", s.handleOrderbook).Methods("GET")
	s.router.HandleFunc("/ticker", s.handleTicker).Methods("GET")
	s.router.HandleFunc("/marketData", s.handleMarketData).Methods("GET")
	s.router.HandleFunc("/candlestickData", s.handleCandles).Methods("GET")
	s.router.HandleFunc("/recentTrades", s.handleRecentTrades).Methods("GET")
	s.router.HandleFunc("/userOrders", s.handleUserOrders).Methods("GET")
	s.router.HandleFunc("/userPosition", s.handleUserPositions).Methods("GET")
	s.router.HandleFunc("/userTrades", s.handleUserTrades).Methods("GET")
	s.router.HandleFunc("/account", s.handleAccount).Methods("GET")
	s.router.HandleFunc("/status", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/dead-man-switch", s.handleResetCountdowns).Methods("POST")
	s.router.HandleFunc("/dead-man-switch", s.handleGetCountdowns).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Handler returns the full HTTP handler (REST + websocket), ready for
// httptest.NewServer.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetCancelOnDisconnectUnavailable makes the dead-man-switch endpoints
// answer 503, emulating a deployment without the feature.
func (s *Server) SetCancelOnDisconnectUnavailable(unavailable bool) {
	s.mu.Lock()
	s.codUnavailable = unavailable
	s.mu.Unlock()
}

// TokenFor returns the bearer token minted for an address, for tests
// that push user events.
func (s *Server) TokenFor(address string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, addr := range s.tokens {
		if strings.EqualFold(addr, address) {
			return token
		}
	}
	return ""
}

// ==============================
// Auth
// ==============================

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req exchange.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", 1000)
		return
	}

	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}
	hash := eth_crypto.Keccak256([]byte(s.OnboardingURL))
	recovered, err := crypto.RecoverAddress(hash, signature)
	if err != nil || !strings.EqualFold(recovered.Hex(), req.UserAddress) {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}

	token := "tok-" + uuid.NewString()
	s.mu.Lock()
	s.tokens[token] = strings.ToLower(req.UserAddress)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, exchange.AuthResponse{Token: token})
}

// authedAddress resolves the caller's address from the bearer token.
func (s *Server) authedAddress(r *http.Request) (string, string, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return "", "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	addr, ok := s.tokens[token]
	return addr, token, ok
}

// ==============================
// Orders
// ==============================

func (s *Server) resolveMarket(symbol string) (*big.Int, bool) {
	for _, m := range s.markets {
		if strings.EqualFold(m.Symbol, symbol) {
			id, ok := new(big.Int).SetString(strings.TrimPrefix(m.OnChainID, "0x"), 16)
			return id, ok
		}
	}
	return nil, false
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	_, token, ok := s.authedAddress(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}

	var payload exchange.OrderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", 1000)
		return
	}

	marketID, ok := s.resolveMarket(payload.Symbol)
	if !ok {
		respondError(w, http.StatusNotFound, "market not found", 2000)
		return
	}

	price, ok1 := new(big.Int).SetString(payload.Price, 10)
	quantity, ok2 := new(big.Int).SetString(payload.Quantity, 10)
	leverage, ok3 := new(big.Int).SetString(payload.Leverage, 10)
	salt, ok4 := new(big.Int).SetString(payload.Salt, 10)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		respondError(w, http.StatusBadRequest, "malformed numeric field", 1001)
		return
	}

	// Re-derive the signable order exactly as the engine would and check
	// the maker signature against it.
	o := &order.Order{
		Market:        marketID,
		Price:         price,
		Quantity:      quantity,
		Leverage:      leverage,
		Salt:          salt,
		Expiration:    payload.Expiration,
		Maker:         payload.Maker,
		IsBuy:         payload.Side == "BUY",
		ReduceOnly:    payload.ReduceOnly,
		PostOnly:      payload.PostOnly,
		OrderbookOnly: payload.OrderbookOnly,
		IOC:           payload.TimeInForce == "IOC" || payload.OrderType == "MARKET",
	}
	valid, err := order.Verify(o, payload.OrderSignature)
	if err != nil || !valid {
		respondError(w, http.StatusBadRequest, "Invalid Order Signature", 3010)
		return
	}

	hash, err := order.HashHex(o)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), 1002)
		return
	}

	now := time.Now().UnixMilli()
	s.mu.Lock()
	s.nextOrderID++
	placed := &exchange.PlacedOrder{
		ID:              s.nextOrderID,
		ClientID:        payload.ClientID,
		Symbol:          strings.ToUpper(payload.Symbol),
		Hash:            hash,
		OrderStatus:     exchange.OrderStatusOpen,
		Side:            payload.Side,
		OrderType:       payload.OrderType,
		Price:           payload.Price,
		Quantity:        payload.Quantity,
		FilledQuantity:  "0",
		Leverage:        payload.Leverage,
		Maker:           strings.ToLower(payload.Maker),
		Salt:            payload.Salt,
		Expiration:      payload.Expiration,
		CreatedAtMillis: now,
		UpdatedAtMillis: now,
	}
	s.orders[hash] = placed
	s.mu.Unlock()

	s.Hub.Push("userUpdates:"+token, "OrderUpdate", map[string]any{
		"hash":        hash,
		"clientId":    payload.ClientID,
		"symbol":      placed.Symbol,
		"orderStatus": placed.OrderStatus,
		"side":        placed.Side,
		"orderType":   placed.OrderType,
		"price":       placed.Price,
		"quantity":    placed.Quantity,
		"filledQty":   "0",
		"timestamp":   now,
	})

	respondJSON(w, http.StatusCreated, placed)
}

func (s *Server) handleCancelOrders(w http.ResponseWriter, r *http.Request) {
	addr, _, ok := s.authedAddress(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}

	var body exchange.CancelBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", 1000)
		return
	}

	payload, _ := json.Marshal(order.CancelPayload{OrderHashes: body.Hashes, Symbol: body.Symbol})
	signature, err := hexutil.Decode(body.CancelSignature)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid Cancellation Signature", 3011)
		return
	}
	recovered, err := crypto.RecoverAddress(eth_crypto.Keccak256(payload), signature)
	if err != nil || !strings.EqualFold(recovered.Hex(), addr) {
		respondError(w, http.StatusBadRequest, "Invalid Cancellation Signature", 3011)
		return
	}

	result := exchange.CancelResult{}
	s.mu.Lock()
	for _, hash := range body.Hashes {
		o, exists := s.orders[hash]
		if !exists || !strings.EqualFold(o.Symbol, body.Symbol) || o.OrderStatus == exchange.OrderStatusCancelled {
			result.FailedHashes = append(result.FailedHashes, hash)
			continue
		}
		o.OrderStatus = exchange.OrderStatusCancelled
		o.UpdatedAtMillis = time.Now().UnixMilli()
		result.AcceptedHashes = append(result.AcceptedHashes, hash)
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	addr, _, ok := s.authedAddress(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}

	symbol := r.URL.Query().Get("symbol")
	statuses := map[string]bool{}
	if raw := r.URL.Query().Get("statuses"); raw != "" {
		for _, st := range strings.Split(raw, ",") {
			statuses[st] = true
		}
	}

	orders := []exchange.PlacedOrder{}
	s.mu.Lock()
	for _, o := range s.orders {
		if !strings.EqualFold(o.Maker, addr) {
			continue
		}
		if symbol != "" && !strings.EqualFold(o.Symbol, symbol) {
			continue
		}
		if len(statuses) > 0 && !statuses[o.OrderStatus] {
			continue
		}
		orders = append(orders, *o)
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, orders)
}

// ==============================
// Cancel on disconnect
// ==============================

func (s *Server) handleResetCountdowns(w http.ResponseWriter, r *http.Request) {
	addr, _, ok := s.authedAddress(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}

	s.mu.Lock()
	if s.codUnavailable {
		s.mu.Unlock()
		respondError(w, http.StatusServiceUnavailable, "cancel on disconnect unavailable", 503)
		return
	}

	var req exchange.CountdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.mu.Unlock()
		respondError(w, http.StatusBadRequest, "invalid request body", 1000)
		return
	}

	timers := s.codTimers[addr]
	if timers == nil {
		timers = make(map[string]int64)
		s.codTimers[addr] = timers
	}

	resp := exchange.CountdownResponse{}
	for _, t := range req.CountDowns {
		if t.CountDown <= 0 {
			delete(timers, t.Symbol)
		} else {
			timers[t.Symbol] = t.CountDown
		}
		resp.AcceptedToReset = append(resp.AcceptedToReset, t.Symbol)
	}
	for symbol, countdown := range timers {
		resp.Timers = append(resp.Timers, exchange.CountdownTimer{Symbol: symbol, CountDown: countdown})
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCountdowns(w http.ResponseWriter, r *http.Request) {
	addr, _, ok := s.authedAddress(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}

	s.mu.Lock()
	if s.codUnavailable {
		s.mu.Unlock()
		respondError(w, http.StatusServiceUnavailable, "cancel on disconnect unavailable", 503)
		return
	}
	resp := exchange.CountdownResponse{}
	for symbol, countdown := range s.codTimers[addr] {
		resp.Timers = append(resp.Timers, exchange.CountdownTimer{Symbol: symbol, CountDown: countdown})
	}
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, resp)
}

// ==============================
// Market data (canned)
// ==============================

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	meta := append([]exchange.MarketMeta{}, s.markets...)
	s.mu.Unlock()
	respondJSON(w, http.StatusOK, meta)
}

func (s *Server) handleOrderbook(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	respondJSON(w, http.StatusOK, exchange.Orderbook{
		Symbol: symbol,
		Bids: []exchange.OrderbookLevel{
			{Price: "1850000000000000000000", Size: "5000000000000000000"},
		},
		Asks: []exchange.OrderbookLevel{
			{Price: "1851000000000000000000", Size: "3000000000000000000"},
		},
		LastUpdated: time.Now().UnixMilli(),
	})
}

func (s *Server) handleTicker(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	respondJSON(w, http.StatusOK, exchange.Ticker{
		Symbol:     symbol,
		LastPrice:  "1850500000000000000000",
		IndexPrice: "1850400000000000000000",
		BestBid:    "1850000000000000000000",
		BestAsk:    "1851000000000000000000",
	})
}

func (s *Server) handleMarketData(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	respondJSON(w, http.StatusOK, exchange.MarketData{
		Symbol:        symbol,
		MarketPrice:   "1850500000000000000000",
		IndexPrice:    "1850400000000000000000",
		MarketHealth:  "GREEN",
		LastUpdatedAt: time.Now().UnixMilli(),
	})
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UnixMilli()
	respondJSON(w, http.StatusOK, []exchange.Candle{
		{now - 60_000, "1850", "1852", "1849", "1851", "120.5", now},
	})
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	respondJSON(w, http.StatusOK, []exchange.RecentTrade{
		{
			ID:        uuid.NewString(),
			Symbol:    symbol,
			Price:     "1850500000000000000000",
			Quantity:  "1000000000000000000",
			Side:      "BUY",
			Timestamp: time.Now().UnixMilli(),
		},
	})
}

func (s *Server) handleUserPositions(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.authedAddress(r); !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}
	respondJSON(w, http.StatusOK, []exchange.Position{})
}

func (s *Server) handleUserTrades(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := s.authedAddress(r); !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}
	respondJSON(w, http.StatusOK, []exchange.UserTrade{})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr, _, ok := s.authedAddress(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized Access", 401)
		return
	}
	respondJSON(w, http.StatusOK, exchange.AccountData{
		Address:        addr,
		WalletBalance:  "10000000000000000000000",
		FreeCollateral: "10000000000000000000000",
		AccountValue:   "10000000000000000000000",
		CanTrade:       true,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, exchange.ExchangeHealth{IsAlive: true, Status: "UP"})
}

// ==============================
// Helpers
// ==============================

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"message": message, "code": code},
	})
}
