package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bluefin-exchange/bluefin-go/params"
	"github.com/bluefin-exchange/bluefin-go/pkg/realtime"
	"github.com/bluefin-exchange/bluefin-go/pkg/util"
)

// Streams live market data for one symbol until interrupted.
// Usage: stream [SYMBOL] (default ETH-PERP)
func main() {
	symbol := "ETH-PERP"
	if len(os.Args) > 1 {
		symbol = os.Args[1]
	}

	network := params.LoadFromEnv("")
	logger, err := util.NewLogger()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	channel := realtime.NewChannel(network.SocketURL, logger, realtime.WithAutoReconnect())

	channel.OnTickerUpdate(func(t realtime.TickerUpdate) {
		fmt.Printf("[ticker] %s last=%s bid=%s ask=%s\n",
			t.Symbol, t.LastPrice, t.BestBid, t.BestAsk)
	})
	channel.OnOrderbookUpdate(func(ob realtime.OrderbookUpdate) {
		fmt.Printf("[book] %s bids=%d asks=%d seq=%d\n",
			ob.Symbol, len(ob.Bids), len(ob.Asks), ob.Sequence)
	})
	channel.OnRecentTrades(func(rt realtime.RecentTradesUpdate) {
		for _, trade := range rt.Trades {
			fmt.Printf("[trade] %s %s %s @ %s\n",
				rt.Symbol, trade.Side, trade.Quantity, trade.Price)
		}
	})
	channel.OnMarketHealth(func(h realtime.MarketHealthUpdate) {
		fmt.Printf("[health] %s %s\n", h.Symbol, h.Health)
	})

	// Subscriptions are reset on every disconnect; re-join from the hook.
	channel.OnReconnect(func() {
		channel.SubscribeGlobalUpdates(symbol)
	})

	ctx := context.Background()
	if err := channel.Open(ctx); err != nil {
		fmt.Printf("Error opening channel: %v\n", err)
		os.Exit(1)
	}
	if !channel.SubscribeGlobalUpdates(symbol) {
		fmt.Println("Error: subscribe failed")
		os.Exit(1)
	}

	fmt.Printf("Streaming %s on %s (Ctrl-C to stop)\n", symbol, network.Name)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	channel.Close()
	fmt.Println("\nbye")
}
