package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bluefin-exchange/bluefin-go/pkg/exchangetest"
)

// Runs the in-process mock exchange as a standalone server, for wiring
// up the client against a local deployment.
// Usage: mock-exchange [ADDR] (default :8080)
func main() {
	addr := ":8080"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}

	onboardingURL := os.Getenv("BLUEFIN_ONBOARDING_URL")
	if onboardingURL == "" {
		onboardingURL = "http://localhost" + addr
	}

	server := exchangetest.NewServer(onboardingURL)

	fmt.Printf("Mock exchange listening on %s\n", addr)
	fmt.Printf("  onboarding URL: %s\n", onboardingURL)
	fmt.Printf("  websocket:      ws://localhost%s/ws\n", addr)

	// No read/write timeouts: the /ws endpoint holds connections open.
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
