package params

import (
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// SaltCeiling is the exclusive upper bound for order salts (2^60).
// The matching engine rejects salts at or above this value, so the
// builder enforces it for caller-supplied salts as well.
var SaltCeiling = new(big.Int).Lsh(big.NewInt(1), 60)

const (
	// BaseDecimals is the fixed-point scale shared with the on-chain
	// contracts: human-readable decimals are multiplied by 10^18.
	BaseDecimals = 18

	// DomainTag is written into every signable order serialization so
	// signatures cannot be replayed against another protocol.
	DomainTag = "Bluefin"

	// ClientIDTag prefixes every client-generated order id.
	ClientIDTag = "bluefin-go: "

	// DefaultLeverage applies when an order request leaves leverage unset.
	DefaultLeverage = 1
)

// Expiration defaults per order type. Market orders are short-lived by
// construction; limit orders rest on the book for up to a month.
const (
	MarketOrderExpiration = 1 * time.Minute
	LimitOrderExpiration  = 30 * 24 * time.Hour
)

// Network describes one deployment of the exchange: REST surface,
// realtime socket, and the onboarding URL signed during authentication.
type Network struct {
	Name          string
	APIURL        string
	SocketURL     string
	OnboardingURL string

	// RateLimit caps outbound REST calls per second. 0 = unlimited.
	RateLimit float64

	// HTTPTimeout bounds every REST round trip.
	HTTPTimeout time.Duration
}

// Testnet returns the public testnet deployment.
func Testnet() Network {
	return Network{
		Name:          "testnet",
		APIURL:        "https://dapi.api.arbitrum-staging.bluefin.io",
		SocketURL:     "wss://dapi.api.arbitrum-staging.bluefin.io",
		OnboardingURL: "https://testnet.bluefin.io",
		RateLimit:     20,
		HTTPTimeout:   30 * time.Second,
	}
}

// Mainnet returns the production deployment.
func Mainnet() Network {
	return Network{
		Name:          "mainnet",
		APIURL:        "https://dapi.api.arbitrum-prod.bluefin.io",
		SocketURL:     "wss://dapi.api.arbitrum-prod.bluefin.io",
		OnboardingURL: "https://trade.bluefin.io",
		RateLimit:     20,
		HTTPTimeout:   30 * time.Second,
	}
}

// LoadFromEnv loads network configuration from a .env file (if exists)
// and environment variables.
// Priority: ENV > .env file > named preset selected by BLUEFIN_NETWORK
func LoadFromEnv(envPath string) Network {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg := Testnet()
	if getEnv("BLUEFIN_NETWORK", "testnet") == "mainnet" {
		cfg = Mainnet()
	}

	cfg.APIURL = getEnv("BLUEFIN_API_URL", cfg.APIURL)
	cfg.SocketURL = getEnv("BLUEFIN_SOCKET_URL", cfg.SocketURL)
	cfg.OnboardingURL = getEnv("BLUEFIN_ONBOARDING_URL", cfg.OnboardingURL)

	if v := os.Getenv("BLUEFIN_RATE_LIMIT"); v != "" {
		if rps, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimit = rps
		}
	}
	if v := os.Getenv("BLUEFIN_HTTP_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.HTTPTimeout = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
