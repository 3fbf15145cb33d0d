// Package contracts defines the boundary to the on-chain contract-call
// layer. The client core treats deposits, withdrawals and leverage
// adjustments as an opaque capability; wiring an actual chain backend
// is the embedding application's concern.
package contracts

import (
	"context"
	"encoding/json"
	"math/big"
)

// Result is the uniform success/failure/data envelope every contract
// call resolves to, mirroring the REST envelope shape.
type Result struct {
	Ok      bool            `json:"ok"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    int             `json:"code,omitempty"`
}

// Caller is the collaborator interface to the margin/leverage contracts.
// Amounts are fixed-point base units (10^18).
type Caller interface {
	// ResolveMarketAddress maps a market symbol to the on-chain market
	// identifier the order codec serializes.
	ResolveMarketAddress(ctx context.Context, symbol string) (*big.Int, error)

	// GetMarginBankBalance returns the address's free margin.
	GetMarginBankBalance(ctx context.Context, address string) (*big.Int, error)

	// DepositToMarginBank moves collateral from the wallet into the
	// margin bank.
	DepositToMarginBank(ctx context.Context, amount *big.Int) (Result, error)

	// WithdrawFromMarginBank moves free collateral back to the wallet.
	WithdrawFromMarginBank(ctx context.Context, amount *big.Int) (Result, error)

	// AdjustLeverage changes the user's leverage for a market on chain.
	AdjustLeverage(ctx context.Context, symbol string, leverage *big.Int) (Result, error)
}
