package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/shopspring/decimal"

	"github.com/bluefin-exchange/bluefin-go/pkg/crypto"
	"github.com/bluefin-exchange/bluefin-go/pkg/market"
	"github.com/bluefin-exchange/bluefin-go/pkg/order"
)

func main() {
	// Step 1: Generate or load key
	var signer *crypto.KeypairSigner
	var err error
	if hexKey := os.Getenv("BLUEFIN_PRIVATE_KEY"); hexKey != "" {
		fmt.Println("Loading key from BLUEFIN_PRIVATE_KEY...")
		signer, err = crypto.FromPrivateKeyHex(hexKey)
	} else {
		fmt.Println("Generating new keypair...")
		signer, err = crypto.GenerateKey()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Address: %s\n", signer.Address().Hex())
	if os.Getenv("BLUEFIN_PRIVATE_KEY") == "" {
		fmt.Printf("Private Key: %s (KEEP SECRET!)\n", signer.PrivateKeyHex())
	}
	fmt.Println()

	// Step 2: Register a market locally so the symbol resolves offline
	registry := market.NewRegistry()
	marketID, _ := new(big.Int).SetString("3a9f1e8c5f1a4f0bb0c2d7e6a1b9d4c8e5f2a7b3", 16)
	if err := registry.Register(&market.Meta{
		Symbol:    "ETH-PERP",
		OnChainID: marketID,
	}); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	// Step 3: Build and sign the order
	builder := order.NewBuilder(registry, signer, nil)
	signed, err := builder.BuildAndSign(order.Request{
		Symbol:   "ETH-PERP",
		Side:     order.Buy,
		Type:     order.Limit,
		Price:    decimal.RequireFromString("1850.5"),
		Quantity: decimal.RequireFromString("0.5"),
		Leverage: decimal.NewFromInt(3),
	})
	if err != nil {
		fmt.Printf("Error building order: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Order Details:")
	fmt.Printf("  Symbol: %s\n", signed.Symbol)
	fmt.Printf("  Side: %s\n", signed.Side)
	fmt.Printf("  Type: %s\n", signed.Type)
	fmt.Printf("  Price: %s\n", signed.Order.Price.String())
	fmt.Printf("  Quantity: %s\n", signed.Order.Quantity.String())
	fmt.Printf("  Leverage: %s\n", signed.Order.Leverage.String())
	fmt.Printf("  Salt: %s\n", signed.Order.Salt.String())
	fmt.Printf("  Expiration: %d\n", signed.Order.Expiration)
	fmt.Printf("  Maker: %s\n\n", signed.Order.Maker)

	fmt.Printf("Order Hash: %s\n", signed.Hash)
	fmt.Printf("Signature: %s\n\n", signed.Signature)

	// Step 4: Verify the signature round-trips
	fmt.Println("Verifying signature...")
	valid, err := order.Verify(&signed.Order, signed.Signature)
	if err != nil {
		fmt.Printf("Error verifying: %v\n", err)
		os.Exit(1)
	}
	if !valid {
		fmt.Println("Signature INVALID")
		os.Exit(1)
	}
	fmt.Println("Signature valid")
	fmt.Println()

	// Step 5: Print the signed order as JSON
	out, err := json.MarshalIndent(map[string]any{
		"symbol":      signed.Symbol,
		"orderType":   signed.Type,
		"side":        signed.Side,
		"timeInForce": signed.TimeInForce,
		"price":       signed.Order.Price.String(),
		"quantity":    signed.Order.Quantity.String(),
		"leverage":    signed.Order.Leverage.String(),
		"salt":        signed.Order.Salt.String(),
		"expiration":  signed.Order.Expiration,
		"maker":       signed.Order.Maker,
		"clientId":    signed.ClientID,
		"hash":        signed.Hash,
		"signature":   signed.Signature,
	}, "", "  ")
	if err != nil {
		fmt.Printf("Error marshaling JSON: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Signed Order (JSON):")
	fmt.Println(string(out))
}
