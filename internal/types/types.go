package types

import (
	"encoding/json"
	"time"
)

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Quote is a priced route proposal from the aggregator. Route keeps the raw
// quote response so the build step can echo it back untouched.
type Quote struct {
	InputMint    string
	OutputMint   string
	InAmount     uint64
	OutAmount    uint64
	ToleranceBps int
	Route        json.RawMessage
}

// Ratio returns outAmount/inAmount, the effective exchange rate of the quote.
func (q Quote) Ratio() float64 {
	if q.InAmount == 0 {
		return 0
	}
	return float64(q.OutAmount) / float64(q.InAmount)
}

// ExecutionParams are derived once per attempt and never mutated.
type ExecutionParams struct {
	ToleranceBps int
	TipLamports  uint64
}

// RelayOutcome is the per-endpoint result of one broadcast fan-out.
type RelayOutcome struct {
	Endpoint   string
	Accepted   bool
	ResponseID string
}

// ConfirmationResult is the terminal value of one confirmation wait.
// Finalized and timed-out are mutually exclusive; a timed-out attempt
// carries no explorer URL.
type ConfirmationResult struct {
	Finalized   bool
	ExplorerURL string
}

// TradeSummary is the user-facing report of one trade attempt.
type TradeSummary struct {
	Direction    Direction
	Mint         string
	InAmount     uint64
	OutAmount    uint64
	ToleranceBps int
	TipLamports  uint64
	Attempted    int
	AcceptedBy   string
	Finalized    bool
	ExplorerURL  string
	FiatCostUSD  string // empty when the reference price lookup failed
	Elapsed      time.Duration
	Note         string // set for informational no-ops (e.g. zero balance sell)
	Ts           time.Time
}
