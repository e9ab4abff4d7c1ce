package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lovecigare/jupito-swap/internal/config"
	"github.com/lovecigare/jupito-swap/internal/metrics"
	"github.com/lovecigare/jupito-swap/internal/types"
)

const solDecimals = 9

type quoter interface {
	GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, toleranceBps int) (types.Quote, error)
	GetPrice(ctx context.Context, mint string) (float64, error)
}

type assembler interface {
	Assemble(ctx context.Context, quote types.Quote, params types.ExecutionParams) (*solana.Transaction, error)
}

type broadcaster interface {
	Broadcast(ctx context.Context, tx *solana.Transaction) (int, *types.RelayOutcome, error)
}

type tracker interface {
	Await(ctx context.Context, sig solana.Signature) types.ConfirmationResult
}

type balances interface {
	TokenBalance(ctx context.Context, mint solana.PublicKey) (uint64, error)
	MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}

type feePolicy interface {
	ToleranceBps(amount uint64, decimals uint8) int
	PriorityIncentive(q types.Quote) uint64
}

type publisher interface {
	Publish(ctx context.Context, s types.TradeSummary) error
}

// Trader sequences one trade attempt end to end:
// quote -> params -> assemble/sign -> broadcast -> confirm -> report.
// All collaborators are injected; nothing reads process globals.
type Trader struct {
	cfg      *config.Config
	quotes   quoter
	fees     feePolicy
	asm      assembler
	relays   broadcaster
	confirm  tracker
	balances balances
	feed     publisher
	log      *zap.Logger
}

func NewTrader(cfg *config.Config, quotes quoter, fees feePolicy, asm assembler, relays broadcaster, confirm tracker, balances balances, feed publisher, log *zap.Logger) *Trader {
	return &Trader{
		cfg:      cfg,
		quotes:   quotes,
		fees:     fees,
		asm:      asm,
		relays:   relays,
		confirm:  confirm,
		balances: balances,
		feed:     feed,
		log:      log,
	}
}

// Buy swaps the configured SOL spend into mint.
func (t *Trader) Buy(ctx context.Context, mint string) (types.TradeSummary, error) {
	spend := uint64(t.cfg.Trade.BuySpendSOL * float64(solana.LAMPORTS_PER_SOL))
	return t.execute(ctx, types.Buy, solana.WrappedSol.String(), mint, spend, solDecimals)
}

// Sell swaps the full held balance of mint back into SOL. A zero balance
// short-circuits the attempt with an informational summary and makes no
// further network calls.
func (t *Trader) Sell(ctx context.Context, mint string) (types.TradeSummary, error) {
	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return types.TradeSummary{}, fmt.Errorf("bad mint address %q: %w", mint, err)
	}

	balance, err := t.balances.TokenBalance(ctx, mintKey)
	if err != nil {
		return types.TradeSummary{}, err
	}
	if balance == 0 {
		t.log.Info("nothing to sell", zap.String("mint", mint))
		return types.TradeSummary{
			Direction: types.Sell,
			Mint:      mint,
			Note:      "no balance held for this mint",
			Ts:        time.Now(),
		}, nil
	}

	decimals, err := t.balances.MintDecimals(ctx, mintKey)
	if err != nil {
		return types.TradeSummary{}, err
	}

	return t.execute(ctx, types.Sell, mint, solana.WrappedSol.String(), balance, decimals)
}

func (t *Trader) execute(ctx context.Context, dir types.Direction, inputMint, outputMint string, amount uint64, inputDecimals uint8) (types.TradeSummary, error) {
	started := time.Now()
	t.log.Info("trade started",
		zap.String("direction", string(dir)),
		zap.String("input_mint", inputMint),
		zap.String("output_mint", outputMint),
		zap.Uint64("amount", amount))

	toleranceBps := t.fees.ToleranceBps(amount, inputDecimals)

	quoteStarted := time.Now()
	quote, err := t.quotes.GetQuote(ctx, inputMint, outputMint, amount, toleranceBps)
	if err != nil {
		return types.TradeSummary{}, err
	}
	metrics.QuoteLatency.Observe(time.Since(quoteStarted).Seconds())

	params := types.ExecutionParams{
		ToleranceBps: toleranceBps,
		TipLamports:  t.fees.PriorityIncentive(quote),
	}
	metrics.TipLamports.Set(float64(params.TipLamports))
	t.log.Info("execution parameters derived",
		zap.Int("tolerance_bps", params.ToleranceBps),
		zap.Uint64("tip_lamports", params.TipLamports),
		zap.Float64("quote_ratio", quote.Ratio()))

	tx, err := t.asm.Assemble(ctx, quote, params)
	if err != nil {
		return types.TradeSummary{}, err
	}
	sig := tx.Signatures[0]

	attempted, first, err := t.relays.Broadcast(ctx, tx)
	if err != nil {
		return types.TradeSummary{}, err
	}

	res := t.confirm.Await(ctx, sig)

	mint := outputMint
	if dir == types.Sell {
		mint = inputMint
	}
	summary := types.TradeSummary{
		Direction:    dir,
		Mint:         mint,
		InAmount:     quote.InAmount,
		OutAmount:    quote.OutAmount,
		ToleranceBps: params.ToleranceBps,
		TipLamports:  params.TipLamports,
		Attempted:    attempted,
		Finalized:    res.Finalized,
		ExplorerURL:  res.ExplorerURL,
		Elapsed:      time.Since(started),
		Ts:           started,
	}
	if first != nil {
		summary.AcceptedBy = first.Endpoint
	}

	// Reporting-only side query: a failed price lookup leaves the fiat
	// estimate empty, it never fails the trade.
	summary.FiatCostUSD = t.fiatTipEstimate(ctx, params.TipLamports)

	t.log.Info("trade finished",
		zap.String("direction", string(dir)),
		zap.Bool("finalized", summary.Finalized),
		zap.String("accepted_by", summary.AcceptedBy),
		zap.Duration("elapsed", summary.Elapsed))

	if t.feed != nil {
		if err := t.feed.Publish(ctx, summary); err != nil {
			t.log.Warn("trade feed publish failed", zap.Error(err))
		}
	}
	return summary, nil
}

// fiatTipEstimate converts the tip to USD using the SOL reference price.
func (t *Trader) fiatTipEstimate(ctx context.Context, tipLamports uint64) string {
	price, err := t.quotes.GetPrice(ctx, solana.WrappedSol.String())
	if err != nil {
		t.log.Warn("reference price lookup failed, omitting fiat estimate", zap.Error(err))
		return ""
	}
	tipSOL := decimal.NewFromUint64(tipLamports).
		Div(decimal.NewFromInt(int64(solana.LAMPORTS_PER_SOL)))
	return tipSOL.Mul(decimal.NewFromFloat(price)).StringFixed(4)
}
