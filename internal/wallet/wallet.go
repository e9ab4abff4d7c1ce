package wallet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// ErrDependencyUnavailable wraps failed balance/decimals reads.
var ErrDependencyUnavailable = errors.New("ledger read unavailable")

type ledger interface {
	GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error)
	GetTokenSupply(ctx context.Context, mint solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenSupplyResult, error)
}

// Wallet owns the payer key and answers balance and precision questions for
// the payer's token accounts.
type Wallet struct {
	payer  solana.PrivateKey
	ledger ledger
	log    *zap.Logger
}

func New(privateKey string, l ledger, log *zap.Logger) (*Wallet, error) {
	payer, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil {
		return nil, fmt.Errorf("parse payer key: %w", err)
	}
	return &Wallet{payer: payer, ledger: l, log: log}, nil
}

func (w *Wallet) Payer() solana.PrivateKey    { return w.payer }
func (w *Wallet) PublicKey() solana.PublicKey { return w.payer.PublicKey() }

// TokenBalance returns the payer's balance of mint in smallest units. A
// missing associated token account reads as zero, not as an error.
func (w *Wallet) TokenBalance(ctx context.Context, mint solana.PublicKey) (uint64, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(w.payer.PublicKey(), mint)
	if err != nil {
		return 0, fmt.Errorf("%w: derive token account: %v", ErrDependencyUnavailable, err)
	}

	res, err := w.ledger.GetTokenAccountBalance(ctx, ata, rpc.CommitmentProcessed)
	if err != nil {
		if strings.Contains(err.Error(), "could not find account") {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: token balance: %v", ErrDependencyUnavailable, err)
	}
	if res == nil || res.Value == nil {
		return 0, nil
	}

	amount, err := strconv.ParseUint(res.Value.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad amount %q", ErrDependencyUnavailable, res.Value.Amount)
	}
	return amount, nil
}

// MintDecimals reads the decimal precision of mint.
func (w *Wallet) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	res, err := w.ledger.GetTokenSupply(ctx, mint, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("%w: token supply: %v", ErrDependencyUnavailable, err)
	}
	if res == nil || res.Value == nil {
		return 0, fmt.Errorf("%w: empty supply response", ErrDependencyUnavailable)
	}
	return res.Value.Decimals, nil
}
