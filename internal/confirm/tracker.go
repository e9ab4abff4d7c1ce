package confirm

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/lovecigare/jupito-swap/internal/config"
	"github.com/lovecigare/jupito-swap/internal/metrics"
	"github.com/lovecigare/jupito-swap/internal/types"
)

type ledger interface {
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Tracker polls the ledger until a submitted transaction reaches the required
// commitment or the deadline elapses. Pending -> {Finalized, TimedOut}.
type Tracker struct {
	ledger      ledger
	required    rpc.ConfirmationStatusType
	timeout     time.Duration
	pollEvery   time.Duration
	explorerURL string
	log         *zap.Logger
}

func NewTracker(l ledger, cfg config.ConfirmCfg, log *zap.Logger) *Tracker {
	return &Tracker{
		ledger:      l,
		required:    rpc.ConfirmationStatusType(cfg.Commitment),
		timeout:     cfg.Timeout,
		pollEvery:   cfg.PollEvery,
		explorerURL: cfg.ExplorerURL,
		log:         log,
	}
}

// Await blocks until sig is observed at the required commitment level or the
// deadline passes. A timeout is not fatal: the transaction may still land
// after the tracker gives up, so the caller reports it as unconfirmed rather
// than failed.
func (t *Tracker) Await(ctx context.Context, sig solana.Signature) types.ConfirmationResult {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	// Recency checkpoint, read once on entry. Logged for operators chasing
	// expired-blockhash rejections.
	if bh, err := t.ledger.GetLatestBlockhash(ctx, rpc.CommitmentFinalized); err == nil {
		t.log.Debug("confirmation checkpoint",
			zap.String("blockhash", bh.Value.Blockhash.String()),
			zap.Uint64("last_valid_block_height", bh.Value.LastValidBlockHeight))
	} else {
		t.log.Warn("checkpoint read failed", zap.Error(err))
	}

	ticker := time.NewTicker(t.pollEvery)
	defer ticker.Stop()

	for {
		if t.observed(ctx, sig) {
			metrics.ConfirmFinalized.Inc()
			return types.ConfirmationResult{
				Finalized:   true,
				ExplorerURL: t.explorerURL + sig.String(),
			}
		}

		select {
		case <-ctx.Done():
			metrics.ConfirmTimedOut.Inc()
			t.log.Warn("confirmation deadline elapsed", zap.String("signature", sig.String()))
			return types.ConfirmationResult{}
		case <-ticker.C:
		}
	}
}

func (t *Tracker) observed(ctx context.Context, sig solana.Signature) bool {
	statuses, err := t.ledger.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		t.log.Debug("status poll failed", zap.Error(err))
		return false
	}
	if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
		return false
	}

	st := statuses.Value[0]
	if st.Err != nil {
		// The ledger recorded a failed execution; keep polling until the
		// deadline in case a competing relay's copy lands cleanly.
		t.log.Warn("transaction observed with execution error", zap.Any("err", st.Err))
		return false
	}
	return commitmentRank(st.ConfirmationStatus) >= commitmentRank(t.required)
}

func commitmentRank(s rpc.ConfirmationStatusType) int {
	switch s {
	case rpc.ConfirmationStatusProcessed:
		return 1
	case rpc.ConfirmationStatusConfirmed:
		return 2
	case rpc.ConfirmationStatusFinalized:
		return 3
	default:
		return 0
	}
}
