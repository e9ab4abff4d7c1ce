package confirm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lovecigare/jupito-swap/internal/config"
)

type fakeLedger struct {
	polls        atomic.Int64
	finalizeAt   int64 // report the required status starting at this poll count
	status       rpc.ConfirmationStatusType
	execErr      any
	blockhashErr error
}

func (f *fakeLedger) GetLatestBlockhash(_ context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	if f.blockhashErr != nil {
		return nil, f.blockhashErr
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{LastValidBlockHeight: 1000},
	}, nil
}

func (f *fakeLedger) GetSignatureStatuses(_ context.Context, _ bool, _ ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	n := f.polls.Add(1)
	if f.finalizeAt == 0 || n < f.finalizeAt {
		return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{nil}}, nil
	}
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{{
			ConfirmationStatus: f.status,
			Err:                f.execErr,
		}},
	}, nil
}

func testCfg(timeout time.Duration) config.ConfirmCfg {
	return config.ConfirmCfg{
		Commitment:  "processed",
		Timeout:     timeout,
		PollEvery:   10 * time.Millisecond,
		ExplorerURL: "https://solscan.io/tx/",
	}
}

func TestAwait_Finalized(t *testing.T) {
	ledger := &fakeLedger{finalizeAt: 3, status: rpc.ConfirmationStatusProcessed}
	tr := NewTracker(ledger, testCfg(time.Second), zap.NewNop())

	sig := solana.Signature{1, 2, 3}
	res := tr.Await(context.Background(), sig)

	assert.True(t, res.Finalized)
	assert.Equal(t, "https://solscan.io/tx/"+sig.String(), res.ExplorerURL)
	assert.GreaterOrEqual(t, ledger.polls.Load(), int64(3))
}

func TestAwait_HigherCommitmentSatisfies(t *testing.T) {
	ledger := &fakeLedger{finalizeAt: 1, status: rpc.ConfirmationStatusFinalized}
	tr := NewTracker(ledger, testCfg(time.Second), zap.NewNop())

	res := tr.Await(context.Background(), solana.Signature{})
	assert.True(t, res.Finalized)
}

func TestAwait_TimedOut(t *testing.T) {
	ledger := &fakeLedger{} // never reports a status
	tr := NewTracker(ledger, testCfg(80*time.Millisecond), zap.NewNop())

	res := tr.Await(context.Background(), solana.Signature{})

	assert.False(t, res.Finalized)
	assert.Empty(t, res.ExplorerURL)
}

func TestAwait_ExecutionErrorKeepsPolling(t *testing.T) {
	ledger := &fakeLedger{
		finalizeAt: 1,
		status:     rpc.ConfirmationStatusProcessed,
		execErr:    map[string]any{"InstructionError": []any{0, "Custom"}},
	}
	tr := NewTracker(ledger, testCfg(80*time.Millisecond), zap.NewNop())

	res := tr.Await(context.Background(), solana.Signature{})
	assert.False(t, res.Finalized)
}

func TestAwait_CheckpointFailureIsNotFatal(t *testing.T) {
	ledger := &fakeLedger{
		finalizeAt:   1,
		status:       rpc.ConfirmationStatusConfirmed,
		blockhashErr: errors.New("rpc down"),
	}
	tr := NewTracker(ledger, testCfg(time.Second), zap.NewNop())

	res := tr.Await(context.Background(), solana.Signature{})
	require.True(t, res.Finalized)
}
