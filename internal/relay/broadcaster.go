package relay

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/lovecigare/jupito-swap/internal/config"
	"github.com/lovecigare/jupito-swap/internal/metrics"
	"github.com/lovecigare/jupito-swap/internal/types"
)

const submitPath = "/api/v1/transactions"

// Broadcaster submits one signed transaction to every configured relay
// concurrently and races for the first acceptance. Relay acceptance only
// means "queued for inclusion": a single yes is enough to move on to
// confirmation, and an all-fail fan-out is indeterminate rather than fatal,
// because a relay may have taken the transaction despite a failed response.
type Broadcaster struct {
	endpoints []string
	http      *http.Client
	log       *zap.Logger
}

func NewBroadcaster(cfg config.RelayCfg, log *zap.Logger) *Broadcaster {
	return &Broadcaster{
		endpoints: cfg.Endpoints,
		http:      &http.Client{Timeout: cfg.Timeout},
		log:       log,
	}
}

type rpcRequest struct {
	ID      int    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Broadcast serializes tx once and posts the identical payload to every
// endpoint. It returns as soon as one endpoint accepts, or after every
// endpoint has answered; stragglers finish in the background and their
// outcomes are dropped. first is nil when nobody explicitly accepted.
func (b *Broadcaster) Broadcast(ctx context.Context, tx *solana.Transaction) (attempted int, first *types.RelayOutcome, err error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return 0, nil, fmt.Errorf("serialize transaction: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(raw)

	started := time.Now()
	results := make(chan types.RelayOutcome, len(b.endpoints))
	for _, endpoint := range b.endpoints {
		go func(endpoint string) {
			results <- b.submit(ctx, endpoint, encoded)
		}(endpoint)
	}

	for received := 0; received < len(b.endpoints); received++ {
		out := <-results
		if out.Accepted {
			metrics.RelayAccepted.Inc()
			b.log.Info("relay accepted",
				zap.String("endpoint", out.Endpoint),
				zap.String("response_id", out.ResponseID),
				zap.Duration("elapsed", time.Since(started)),
				zap.Int("pending", len(b.endpoints)-received-1))
			return len(b.endpoints), &out, nil
		}
		metrics.RelayRejected.Inc()
	}

	b.log.Warn("no relay explicitly accepted, proceeding to confirmation",
		zap.Int("endpoints", len(b.endpoints)))
	return len(b.endpoints), nil, nil
}

// submit posts a sendTransaction JSON-RPC call to a single relay. Failures
// are swallowed into a rejected outcome; the race decides what matters.
func (b *Broadcaster) submit(ctx context.Context, endpoint, encodedTx string) types.RelayOutcome {
	out := types.RelayOutcome{Endpoint: endpoint}

	body, err := json.Marshal(rpcRequest{
		ID:      1,
		JSONRPC: "2.0",
		Method:  "sendTransaction",
		Params:  []any{encodedTx, map[string]string{"encoding": "base64"}},
	})
	if err != nil {
		return out
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+submitPath, bytes.NewReader(body))
	if err != nil {
		return out
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		b.log.Debug("relay submit failed", zap.String("endpoint", endpoint), zap.Error(err))
		return out
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil || resp.StatusCode != http.StatusOK {
		b.log.Debug("relay submit rejected",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode))
		return out
	}

	var rr rpcResponse
	if err := json.Unmarshal(respBody, &rr); err != nil || rr.Error != nil || rr.Result == "" {
		return out
	}

	out.Accepted = true
	out.ResponseID = rr.Result
	return out
}
