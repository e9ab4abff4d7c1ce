package jupiter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/lovecigare/jupito-swap/internal/types"
)

// ErrAssemblyFailed means the build endpoint could not turn the quote into an
// executable transaction.
var ErrAssemblyFailed = errors.New("swap assembly failed")

type swapRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	PrioritizationFeeLamports struct {
		JitoTipLamports uint64 `json:"jitoTipLamports"`
	} `json:"prioritizationFeeLamports"`
}

type swapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// BuildSwap exchanges a quote for an unsigned transaction blob (base64). The
// tip rides along as a fee-prioritization hint; native-asset wrapping is
// always delegated to the aggregator.
func (c *Client) BuildSwap(ctx context.Context, quote types.Quote, tipLamports uint64, userPublicKey string) (string, error) {
	reqBody := swapRequest{
		QuoteResponse:    quote.Route,
		UserPublicKey:    userPublicKey,
		WrapAndUnwrapSol: true,
	}
	reqBody.PrioritizationFeeLamports.JitoTipLamports = tipLamports

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.quoteURL+"/swap", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAssemblyFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("swap build rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 240)))
		return "", fmt.Errorf("%w: http %d", ErrAssemblyFailed, resp.StatusCode)
	}

	var sr swapResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrAssemblyFailed, err)
	}
	if sr.SwapTransaction == "" {
		return "", fmt.Errorf("%w: empty transaction blob", ErrAssemblyFailed)
	}
	return sr.SwapTransaction, nil
}
