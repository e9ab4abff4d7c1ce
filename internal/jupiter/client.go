package jupiter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/lovecigare/jupito-swap/internal/config"
	"github.com/lovecigare/jupito-swap/internal/types"
)

// ErrQuoteUnavailable covers both transport failures and the aggregator
// reporting no viable route. The caller aborts the attempt; no retry here.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// ErrPriceUnavailable is reporting-only: a failed price lookup degrades the
// summary, it never aborts a trade.
var ErrPriceUnavailable = errors.New("reference price unavailable")

// Client talks to the aggregator's quote and price endpoints. Stateless; one
// round trip per call.
type Client struct {
	quoteURL string
	priceURL string
	http     *http.Client
	log      *zap.Logger
}

func NewClient(cfg config.JupiterCfg, log *zap.Logger) *Client {
	return &Client{
		quoteURL: cfg.QuoteURL,
		priceURL: cfg.PriceURL,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}
}

type quoteResponse struct {
	InputMint   string `json:"inputMint"`
	OutputMint  string `json:"outputMint"`
	InAmount    string `json:"inAmount"`
	OutAmount   string `json:"outAmount"`
	SlippageBps int    `json:"slippageBps"`
}

// GetQuote asks for a route from inputMint to outputMint for amount (smallest
// units of the input mint). The raw response body is retained on the Quote so
// the build step can pass it through verbatim.
func (c *Client) GetQuote(ctx context.Context, inputMint, outputMint string, amount uint64, toleranceBps int) (types.Quote, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", strconv.FormatUint(amount, 10))
	q.Set("slippageBps", strconv.Itoa(toleranceBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.quoteURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return types.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.Warn("quote request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 240)))
		return types.Quote{}, fmt.Errorf("%w: http %d", ErrQuoteUnavailable, resp.StatusCode)
	}

	var qr quoteResponse
	if err := json.Unmarshal(body, &qr); err != nil {
		return types.Quote{}, fmt.Errorf("%w: decode: %v", ErrQuoteUnavailable, err)
	}
	inAmt, err := strconv.ParseUint(qr.InAmount, 10, 64)
	if err != nil {
		return types.Quote{}, fmt.Errorf("%w: bad inAmount %q", ErrQuoteUnavailable, qr.InAmount)
	}
	outAmt, err := strconv.ParseUint(qr.OutAmount, 10, 64)
	if err != nil {
		return types.Quote{}, fmt.Errorf("%w: bad outAmount %q", ErrQuoteUnavailable, qr.OutAmount)
	}
	if outAmt == 0 {
		return types.Quote{}, fmt.Errorf("%w: empty route", ErrQuoteUnavailable)
	}

	return types.Quote{
		InputMint:    qr.InputMint,
		OutputMint:   qr.OutputMint,
		InAmount:     inAmt,
		OutAmount:    outAmt,
		ToleranceBps: qr.SlippageBps,
		Route:        json.RawMessage(body),
	}, nil
}

type priceResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}

// GetPrice returns the USD reference price for mint. Used only for the trade
// report, never on the execution path.
func (c *Client) GetPrice(ctx context.Context, mint string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.priceURL+"?ids="+url.QueryEscape(mint), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: http %d", ErrPriceUnavailable, resp.StatusCode)
	}

	var pr priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", ErrPriceUnavailable, err)
	}
	entry, ok := pr.Data[mint]
	if !ok || entry.Price == "" {
		return 0, fmt.Errorf("%w: no price data for %s", ErrPriceUnavailable, mint)
	}
	price, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad price %q", ErrPriceUnavailable, entry.Price)
	}
	return price, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
