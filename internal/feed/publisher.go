package feed

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/lovecigare/jupito-swap/internal/config"
	"github.com/lovecigare/jupito-swap/internal/types"
)

// Publisher pushes executed-trade summaries onto a Redis stream for external
// dashboards. Optional: a nil Publisher is a no-op.
type Publisher struct {
	rdb    *redis.Client
	stream string
}

// NewPublisher returns nil when no Redis addr is configured.
func NewPublisher(cfg config.RedisCfg) *Publisher {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	return &Publisher{rdb: rdb, stream: cfg.Stream}
}

func (p *Publisher) Publish(ctx context.Context, s types.TradeSummary) error {
	if p == nil {
		return nil
	}
	return p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"direction":     string(s.Direction),
			"mint":          s.Mint,
			"in_amount":     s.InAmount,
			"out_amount":    s.OutAmount,
			"tolerance_bps": s.ToleranceBps,
			"tip_lamports":  s.TipLamports,
			"attempted":     s.Attempted,
			"accepted_by":   s.AcceptedBy,
			"finalized":     s.Finalized,
			"explorer_url":  s.ExplorerURL,
			"fiat_cost_usd": s.FiatCostUSD,
			"elapsed_ms":    s.Elapsed.Milliseconds(),
			"ts_ms":         s.Ts.UnixMilli(),
		},
	}).Err()
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.rdb.Close()
}
