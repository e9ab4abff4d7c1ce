package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lovecigare/jupito-swap/internal/bot"
	"github.com/lovecigare/jupito-swap/internal/config"
	"github.com/lovecigare/jupito-swap/internal/confirm"
	"github.com/lovecigare/jupito-swap/internal/feed"
	"github.com/lovecigare/jupito-swap/internal/fees"
	"github.com/lovecigare/jupito-swap/internal/jupiter"
	"github.com/lovecigare/jupito-swap/internal/metrics"
	"github.com/lovecigare/jupito-swap/internal/relay"
	"github.com/lovecigare/jupito-swap/internal/swap"
	"github.com/lovecigare/jupito-swap/internal/types"
	"github.com/lovecigare/jupito-swap/internal/wallet"
)

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	return cfg.Build()
}

func buildTrader(ctx context.Context, cfgPath string, log *zap.Logger) (*bot.Trader, *feed.Publisher, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}

	rpcClient := rpc.New(cfg.RPC.HTTPURL)
	w, err := wallet.New(cfg.Wallet.PrivateKey, rpcClient, log)
	if err != nil {
		return nil, nil, err
	}

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, log)

	jup := jupiter.NewClient(cfg.Jupiter, log)
	asm := swap.NewAssembler(jup, w.Payer(), log)
	relays := relay.NewBroadcaster(cfg.Relays, log)
	tracker := confirm.NewTracker(rpcClient, cfg.Confirm, log)
	pub := feed.NewPublisher(cfg.Redis)

	return bot.NewTrader(cfg, jup, fees.NewPolicy(cfg.Fees), asm, relays, tracker, w, pub, log), pub, nil
}

func printSummary(s types.TradeSummary) {
	fmt.Println(strings.Repeat("=", 40))
	fmt.Printf("%s %s\n", s.Direction, s.Mint)
	if s.Note != "" {
		fmt.Println(s.Note)
		fmt.Println(strings.Repeat("=", 40))
		return
	}
	fmt.Printf("in amount:      %d\n", s.InAmount)
	fmt.Printf("out amount:     %d\n", s.OutAmount)
	fmt.Printf("tolerance:      %d bps\n", s.ToleranceBps)
	fmt.Printf("tip paid:       %d lamports\n", s.TipLamports)
	if s.FiatCostUSD != "" {
		fmt.Printf("tip paid (USD): $%s\n", s.FiatCostUSD)
	}
	fmt.Printf("relays tried:   %d\n", s.Attempted)
	if s.AcceptedBy != "" {
		fmt.Printf("accepted by:    %s\n", s.AcceptedBy)
	} else {
		fmt.Println("accepted by:    none (indeterminate)")
	}
	if s.Finalized {
		fmt.Printf("status:         finalized\n")
		fmt.Printf("explorer:       %s\n", s.ExplorerURL)
	} else {
		fmt.Println("status:         unconfirmed (may still land)")
	}
	fmt.Printf("elapsed:        %s\n", s.Elapsed)
	fmt.Println(strings.Repeat("=", 40))
}

func main() {
	log, err := newLogger()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Warn("received signal, shutting down...")
		cancel()
	}()

	var cfgPath string

	run := func(dir types.Direction) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			trader, pub, err := buildTrader(ctx, cfgPath, log)
			if err != nil {
				return err
			}
			defer pub.Close()

			var summary types.TradeSummary
			if dir == types.Buy {
				summary, err = trader.Buy(ctx, args[0])
			} else {
				summary, err = trader.Sell(ctx, args[0])
			}
			if err != nil {
				return err
			}
			printSummary(summary)
			return nil
		}
	}

	rootCmd := &cobra.Command{
		Use:           "trade",
		Short:         "Swap tokens through the aggregator with redundant relay submission",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "./config.yaml", "path to config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "buy <tokenAddress>",
		Short: "Buy a token with the configured SOL spend",
		Args:  cobra.ExactArgs(1),
		RunE:  run(types.Buy),
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "sell <tokenAddress>",
		Short: "Sell the full held balance of a token",
		Args:  cobra.ExactArgs(1),
		RunE:  run(types.Sell),
	})

	if err := rootCmd.Execute(); err != nil {
		log.Error("trade failed", zap.Error(err))
		os.Exit(1)
	}
}
