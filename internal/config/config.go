package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type WalletCfg struct {
	// Base58 secret key of the payer. Usually supplied via the KEY env var
	// rather than the yaml file.
	PrivateKey string `yaml:"private_key"`
}

type RPCCfg struct {
	HTTPURL string `yaml:"http_url"`
}

type JupiterCfg struct {
	QuoteURL  string        `yaml:"quote_url"`
	PriceURL  string        `yaml:"price_url"`
	TimeoutMs int           `yaml:"timeout_ms"`
	Timeout   time.Duration `yaml:"-"`
}

type RelayCfg struct {
	Endpoints []string      `yaml:"endpoints"`
	TimeoutMs int           `yaml:"timeout_ms"`
	Timeout   time.Duration `yaml:"-"`
}

// FeesCfg carries the whole fee policy: slippage tier boundaries are in whole
// units of the input asset, tips in lamports.
type FeesCfg struct {
	BaseTipLamports uint64  `yaml:"base_tip_lamports"`
	MaxTipLamports  uint64  `yaml:"max_tip_lamports"`
	MinTipLamports  uint64  `yaml:"min_tip_lamports"`
	SmallTradeUnits float64 `yaml:"small_trade_units"`
	LargeTradeUnits float64 `yaml:"large_trade_units"`
	LowBps          int     `yaml:"low_bps"`
	MediumBps       int     `yaml:"medium_bps"`
	HighBps         int     `yaml:"high_bps"`
}

type TradeCfg struct {
	BuySpendSOL float64 `yaml:"buy_spend_sol"`
}

type ConfirmCfg struct {
	TimeoutSec  int           `yaml:"timeout_sec"`
	PollMs      int           `yaml:"poll_ms"`
	Commitment  string        `yaml:"commitment"`
	Timeout     time.Duration `yaml:"-"`
	PollEvery   time.Duration `yaml:"-"`
	ExplorerURL string        `yaml:"explorer_url"`
}

type MetricsCfg struct {
	ListenAddr string `yaml:"listen_addr"`
}

type RedisCfg struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Stream   string `yaml:"stream"`
}

type Config struct {
	Wallet  WalletCfg  `yaml:"wallet"`
	RPC     RPCCfg     `yaml:"rpc"`
	Jupiter JupiterCfg `yaml:"jupiter"`
	Relays  RelayCfg   `yaml:"relays"`
	Fees    FeesCfg    `yaml:"fees"`
	Trade   TradeCfg   `yaml:"trade"`
	Confirm ConfirmCfg `yaml:"confirm"`
	Metrics MetricsCfg `yaml:"metrics"`
	Redis   RedisCfg   `yaml:"redis"`
}

// Default relay set: independent block-engine regions racing for inclusion.
var defaultRelayEndpoints = []string{
	"https://frankfurt.mainnet.block-engine.jito.wtf",
	"https://amsterdam.mainnet.block-engine.jito.wtf",
	"https://mainnet.block-engine.jito.wtf",
	"https://tokyo.mainnet.block-engine.jito.wtf",
	"https://ny.mainnet.block-engine.jito.wtf",
	"https://slc.mainnet.block-engine.jito.wtf",
}

func Load(path string) (*Config, error) {
	// .env is loaded silently, same convention as the TS tooling this bot
	// replaces: KEY and HTTPS_MAINNET may live there instead of the yaml.
	_ = godotenv.Load()

	// The yaml file is optional: a missing file falls back to env vars and
	// defaults, matching the env-only setups this bot usually runs with.
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if v := os.Getenv("KEY"); v != "" {
		c.Wallet.PrivateKey = v
	}
	if v := os.Getenv("HTTPS_MAINNET"); v != "" {
		c.RPC.HTTPURL = v
	}

	c.applyDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Jupiter.QuoteURL == "" {
		c.Jupiter.QuoteURL = "https://quote-api.jup.ag/v6"
	}
	if c.Jupiter.PriceURL == "" {
		c.Jupiter.PriceURL = "https://api.jup.ag/price/v2"
	}
	if c.Jupiter.TimeoutMs == 0 {
		c.Jupiter.TimeoutMs = 10000
	}
	c.Jupiter.Timeout = time.Duration(c.Jupiter.TimeoutMs) * time.Millisecond

	if len(c.Relays.Endpoints) == 0 {
		c.Relays.Endpoints = defaultRelayEndpoints
	}
	if c.Relays.TimeoutMs == 0 {
		c.Relays.TimeoutMs = 10000
	}
	c.Relays.Timeout = time.Duration(c.Relays.TimeoutMs) * time.Millisecond

	if c.Fees.BaseTipLamports == 0 {
		c.Fees.BaseTipLamports = 1000
	}
	if c.Fees.MaxTipLamports == 0 {
		c.Fees.MaxTipLamports = 100000
	}
	if c.Fees.MinTipLamports == 0 {
		c.Fees.MinTipLamports = c.Fees.BaseTipLamports
	}
	if c.Fees.SmallTradeUnits == 0 {
		c.Fees.SmallTradeUnits = 1
	}
	if c.Fees.LargeTradeUnits == 0 {
		c.Fees.LargeTradeUnits = 10
	}
	if c.Fees.LowBps == 0 {
		c.Fees.LowBps = 100
	}
	if c.Fees.MediumBps == 0 {
		c.Fees.MediumBps = 500
	}
	if c.Fees.HighBps == 0 {
		c.Fees.HighBps = 1000
	}

	if c.Trade.BuySpendSOL == 0 {
		c.Trade.BuySpendSOL = 0.01
	}

	if c.Confirm.TimeoutSec == 0 {
		c.Confirm.TimeoutSec = 60
	}
	if c.Confirm.PollMs == 0 {
		c.Confirm.PollMs = 2000
	}
	if c.Confirm.Commitment == "" {
		c.Confirm.Commitment = "processed"
	}
	if c.Confirm.ExplorerURL == "" {
		c.Confirm.ExplorerURL = "https://solscan.io/tx/"
	}
	c.Confirm.Timeout = time.Duration(c.Confirm.TimeoutSec) * time.Second
	c.Confirm.PollEvery = time.Duration(c.Confirm.PollMs) * time.Millisecond

	if c.Redis.Stream == "" {
		c.Redis.Stream = "trades:executed"
	}
}

func (c *Config) validate() error {
	if c.Wallet.PrivateKey == "" {
		return errors.New("wallet private key is not set (yaml wallet.private_key or KEY env)")
	}
	if c.RPC.HTTPURL == "" {
		return errors.New("rpc http url is not set (yaml rpc.http_url or HTTPS_MAINNET env)")
	}
	if c.Fees.LowBps > c.Fees.MediumBps || c.Fees.MediumBps > c.Fees.HighBps {
		return errors.New("fee tiers must be non-decreasing: low <= medium <= high")
	}
	if c.Fees.SmallTradeUnits >= c.Fees.LargeTradeUnits {
		return errors.New("fees.small_trade_units must be below fees.large_trade_units")
	}
	return nil
}
