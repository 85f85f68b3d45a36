// Package config loads and validates the engine's TOML-shaped configuration
// record: venue credentials and pair sets, blockchain RPC endpoints for
// on-chain settlement, and the trading thresholds that drive the scan
// loop and calculator.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"arbitrage/pkg/crypto"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// encPrefix marks a config value as AES-256-GCM ciphertext rather than a
// plaintext secret, so one config file can mix committed placeholders
// with real encrypted credentials.
const encPrefix = "enc:"

// Config is the root configuration record.
type Config struct {
	DatabaseURL   string                    `mapstructure:"database_url"`
	Exchanges     map[string]ExchangeConfig `mapstructure:"exchanges"`
	Blockchain    BlockchainConfig          `mapstructure:"blockchain"`
	Trading       TradingConfig             `mapstructure:"trading"`
	Notifications *NotificationConfig       `mapstructure:"notifications"`
}

// ExchangeConfig describes one venue: its credentials, REST/WS endpoints,
// the pairs it should be scanned for, and its configured trade-size bounds.
type ExchangeConfig struct {
	Name           string          `mapstructure:"name"`
	APIKey         string          `mapstructure:"api_key"`
	APISecret      string          `mapstructure:"api_secret"`
	APIURL         string          `mapstructure:"api_url"`
	WebsocketURL   string          `mapstructure:"websocket_url"`
	Enabled        bool            `mapstructure:"enabled"`
	TradingPairs   []string        `mapstructure:"trading_pairs"`
	MinTradeAmount decimal.Decimal `mapstructure:"min_trade_amount"`
	MaxTradeAmount decimal.Decimal `mapstructure:"max_trade_amount"`
}

// BlockchainConfig groups the chains the AMM venue adapter and the
// execution path may settle against.
type BlockchainConfig struct {
	Ethereum ChainConfig `mapstructure:"ethereum"`
	BSC      ChainConfig `mapstructure:"bsc"`
	Polygon  ChainConfig `mapstructure:"polygon"`
}

// ChainConfig is one chain's RPC endpoint and signing material. PrivateKey
// stays local to the venue adapter that needs it — it is never threaded
// through the calculator, book or scan loop.
type ChainConfig struct {
	RPCURL       string `mapstructure:"rpc_url"`
	ChainID      uint64 `mapstructure:"chain_id"`
	PrivateKey   string `mapstructure:"private_key"`
	GasPriceGwei uint64 `mapstructure:"gas_price_gwei"`
	MaxGasLimit  uint64 `mapstructure:"max_gas_limit"`
	Enabled      bool   `mapstructure:"enabled"`
}

// TradingConfig holds the thresholds the calculator, scan loop and
// executor gate consult on every tick.
type TradingConfig struct {
	MinProfitThreshold   decimal.Decimal `mapstructure:"min_profit_threshold"`
	MaxSlippage          decimal.Decimal `mapstructure:"max_slippage"`
	CheckIntervalSeconds uint64          `mapstructure:"check_interval_seconds"`
	MaxConcurrentTrades  int             `mapstructure:"max_concurrent_trades"`
	RiskManagement       RiskManagement  `mapstructure:"risk_management"`
}

// CheckInterval returns CheckIntervalSeconds as a time.Duration.
func (t TradingConfig) CheckInterval() time.Duration {
	return time.Duration(t.CheckIntervalSeconds) * time.Second
}

// RiskManagement bounds are consulted outside the discovery core (by any
// live-position monitor); the core itself only reads the three trading
// fields above.
type RiskManagement struct {
	MaxPortfolioExposure decimal.Decimal `mapstructure:"max_portfolio_exposure"`
	StopLossPercentage   decimal.Decimal `mapstructure:"stop_loss_percentage"`
	PositionSizeLimit    decimal.Decimal `mapstructure:"position_size_limit"`
}

// NotificationConfig describes optional outbound alert channels.
type NotificationConfig struct {
	Telegram *TelegramConfig `mapstructure:"telegram"`
	Discord  *DiscordConfig  `mapstructure:"discord"`
}

// TelegramConfig is a bot token + chat id pair.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// DiscordConfig is a single incoming webhook URL.
type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

// Error reports malformed or invalid configuration. Fatal at startup,
// never raised at runtime.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "config: " + e.Reason }

// Load reads a TOML configuration file at path, overlays environment
// variables (ARB_<SECTION>_<KEY>, upper-cased, so secrets can be supplied
// without touching the file on disk), and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("reading %s: %v", path, err)}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decimalDecodeHook)); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("decoding %s: %v", path, err)}
	}

	if err := cfg.decryptSecrets(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decryptSecrets replaces any "enc:"-prefixed credential with its
// AES-256-GCM-decrypted plaintext, keyed by ARB_ENCRYPTION_KEY. Config
// files with no "enc:" values work without that variable ever being set.
func (c *Config) decryptSecrets() error {
	var key []byte
	needsKey := false
	for _, ex := range c.Exchanges {
		if strings.HasPrefix(ex.APISecret, encPrefix) {
			needsKey = true
			break
		}
	}
	for _, chain := range []ChainConfig{c.Blockchain.Ethereum, c.Blockchain.BSC, c.Blockchain.Polygon} {
		if strings.HasPrefix(chain.PrivateKey, encPrefix) {
			needsKey = true
		}
	}
	if !needsKey {
		return nil
	}

	key = []byte(os.Getenv("ARB_ENCRYPTION_KEY"))
	if err := crypto.ValidateKey(key); err != nil {
		return &Error{Reason: fmt.Sprintf("decrypting secrets: ARB_ENCRYPTION_KEY: %v", err)}
	}

	for name, ex := range c.Exchanges {
		if strings.HasPrefix(ex.APISecret, encPrefix) {
			plain, err := crypto.Decrypt(strings.TrimPrefix(ex.APISecret, encPrefix), key)
			if err != nil {
				return &Error{Reason: fmt.Sprintf("decrypting exchange %q api_secret: %v", name, err)}
			}
			ex.APISecret = plain
			c.Exchanges[name] = ex
		}
	}

	decryptChain := func(chain *ChainConfig, name string) error {
		if !strings.HasPrefix(chain.PrivateKey, encPrefix) {
			return nil
		}
		plain, err := crypto.Decrypt(strings.TrimPrefix(chain.PrivateKey, encPrefix), key)
		if err != nil {
			return &Error{Reason: fmt.Sprintf("decrypting %s private_key: %v", name, err)}
		}
		chain.PrivateKey = plain
		return nil
	}
	if err := decryptChain(&c.Blockchain.Ethereum, "ethereum"); err != nil {
		return err
	}
	if err := decryptChain(&c.Blockchain.BSC, "bsc"); err != nil {
		return err
	}
	if err := decryptChain(&c.Blockchain.Polygon, "polygon"); err != nil {
		return err
	}
	return nil
}

// Validate enforces the fatal-at-load invariants: at least one exchange
// enabled, at least one blockchain enabled, a positive profit floor.
func (c *Config) Validate() error {
	anyExchange := false
	for _, ex := range c.Exchanges {
		if ex.Enabled {
			anyExchange = true
			break
		}
	}
	if !anyExchange {
		return &Error{Reason: "at least one exchange must be enabled"}
	}

	if !c.Blockchain.Ethereum.Enabled && !c.Blockchain.BSC.Enabled && !c.Blockchain.Polygon.Enabled {
		return &Error{Reason: "at least one blockchain must be enabled"}
	}

	if c.Trading.MinProfitThreshold.LessThanOrEqual(decimal.Zero) {
		return &Error{Reason: "trading.min_profit_threshold must be positive"}
	}

	for name, ex := range c.Exchanges {
		if ex.Enabled && ex.MaxTradeAmount.IsZero() {
			return &Error{Reason: fmt.Sprintf("exchange %q: max_trade_amount must be set when enabled", name)}
		}
	}

	return nil
}

// EnabledExchanges returns the subset of Exchanges with Enabled == true.
func (c *Config) EnabledExchanges() map[string]ExchangeConfig {
	out := make(map[string]ExchangeConfig, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		if ex.Enabled {
			out[name] = ex
		}
	}
	return out
}
