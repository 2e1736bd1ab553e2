package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"swap-cycler/pkg/types"
)

// Config holds the application configuration. It is built once at startup and passed to the
// components that need it; nothing mutates it afterwards.
type Config struct {
	RPCURLs []string
	ChainID int64
	Network string

	Router RouterConfig

	Native types.Token
	Token  types.Token

	// Per-leg amounts in human units, e.g. "0.00245"
	NativeAmount string
	TokenAmount  string

	GasFallbackLimit uint64
	Delays           DelayConfig

	PrivateKeys []string

	JournalPath string
	MetricsAddr string
	DryRun      bool
	LogLevel    string
}

// RouterConfig describes the routing API and the contract it routes through
type RouterConfig struct {
	APIURL   string
	APIKey   string
	Slippage string
	Source   string
	Referer  string
	Spender  common.Address
}

// DelayConfig holds the fixed waits of the swap cycle
type DelayConfig struct {
	Swap  time.Duration // between swaps of a batch
	Cycle time.Duration // after a full batch
	Error time.Duration // after a failed prompt or batch
}

const (
	envPrefix      = "SWAP_CYCLER"
	configFileName = ".swap-cycler"
)

// Load reads configuration from environment variables and an optional config file.
// configFile overrides the default search path when non-empty.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// An explicit file must exist, the default one is optional
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain_id", 1)
	v.SetDefault("network", "mainnet")

	v.SetDefault("router.slippage", "1")
	v.SetDefault("router.source", "swap-cycler")
	v.SetDefault("router.referer", "https://app.swap-cycler.local/")

	v.SetDefault("native.symbol", "ETH")
	v.SetDefault("native.decimals", 18)
	v.SetDefault("token.decimals", 18)

	v.SetDefault("amounts.native", "0.00245")

	v.SetDefault("gas.fallback_limit", 500000)
	v.SetDefault("delays.swap", "2s")
	v.SetDefault("delays.cycle", "24h")
	v.SetDefault("delays.error", "60s")

	v.SetDefault("journal_path", "")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("dry_run", false)
	v.SetDefault("log.level", "info")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		RPCURLs: stringList(v, "rpc_urls"),
		ChainID: v.GetInt64("chain_id"),
		Network: v.GetString("network"),
		Router: RouterConfig{
			APIURL:   strings.TrimSpace(v.GetString("router.api_url")),
			APIKey:   v.GetString("router.api_key"),
			Slippage: v.GetString("router.slippage"),
			Source:   v.GetString("router.source"),
			Referer:  v.GetString("router.referer"),
		},
		Native: types.Token{
			Symbol:   v.GetString("native.symbol"),
			Address:  types.NativeTokenAddress,
			Decimals: decimals(v, "native.decimals"),
		},
		Token: types.Token{
			Symbol:   v.GetString("token.symbol"),
			Decimals: decimals(v, "token.decimals"),
		},
		NativeAmount:     strings.TrimSpace(v.GetString("amounts.native")),
		TokenAmount:      strings.TrimSpace(v.GetString("amounts.token")),
		GasFallbackLimit: v.GetUint64("gas.fallback_limit"),
		Delays: DelayConfig{
			Swap:  v.GetDuration("delays.swap"),
			Cycle: v.GetDuration("delays.cycle"),
			Error: v.GetDuration("delays.error"),
		},
		PrivateKeys: stringList(v, "private_keys"),
		JournalPath: v.GetString("journal_path"),
		MetricsAddr: v.GetString("metrics.addr"),
		DryRun:      v.GetBool("dry_run"),
		LogLevel:    v.GetString("log.level"),
	}

	for _, key := range []string{"native.decimals", "token.decimals"} {
		if d := v.GetInt(key); d < 0 || d > maxDecimals {
			return nil, fmt.Errorf("%s must be between 0 and %d, got %d", key, maxDecimals, d)
		}
	}

	if spender := strings.TrimSpace(v.GetString("router.spender")); spender != "" {
		if !common.IsHexAddress(spender) {
			return nil, fmt.Errorf("invalid router spender address: %s", spender)
		}
		cfg.Router.Spender = common.HexToAddress(spender)
	}

	if token := strings.TrimSpace(v.GetString("token.address")); token != "" {
		if !common.IsHexAddress(token) {
			return nil, fmt.Errorf("invalid token address: %s", token)
		}
		cfg.Token.Address = common.HexToAddress(token)
	}

	return cfg, nil
}

// Validate checks that the settings required by every command are present
func (c *Config) Validate() error {
	if len(c.RPCURLs) == 0 {
		return fmt.Errorf("RPC URL not found. Please set %s_RPC_URLS or rpc_urls in %s.yaml", envPrefix, configFileName)
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("chain id must be positive, got %d", c.ChainID)
	}
	if c.Router.APIURL == "" {
		return fmt.Errorf("routing API URL not found. Please set %s_ROUTER_API_URL", envPrefix)
	}
	if c.Router.Spender == (common.Address{}) {
		return fmt.Errorf("router spender address is required")
	}
	if c.Token.Address == (common.Address{}) {
		return fmt.Errorf("token address is required")
	}
	if c.Token.IsNative() {
		return fmt.Errorf("token address must not be the native sentinel")
	}
	if c.Token.Symbol == "" {
		return fmt.Errorf("token symbol is required")
	}
	if c.NativeAmount == "" || c.TokenAmount == "" {
		return fmt.Errorf("both amounts.native and amounts.token are required")
	}
	if c.GasFallbackLimit == 0 {
		return fmt.Errorf("gas fallback limit must be greater than 0")
	}
	return nil
}

// ERC20 decimals() returns a uint8
const maxDecimals = 255

// decimals reads a decimals key; fromViper rejects out of range values before they are used
func decimals(v *viper.Viper, key string) uint8 {
	d := v.GetInt(key)
	if d < 0 || d > maxDecimals {
		return 0
	}
	return uint8(d)
}

// stringList accepts either a YAML list or a comma separated string
func stringList(v *viper.Viper, key string) []string {
	raw := v.Get(key)
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(val, ",")
	default:
		parts = v.GetStringSlice(key)
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
