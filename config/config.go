// Package config loads engine configuration from a yaml file or flags.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// ProducerConfig is one producer's consensus weighting.
type ProducerConfig struct {
	Enabled       bool
	Weight        decimal.Decimal
	MinConfidence decimal.Decimal
}

// TierConfig is one sizing tier.
type TierConfig struct {
	MinBalance decimal.Decimal
	Percent    decimal.Decimal
}

// SizingConfig selects and tunes the sizing policy.
type SizingConfig struct {
	Policy          string
	Tiers           []TierConfig
	MinUSD          decimal.Decimal
	MaxUSD          decimal.Decimal
	KellyMultiplier decimal.Decimal
	MinPercent      decimal.Decimal
	MaxPercent      decimal.Decimal
}

// Config is the fully parsed engine configuration.
type Config struct {
	Platform      string
	Instruments   []domain.Instrument
	TickInterval  time.Duration
	EpochDuration time.Duration

	Quorum             int
	MinConfidence      decimal.Decimal
	ConsensusThreshold decimal.Decimal
	ConfidenceSource   string
	Producers          map[string]ProducerConfig

	MaxConcurrentPositions int
	DirectionCeiling       decimal.Decimal
	BiasWindowSize         int
	BiasFraction           decimal.Decimal
	ConflictTimeout        time.Duration

	Sizing       SizingConfig
	StartBalance decimal.Decimal

	KlineInterval string
	KlineLookback int

	StatePath    string
	AuditDir     string
	KafkaBrokers []string
	KafkaTopic   string
	MaxParallel  int
}

type producerTmp struct {
	Enabled       bool   `yaml:"enabled"`
	Weight        string `yaml:"weight,omitempty"`
	MinConfidence string `yaml:"min_confidence,omitempty"`
}

type tierTmp struct {
	MinBalance string `yaml:"min_balance"`
	Percent    string `yaml:"percent"`
}

type sizingTmp struct {
	Policy          string    `yaml:"policy,omitempty"`
	Tiers           []tierTmp `yaml:"tiers,omitempty"`
	MinUSD          string    `yaml:"min_usd,omitempty"`
	MaxUSD          string    `yaml:"max_usd,omitempty"`
	KellyMultiplier string    `yaml:"kelly_multiplier,omitempty"`
	MinPercent      string    `yaml:"min_percent,omitempty"`
	MaxPercent      string    `yaml:"max_percent,omitempty"`
}

type configTmp struct {
	Platform      string        `yaml:"platform,omitempty"`
	Instruments   []string      `yaml:"instruments"`
	TickInterval  time.Duration `yaml:"tick_interval,omitempty"`
	EpochDuration time.Duration `yaml:"epoch_duration,omitempty"`

	Quorum             int                    `yaml:"quorum,omitempty"`
	MinConfidence      string                 `yaml:"min_confidence,omitempty"`
	ConsensusThreshold string                 `yaml:"consensus_threshold,omitempty"`
	ConfidenceSource   string                 `yaml:"confidence_source,omitempty"`
	Producers          map[string]producerTmp `yaml:"producers,omitempty"`

	MaxConcurrentPositions int           `yaml:"max_concurrent_positions,omitempty"`
	DirectionCeiling       string        `yaml:"direction_ceiling,omitempty"`
	BiasWindowSize         int           `yaml:"bias_window_size,omitempty"`
	BiasFraction           string        `yaml:"bias_fraction,omitempty"`
	ConflictTimeout        time.Duration `yaml:"conflict_timeout,omitempty"`

	Sizing       sizingTmp `yaml:"sizing,omitempty"`
	StartBalance string    `yaml:"start_balance,omitempty"`

	KlineInterval string `yaml:"kline_interval,omitempty"`
	KlineLookback int    `yaml:"kline_lookback,omitempty"`

	StatePath    string   `yaml:"state_path,omitempty"`
	AuditDir     string   `yaml:"audit_dir,omitempty"`
	KafkaBrokers []string `yaml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `yaml:"kafka_topic,omitempty"`
	MaxParallel  int      `yaml:"max_parallel,omitempty"`
}

// Get loads configuration from the yaml file passed via -config, or from
// flags when no file is given.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	instrumentsFlag := flag.String("instruments", "BTC_USDT", "comma-separated instruments, example: BTC_USDT,ETH_USDT")
	platformFlag := flag.String("platform", "simulate", "execution platform: simulate, binance or bybit")
	balanceFlag := flag.String("balance", "1000", "starting cash balance")
	flag.Parse()

	if *configPath != "" {
		return fromYaml(*configPath)
	}

	instruments, err := parseInstruments(strings.Split(*instrumentsFlag, ","))
	if err != nil {
		return Config{}, err
	}
	balance, err := decimal.NewFromString(*balanceFlag)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --balance provided, --balance=%s", *balanceFlag)
	}

	cfg := Config{
		Platform:     *platformFlag,
		Instruments:  instruments,
		StartBalance: balance,
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func fromYaml(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(raw, &tmp); err != nil {
		return Config{}, err
	}

	instruments, err := parseInstruments(tmp.Instruments)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Platform:               tmp.Platform,
		Instruments:            instruments,
		TickInterval:           tmp.TickInterval,
		EpochDuration:          tmp.EpochDuration,
		Quorum:                 tmp.Quorum,
		ConfidenceSource:       tmp.ConfidenceSource,
		MaxConcurrentPositions: tmp.MaxConcurrentPositions,
		BiasWindowSize:         tmp.BiasWindowSize,
		ConflictTimeout:        tmp.ConflictTimeout,
		KlineInterval:          tmp.KlineInterval,
		KlineLookback:          tmp.KlineLookback,
		StatePath:              tmp.StatePath,
		AuditDir:               tmp.AuditDir,
		KafkaBrokers:           tmp.KafkaBrokers,
		KafkaTopic:             tmp.KafkaTopic,
		MaxParallel:            tmp.MaxParallel,
	}

	if cfg.MinConfidence, err = parseDecimal(tmp.MinConfidence, "min_confidence"); err != nil {
		return Config{}, err
	}
	if cfg.ConsensusThreshold, err = parseDecimal(tmp.ConsensusThreshold, "consensus_threshold"); err != nil {
		return Config{}, err
	}
	if cfg.DirectionCeiling, err = parseDecimal(tmp.DirectionCeiling, "direction_ceiling"); err != nil {
		return Config{}, err
	}
	if cfg.BiasFraction, err = parseDecimal(tmp.BiasFraction, "bias_fraction"); err != nil {
		return Config{}, err
	}
	if cfg.StartBalance, err = parseDecimal(tmp.StartBalance, "start_balance"); err != nil {
		return Config{}, err
	}

	if cfg.Producers, err = parseProducers(tmp.Producers); err != nil {
		return Config{}, err
	}
	if cfg.Sizing, err = parseSizing(tmp.Sizing); err != nil {
		return Config{}, err
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func parseInstruments(raw []string) ([]domain.Instrument, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("at least one instrument is required")
	}
	instruments := make([]domain.Instrument, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		instrument, err := domain.ParseInstrument(s)
		if err != nil {
			return nil, fmt.Errorf("incorrect 'instruments' entry %q: %w", s, err)
		}
		instruments = append(instruments, instrument)
	}
	if len(instruments) == 0 {
		return nil, fmt.Errorf("at least one instrument is required")
	}
	return instruments, nil
}

func parseProducers(raw map[string]producerTmp) (map[string]ProducerConfig, error) {
	out := make(map[string]ProducerConfig, len(raw))
	for name, p := range raw {
		weight, err := parseDecimal(p.Weight, "producers."+name+".weight")
		if err != nil {
			return nil, err
		}
		floor, err := parseDecimal(p.MinConfidence, "producers."+name+".min_confidence")
		if err != nil {
			return nil, err
		}
		out[name] = ProducerConfig{Enabled: p.Enabled, Weight: weight, MinConfidence: floor}
	}
	return out, nil
}

func parseSizing(raw sizingTmp) (SizingConfig, error) {
	cfg := SizingConfig{Policy: raw.Policy}

	var err error
	if cfg.MinUSD, err = parseDecimal(raw.MinUSD, "sizing.min_usd"); err != nil {
		return SizingConfig{}, err
	}
	if cfg.MaxUSD, err = parseDecimal(raw.MaxUSD, "sizing.max_usd"); err != nil {
		return SizingConfig{}, err
	}
	if cfg.KellyMultiplier, err = parseDecimal(raw.KellyMultiplier, "sizing.kelly_multiplier"); err != nil {
		return SizingConfig{}, err
	}
	if cfg.MinPercent, err = parseDecimal(raw.MinPercent, "sizing.min_percent"); err != nil {
		return SizingConfig{}, err
	}
	if cfg.MaxPercent, err = parseDecimal(raw.MaxPercent, "sizing.max_percent"); err != nil {
		return SizingConfig{}, err
	}

	for i, t := range raw.Tiers {
		minBalance, err := parseDecimal(t.MinBalance, fmt.Sprintf("sizing.tiers[%d].min_balance", i))
		if err != nil {
			return SizingConfig{}, err
		}
		percent, err := parseDecimal(t.Percent, fmt.Sprintf("sizing.tiers[%d].percent", i))
		if err != nil {
			return SizingConfig{}, err
		}
		cfg.Tiers = append(cfg.Tiers, TierConfig{MinBalance: minBalance, Percent: percent})
	}

	return cfg, nil
}

func parseDecimal(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("incorrect %q param in yaml config: %w", field, err)
	}
	return d, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Platform == "" {
		cfg.Platform = "simulate"
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.EpochDuration <= 0 {
		cfg.EpochDuration = time.Hour
	}
	if cfg.Quorum < 1 {
		cfg.Quorum = 2
	}
	if cfg.MinConfidence.IsZero() {
		cfg.MinConfidence = decimal.NewFromFloat(0.55)
	}
	if cfg.ConsensusThreshold.IsZero() {
		cfg.ConsensusThreshold = decimal.NewFromFloat(0.2)
	}
	if cfg.ConfidenceSource == "" {
		cfg.ConfidenceSource = "score"
	}
	if len(cfg.Producers) == 0 {
		one := decimal.NewFromInt(1)
		cfg.Producers = map[string]ProducerConfig{
			"rsi_momentum": {Enabled: true, Weight: one},
			"ema_trend":    {Enabled: true, Weight: one},
		}
	}
	if cfg.MaxConcurrentPositions < 1 {
		cfg.MaxConcurrentPositions = 3
	}
	if cfg.DirectionCeiling.IsZero() {
		cfg.DirectionCeiling = decimal.NewFromFloat(0.75)
	}
	if cfg.BiasWindowSize < 1 {
		cfg.BiasWindowSize = 20
	}
	if cfg.BiasFraction.IsZero() {
		cfg.BiasFraction = decimal.NewFromFloat(0.8)
	}
	if cfg.ConflictTimeout <= 0 {
		cfg.ConflictTimeout = 3 * time.Second
	}
	if cfg.Sizing.Policy == "" {
		cfg.Sizing.Policy = "tiered"
	}
	if len(cfg.Sizing.Tiers) == 0 && cfg.Sizing.Policy == "tiered" {
		cfg.Sizing.Tiers = []TierConfig{
			{MinBalance: decimal.NewFromInt(5000), Percent: decimal.NewFromFloat(0.02)},
			{MinBalance: decimal.NewFromInt(1000), Percent: decimal.NewFromFloat(0.05)},
			{MinBalance: decimal.Zero, Percent: decimal.NewFromFloat(0.1)},
		}
	}
	if cfg.StartBalance.IsZero() {
		cfg.StartBalance = decimal.NewFromInt(1000)
	}
	if cfg.KlineInterval == "" {
		cfg.KlineInterval = "1m"
	}
	if cfg.KlineLookback < 1 {
		cfg.KlineLookback = 200
	}
	if cfg.StatePath == "" {
		cfg.StatePath = "./data/account.json"
	}
	if cfg.AuditDir == "" {
		cfg.AuditDir = "./wal/decisions"
	}
	if cfg.MaxParallel < 1 {
		cfg.MaxParallel = len(cfg.Instruments)
	}
}

// EnabledProducers returns the names of enabled producers in a stable order.
func (c Config) EnabledProducers() []string {
	names := make([]string, 0, len(c.Producers))
	for _, name := range []string{"rsi_momentum", "ema_trend"} {
		if p, ok := c.Producers[name]; ok && p.Enabled {
			names = append(names, name)
		}
	}
	for name, p := range c.Producers {
		if !p.Enabled {
			continue
		}
		known := false
		for _, n := range names {
			if n == name {
				known = true
				break
			}
		}
		if !known {
			names = append(names, name)
		}
	}
	return names
}
