package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the analysis engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Analysis   AnalysisConfig   `yaml:"analysis"`
	Response   ResponseConfig   `yaml:"response"`
	Trend      TrendConfig      `yaml:"trend"`
	History    HistoryConfig    `yaml:"history"`
	Nightscout NightscoutConfig `yaml:"nightscout"`
}

// ServerConfig controls the HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// AnalysisConfig holds metric-engine defaults.
type AnalysisConfig struct {
	TargetLow       float64 `yaml:"targetLow"`
	TargetHigh      float64 `yaml:"targetHigh"`
	PhysiologicLow  float64 `yaml:"physiologicLow"`
	PhysiologicHigh float64 `yaml:"physiologicHigh"`
}

// ResponseConfig holds event-response windows, keyed by event kind.
type ResponseConfig struct {
	Lookback           map[string]time.Duration `yaml:"lookback"`
	Lookahead          map[string]time.Duration `yaml:"lookahead"`
	RecoveryTolerance  float64                  `yaml:"recoveryToleranceMgdl"`
	MinLookaheadPoints int                      `yaml:"minLookaheadPoints"`
}

// TrendConfig controls multi-day aggregation.
type TrendConfig struct {
	PatternMinDays   int     `yaml:"patternMinDays"`
	ElevationMgdl    float64 `yaml:"elevationMgdl"`
	DawnRiseMgdl     float64 `yaml:"dawnRiseMgdl"`
	HighVariationStd float64 `yaml:"highVariationStd"`
}

// HistoryConfig controls the bounded recent-results store.
type HistoryConfig struct {
	MaxEntries int           `yaml:"maxEntries"`
	RedisAddr  string        `yaml:"redisAddr"`
	RedisDB    int           `yaml:"redisDB"`
	Password   string        `yaml:"password"`
	TTL        time.Duration `yaml:"ttl"`
}

// NightscoutConfig configures the optional remote CGM source.
type NightscoutConfig struct {
	BaseURL   string        `yaml:"baseURL"`
	APISecret string        `yaml:"apiSecret"`
	APIToken  string        `yaml:"apiToken"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GLYCO_ENGINE_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Analysis: AnalysisConfig{
			TargetLow:       70,
			TargetHigh:      180,
			PhysiologicLow:  20,
			PhysiologicHigh: 600,
		},
		Response: ResponseConfig{
			Lookback: map[string]time.Duration{
				"meal":       30 * time.Minute,
				"exercise":   30 * time.Minute,
				"medication": 30 * time.Minute,
				"insulin":    30 * time.Minute,
				"sleep":      30 * time.Minute,
			},
			Lookahead: map[string]time.Duration{
				"meal":       2 * time.Hour,
				"exercise":   2 * time.Hour,
				"medication": 6 * time.Hour,
				"insulin":    3 * time.Hour,
				"sleep":      8 * time.Hour,
			},
			RecoveryTolerance:  10,
			MinLookaheadPoints: 3,
		},
		Trend: TrendConfig{
			PatternMinDays:   3,
			ElevationMgdl:    25,
			DawnRiseMgdl:     20,
			HighVariationStd: 30,
		},
		History: HistoryConfig{
			MaxEntries: 50,
			TTL:        24 * time.Hour,
		},
		Nightscout: NightscoutConfig{
			Timeout:  5 * time.Second,
			CacheTTL: 2 * time.Minute,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GLYCO_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("GLYCO_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("GLYCO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GLYCO_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("GLYCO_TARGET_LOW"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.TargetLow = f
		}
	}
	if v := os.Getenv("GLYCO_TARGET_HIGH"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analysis.TargetHigh = f
		}
	}
	if v := os.Getenv("GLYCO_PATTERN_MIN_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Trend.PatternMinDays = n
		}
	}
	if v := os.Getenv("GLYCO_HISTORY_REDIS_ADDR"); v != "" {
		cfg.History.RedisAddr = v
	}
	if v := os.Getenv("GLYCO_HISTORY_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.RedisDB = n
		}
	}
	if v := os.Getenv("GLYCO_HISTORY_PASSWORD"); v != "" {
		cfg.History.Password = v
	}
	if v := os.Getenv("GLYCO_HISTORY_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.History.MaxEntries = n
		}
	}
	if v := os.Getenv("GLYCO_NIGHTSCOUT_URL"); v != "" {
		cfg.Nightscout.BaseURL = v
	}
	if v := os.Getenv("GLYCO_NIGHTSCOUT_SECRET"); v != "" {
		cfg.Nightscout.APISecret = v
	}
	if v := os.Getenv("GLYCO_NIGHTSCOUT_TOKEN"); v != "" {
		cfg.Nightscout.APIToken = v
	}
	if v := os.Getenv("GLYCO_NIGHTSCOUT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Nightscout.Timeout = d
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Analysis.TargetLow >= cfg.Analysis.TargetHigh {
		return fmt.Errorf("target range low %.1f must be below high %.1f",
			cfg.Analysis.TargetLow, cfg.Analysis.TargetHigh)
	}
	if cfg.Analysis.PhysiologicLow >= cfg.Analysis.PhysiologicHigh {
		return fmt.Errorf("physiologic bounds inverted")
	}
	if cfg.Trend.PatternMinDays < 2 {
		return fmt.Errorf("patternMinDays must be at least 2, got %d", cfg.Trend.PatternMinDays)
	}
	if cfg.History.MaxEntries <= 0 {
		return fmt.Errorf("history maxEntries must be positive")
	}
	if level := strings.ToLower(cfg.Logging.Level); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("unknown log level %q", cfg.Logging.Level)
		}
	}
	return nil
}
