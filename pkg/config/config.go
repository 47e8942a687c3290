package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Solana   SolanaConfig
	Indexer  IndexerConfig
	Payments PaymentsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Payments.ensureBounds(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SOLPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"SOLPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SOLPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SOLPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type SolanaConfig struct {
	RPCURL          string        `envconfig:"SOLPAY_SOLANA_RPC_URL" required:"true"`
	TreasuryAddress string        `envconfig:"SOLPAY_TREASURY_ADDRESS" required:"true"`
	Commitment      string        `envconfig:"SOLPAY_SOLANA_COMMITMENT" default:"confirmed"`
	RequestTimeout  time.Duration `envconfig:"SOLPAY_SOLANA_REQUEST_TIMEOUT" default:"10s"`
}

type IndexerConfig struct {
	BaseURL        string        `envconfig:"SOLPAY_INDEXER_BASE_URL" default:"https://api.helius.xyz"`
	APIKey         string        `envconfig:"SOLPAY_INDEXER_API_KEY"`
	RequestTimeout time.Duration `envconfig:"SOLPAY_INDEXER_REQUEST_TIMEOUT" default:"8s"`
	MaxRetries     int           `envconfig:"SOLPAY_INDEXER_MAX_RETRIES" default:"2"`
}

// Enabled reports whether the indexer adapter should be wired at all.
func (i IndexerConfig) Enabled() bool {
	return strings.TrimSpace(i.APIKey) != ""
}

type PaymentsConfig struct {
	IntentTTL         time.Duration `envconfig:"SOLPAY_PAYMENTS_INTENT_TTL" default:"30m"`
	Retention         time.Duration `envconfig:"SOLPAY_PAYMENTS_RETENTION" default:"24h"`
	ToleranceLamports int64         `envconfig:"SOLPAY_PAYMENTS_TOLERANCE_LAMPORTS" default:"1000"`
	CandidateLimit    int           `envconfig:"SOLPAY_PAYMENTS_CANDIDATE_LIMIT" default:"10"`
	SweepInterval     time.Duration `envconfig:"SOLPAY_PAYMENTS_SWEEP_INTERVAL" default:"1h"`
	CheckTimeout      time.Duration `envconfig:"SOLPAY_PAYMENTS_CHECK_TIMEOUT" default:"10s"`
}

func (p *PaymentsConfig) ensureBounds() error {
	if p.IntentTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvIntentTTL)
	}
	if p.Retention <= 0 {
		return fmt.Errorf("%s must be positive", EnvRetention)
	}
	if p.ToleranceLamports < 0 {
		return fmt.Errorf("%s must not be negative", EnvToleranceLamports)
	}
	if p.CandidateLimit <= 0 {
		return fmt.Errorf("%s must be positive", EnvCandidateLimit)
	}
	return nil
}
