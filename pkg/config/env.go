package config

// EnvPrefix scopes all envconfig lookups.
const EnvPrefix = "SOLPAY"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names, spelled out for error messages and tests.
const (
	EnvAppEnv            = "SOLPAY_APP_ENV"
	EnvPort              = "SOLPAY_APP_PORT"
	EnvLogLevel          = "SOLPAY_LOG_LEVEL"
	EnvRPCURL            = "SOLPAY_SOLANA_RPC_URL"
	EnvTreasury          = "SOLPAY_TREASURY_ADDRESS"
	EnvCommitment        = "SOLPAY_SOLANA_COMMITMENT"
	EnvIndexerBase       = "SOLPAY_INDEXER_BASE_URL"
	EnvIndexerKey        = "SOLPAY_INDEXER_API_KEY"
	EnvIntentTTL         = "SOLPAY_PAYMENTS_INTENT_TTL"
	EnvRetention         = "SOLPAY_PAYMENTS_RETENTION"
	EnvCandidateLimit    = "SOLPAY_PAYMENTS_CANDIDATE_LIMIT"
	EnvToleranceLamports = "SOLPAY_PAYMENTS_TOLERANCE_LAMPORTS"
	EnvSweepInterval     = "SOLPAY_PAYMENTS_SWEEP_INTERVAL"
)
