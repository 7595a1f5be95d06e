package service

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

type Config struct {
	// memory:// keeps everything in this process until it exits
	DatabaseUri             string         `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns        int            `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int            `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int            `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	SentryDSN               string         `envconfig:"SENTRY_DSN"`
	DatadogAgentUrl         string         `envconfig:"DATADOG_AGENT_URL"`
	SentryTracesSampleRate  float64        `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath             string         `envconfig:"LOG_FILE_PATH"`
	LogLevel                string         `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret               []byte         `envconfig:"JWT_SECRET" required:"true"`
	JWTAccessTokenExpiry    int            `envconfig:"JWT_ACCESS_EXPIRY" default:"172800"` // in seconds, default 2 days
	AdminToken              string         `envconfig:"ADMIN_TOKEN"`
	Port                    int            `envconfig:"PORT" default:"3000"`
	DefaultRateLimit        int            `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit         int            `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit          int            `envconfig:"BURST_RATE_LIMIT" default:"1"`
	EnablePrometheus        bool           `envconfig:"ENABLE_PROMETHEUS" default:"false"`
	PrometheusPort          int            `envconfig:"PROMETHEUS_PORT" default:"9092"`
	WebhookUrl              string         `envconfig:"WEBHOOK_URL"`
	FeeBps                  uint32         `envconfig:"FEE_BPS" default:"50"`
	FeeCollectorAddress     common.Address `envconfig:"FEE_COLLECTOR_ADDRESS" required:"true"`
	AmountDecimals          int32          `envconfig:"AMOUNT_DECIMALS" default:"6"`
	Verifiers               AddressList    `envconfig:"VERIFIERS"`
	ProofVerifier           string         `envconfig:"PROOF_VERIFIER" default:"groth16"`
	VerificationKeyPath     string         `envconfig:"VERIFICATION_KEY_PATH" default:"verification_key.json"`
	ProofCacheSize          int            `envconfig:"PROOF_CACHE_SIZE" default:"1024"`
	MaxPublicInputs         int            `envconfig:"MAX_PUBLIC_INPUTS" default:"16"`
	ProofMaxAge             int64          `envconfig:"PROOF_MAX_AGE" default:"86400"`      // in seconds, 0 disables the check
	ProofMaxClockSkew       int64          `envconfig:"PROOF_MAX_CLOCK_SKEW" default:"300"` // in seconds
	RedisUrl                string         `envconfig:"REDIS_URL"`
	IdempotencyTTL          int            `envconfig:"IDEMPOTENCY_TTL" default:"86400"` // in seconds
	RabbitMQUri             string         `envconfig:"RABBITMQ_URI"`
	RabbitMQEventExchange   string         `envconfig:"RABBITMQ_EVENT_EXCHANGE" default:"kychub_events"`
}

// envconfig's slice decoder has no way to validate elements,
// so addresses are decoded here

type AddressList []common.Address

func (al *AddressList) Decode(value string) error {
	list := AddressList{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !common.IsHexAddress(item) {
			return fmt.Errorf("invalid address: %q", item)
		}
		list = append(list, common.HexToAddress(item))
	}
	*al = list
	return nil
}
