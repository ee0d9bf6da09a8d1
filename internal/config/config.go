package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"github.com/streamshare/streamshare/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Gateway    GatewayConfig
	S3         S3Config
	Email      EmailConfig
	WhatsApp   WhatsAppConfig `mapstructure:"whatsapp"`
	PubSub     PubSubConfig   `mapstructure:"pubsub" validate:"required"`
	Kafka      KafkaConfig
	Sentry     SentryConfig
	Pyroscope  PyroscopeConfig
	Auth       AuthConfig
	Cache      CacheConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string        `validate:"required"`
	Port                   int           `validate:"required"`
	User                   string        `validate:"required"`
	Password               string
	DBName                 string        `mapstructure:"dbname" validate:"required"`
	SSLMode                string        `mapstructure:"sslmode"`
	MaxOpenConns           int           `mapstructure:"max_open_conns"`
	MaxIdleConns           int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int           `mapstructure:"conn_max_lifetime_minutes"`
	ConnectRetryTimeout    time.Duration `mapstructure:"connect_retry_timeout"`
}

// BillingConfig holds the thresholds and schedules of the recurring billing jobs
type BillingConfig struct {
	CycleSchedule       string        `mapstructure:"cycle_schedule" validate:"required"`
	CycleTimeout        time.Duration `mapstructure:"cycle_timeout" validate:"required"`
	LockKey             string        `mapstructure:"lock_key" validate:"required"`
	RenewalWindow       time.Duration `mapstructure:"renewal_window" validate:"required"`
	SuspensionThreshold time.Duration `mapstructure:"suspension_threshold" validate:"required"`
	GraceDays           int           `mapstructure:"grace_days" validate:"gte=0"`
	BatchExpiry         time.Duration `mapstructure:"batch_expiry" validate:"required"`
	BatchExpirySchedule string        `mapstructure:"batch_expiry_schedule"`
	PlanCheckSchedule   string        `mapstructure:"plan_check_schedule"`
	GatewayConcurrency  int           `mapstructure:"gateway_concurrency" validate:"gte=1"`
	GatewayRPS          float64       `mapstructure:"gateway_rps" validate:"gt=0"`
	MaxProofSizeBytes   int64         `mapstructure:"max_proof_size_bytes" validate:"gt=0"`
}

// GatewayConfig is the PIX / SaaS billing gateway used by the billing cycle and plan checks
type GatewayConfig struct {
	Provider string
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Timeout  time.Duration
}

type S3Config struct {
	Enabled       bool
	Region        string
	Bucket        string
	PublicBaseURL string `mapstructure:"public_base_url"`
	KeyPrefix     string `mapstructure:"key_prefix"`
}

type EmailConfig struct {
	Enabled     bool
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
	ReplyTo     string `mapstructure:"reply_to"`
}

type WhatsAppConfig struct {
	Enabled       bool
	BaseURL       string `mapstructure:"base_url"`
	PhoneNumberID string `mapstructure:"phone_number_id"`
	AccessToken   string `mapstructure:"access_token"`
}

type PubSubConfig struct {
	Backend           types.PubSubBackend `validate:"required,oneof=memory kafka"`
	NotificationTopic string              `mapstructure:"notification_topic" validate:"required"`
	MaxRetries        int                 `mapstructure:"max_retries"`
	InitialInterval   time.Duration       `mapstructure:"initial_interval"`
	MaxInterval       time.Duration       `mapstructure:"max_interval"`
	Multiplier        float64             `mapstructure:"multiplier"`
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string `mapstructure:"consumer_group"`
	ClientID      string `mapstructure:"client_id"`
	TLS           bool
	UseSASL       bool   `mapstructure:"use_sasl"`
	SASLMechanism string `mapstructure:"sasl_mechanism"`
	SASLUser      string `mapstructure:"sasl_user"`
	SASLPassword  string `mapstructure:"sasl_password"`
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type PyroscopeConfig struct {
	Enabled       bool
	ServerAddress string `mapstructure:"server_address"`
	AppName       string `mapstructure:"app_name"`
}

type AuthConfig struct {
	Secret     string `validate:"required"`
	CronSecret string `mapstructure:"cron_secret" validate:"required"`
}

type CacheConfig struct {
	GatewayStatusTTL time.Duration `mapstructure:"gateway_status_ttl"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/streamshare")

	// STREAMSHARE_BILLING_CYCLE_TIMEOUT overrides billing.cycle_timeout
	v.SetEnvPrefix("STREAMSHARE")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("deployment.mode", d.Deployment.Mode)
	v.SetDefault("server.address", d.Server.Address)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("postgres.sslmode", d.Postgres.SSLMode)
	v.SetDefault("postgres.max_open_conns", d.Postgres.MaxOpenConns)
	v.SetDefault("postgres.max_idle_conns", d.Postgres.MaxIdleConns)
	v.SetDefault("postgres.conn_max_lifetime_minutes", d.Postgres.ConnMaxLifetimeMinutes)
	v.SetDefault("postgres.connect_retry_timeout", d.Postgres.ConnectRetryTimeout)
	v.SetDefault("billing.cycle_schedule", d.Billing.CycleSchedule)
	v.SetDefault("billing.cycle_timeout", d.Billing.CycleTimeout)
	v.SetDefault("billing.lock_key", d.Billing.LockKey)
	v.SetDefault("billing.renewal_window", d.Billing.RenewalWindow)
	v.SetDefault("billing.suspension_threshold", d.Billing.SuspensionThreshold)
	v.SetDefault("billing.grace_days", d.Billing.GraceDays)
	v.SetDefault("billing.batch_expiry", d.Billing.BatchExpiry)
	v.SetDefault("billing.batch_expiry_schedule", d.Billing.BatchExpirySchedule)
	v.SetDefault("billing.plan_check_schedule", d.Billing.PlanCheckSchedule)
	v.SetDefault("billing.gateway_concurrency", d.Billing.GatewayConcurrency)
	v.SetDefault("billing.gateway_rps", d.Billing.GatewayRPS)
	v.SetDefault("billing.max_proof_size_bytes", d.Billing.MaxProofSizeBytes)
	v.SetDefault("gateway.timeout", d.Gateway.Timeout)
	v.SetDefault("pubsub.backend", d.PubSub.Backend)
	v.SetDefault("pubsub.notification_topic", d.PubSub.NotificationTopic)
	v.SetDefault("pubsub.max_retries", d.PubSub.MaxRetries)
	v.SetDefault("pubsub.initial_interval", d.PubSub.InitialInterval)
	v.SetDefault("pubsub.max_interval", d.PubSub.MaxInterval)
	v.SetDefault("pubsub.multiplier", d.PubSub.Multiplier)
	v.SetDefault("cache.gateway_status_ttl", d.Cache.GatewayStatusTTL)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Postgres: PostgresConfig{
			Host:                   "localhost",
			Port:                   5432,
			User:                   "streamshare",
			DBName:                 "streamshare",
			SSLMode:                "disable",
			MaxOpenConns:           20,
			MaxIdleConns:           5,
			ConnMaxLifetimeMinutes: 30,
			ConnectRetryTimeout:    30 * time.Second,
		},
		Billing: BillingConfig{
			CycleSchedule:       "0 6 * * *",
			CycleTimeout:        60 * time.Second,
			LockKey:             "billing:cycle:global",
			RenewalWindow:       5 * 24 * time.Hour,
			SuspensionThreshold: 3 * 24 * time.Hour,
			GraceDays:           0,
			BatchExpiry:         24 * time.Hour,
			BatchExpirySchedule: "*/30 * * * *",
			PlanCheckSchedule:   "0 7 * * *",
			GatewayConcurrency:  4,
			GatewayRPS:          5,
			MaxProofSizeBytes:   5 << 20,
		},
		Gateway: GatewayConfig{Timeout: 15 * time.Second},
		PubSub: PubSubConfig{
			Backend:           types.PubSubBackendMemory,
			NotificationTopic: "notifications.outbound",
			MaxRetries:        3,
			InitialInterval:   time.Second,
			MaxInterval:       30 * time.Second,
			Multiplier:        2,
		},
		Auth:  AuthConfig{Secret: "local-secret", CronSecret: "local-cron-secret"},
		Cache: CacheConfig{GatewayStatusTTL: 10 * time.Minute},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}
