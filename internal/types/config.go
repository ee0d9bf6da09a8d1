package types

type RunMode string

const (
	// ModeLocal runs the API server, the cron scheduler and the notification consumer in one process
	ModeLocal RunMode = "local"
	// ModeAPI is the mode for running just the API server
	ModeAPI RunMode = "api"
	// ModeScheduler runs the cron scheduler and the notification consumer without the API server
	ModeScheduler RunMode = "scheduler"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

type PubSubBackend string

const (
	PubSubBackendMemory PubSubBackend = "memory"
	PubSubBackendKafka  PubSubBackend = "kafka"
)
