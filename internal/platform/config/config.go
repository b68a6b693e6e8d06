package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Config is the root service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	NATS     NATSConfig     `yaml:"nats"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
	Incident IncidentConfig `yaml:"incident"`
	Purge    PurgeConfig    `yaml:"purge"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host              string        `yaml:"host"                env:"SERVER_HOST"                env-default:"0.0.0.0"`
	Port              int           `yaml:"port"                env:"SERVER_PORT"                env-default:"8080"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" env:"SERVER_READ_HEADER_TIMEOUT" env-default:"5s"`
	ReadTimeout       time.Duration `yaml:"read_timeout"        env:"SERVER_READ_TIMEOUT"        env-default:"10s"`
	WriteTimeout      time.Duration `yaml:"write_timeout"       env:"SERVER_WRITE_TIMEOUT"       env-default:"30s"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"        env:"SERVER_IDLE_TIMEOUT"        env-default:"60s"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"    env:"SERVER_SHUTDOWN_TIMEOUT"    env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings. AppRole is the
// non-owner role each scoped transaction switches to so row-level security
// applies even when the login role owns the tables.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	AppRole         string        `yaml:"app_role"           env:"DATABASE_APP_ROLE"           env-default:"rgpd_app"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"true"`
}

// RedisConfig holds the export bundle store connection. The URL is required.
type RedisConfig struct {
	URL          string        `yaml:"url"            env:"REDIS_URL"`
	PoolSize     int           `yaml:"pool_size"      env:"REDIS_POOL_SIZE"      env-default:"10"`
	MinIdleConns int           `yaml:"min_idle_conns" env:"REDIS_MIN_IDLE_CONNS" env-default:"2"`
	DialTimeout  time.Duration `yaml:"dial_timeout"   env:"REDIS_DIAL_TIMEOUT"   env-default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout"   env:"REDIS_READ_TIMEOUT"   env-default:"3s"`
	WriteTimeout time.Duration `yaml:"write_timeout"  env:"REDIS_WRITE_TIMEOUT"  env-default:"3s"`
}

// KafkaConfig enables the audit mirror stream. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers    string `yaml:"brokers"     env:"KAFKA_BROKERS"`
	AuditTopic string `yaml:"audit_topic" env:"KAFKA_AUDIT_TOPIC" env-default:"rgpd.audit.events"`
	Partitions int32  `yaml:"partitions"  env:"KAFKA_PARTITIONS"  env-default:"3"`
	ClientID   string `yaml:"client_id"   env:"KAFKA_CLIENT_ID"   env-default:"rgpdgate"`
}

// NATSConfig configures incident alert delivery. Empty URL routes alerts to
// the structured log only.
type NATSConfig struct {
	URL           string        `yaml:"url"            env:"NATS_URL"`
	SubjectPrefix string        `yaml:"subject_prefix" env:"NATS_SUBJECT_PREFIX" env-default:"rgpd.alerts"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"NATS_RECONNECT_WAIT" env-default:"2s"`
	Timeout       time.Duration `yaml:"timeout"        env:"NATS_TIMEOUT"        env-default:"5s"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"rgpdgate"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// IncidentConfig holds breach registry settings. UsersNotificationThreshold
// is the usersAffected count above which a HIGH risk incident requires
// notifying the affected users.
type IncidentConfig struct {
	UsersNotificationThreshold int `yaml:"users_notification_threshold" env:"INCIDENT_USERS_NOTIFICATION_THRESHOLD" env-default:"0"`
}

// PurgeConfig holds hard-purge job settings.
type PurgeConfig struct {
	BatchSize   int `yaml:"batch_size"  env:"PURGE_BATCH_SIZE"  env-default:"100"`
	Concurrency int `yaml:"concurrency" env:"PURGE_CONCURRENCY" env-default:"4"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BrokerList splits the comma separated broker list.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for b := range strings.SplitSeq(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
