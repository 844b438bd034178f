// Package bootstrap wires every component built in internal/... into a
// running service: load config -> init logger -> construct every
// adapter/store/backend -> start the HTTP server and worker pool.
package bootstrap

import (
	"time"

	"github.com/ironlake-data/catalog/internal/platform/envconfig"
)

// Config is the full set of environment-driven settings the service needs
// to start: nested keys separated by `__`, under a single configurable
// prefix.
type Config struct {
	Env  string `env:"ENV" envDefault:"development"`
	Port string `env:"PORT" envDefault:"8181"`

	LogLevel string `env:"LOG__LEVEL" envDefault:"info"`

	DBPrimaryDSN string `env:"DB__PRIMARY_DSN"`
	DBReplicaDSN string `env:"DB__REPLICA_DSN"`
	DBName       string `env:"DB__NAME" envDefault:"ironlake"`

	RedisURL       string        `env:"REDIS__URL"`
	WarehouseCacheTTL time.Duration `env:"REDIS__WAREHOUSE_CACHE_TTL" envDefault:"30s"`
	SecretCacheTTL    time.Duration `env:"REDIS__SECRET_CACHE_TTL" envDefault:"5m"`

	RabbitMQURL      string `env:"RABBITMQ__URL"`
	RabbitMQExchange string `env:"RABBITMQ__EXCHANGE" envDefault:"ironlake.events"`

	MongoURI     string `env:"MONGO__URI"`
	MongoDB      string `env:"MONGO__DATABASE" envDefault:"ironlake"`
	SecretsCollection string `env:"MONGO__SECRETS_COLLECTION" envDefault:"secrets"`

	SecretsBackend string `env:"SECRETS__BACKEND" envDefault:"mongo"` // "mongo" | "secretsmanager"
	AWSRegion      string `env:"AWS__REGION" envDefault:"us-east-1"`

	AuthzBackend   string `env:"AUTHZ__BACKEND" envDefault:"allow-all"` // "allow-all" | "external"
	AuthzEndpoint  string `env:"AUTHZ__ENDPOINT"`

	JWKSUrl            string        `env:"AUTH__JWKS_URL"`
	JWKSCacheDuration  time.Duration `env:"AUTH__JWKS_CACHE_DURATION" envDefault:"10m"`

	DefaultProjectID string `env:"DEFAULT_PROJECT_ID"`

	WorkerPollInterval    time.Duration `env:"WORKER__POLL_INTERVAL" envDefault:"2s"`
	WorkerHeartbeatTimeout time.Duration `env:"WORKER__HEARTBEAT_TIMEOUT" envDefault:"30s"`
	TaskLogRetention      time.Duration `env:"WORKER__TASK_LOG_RETENTION" envDefault:"168h"`
}

// Load reads Config from the environment using the "IRONLAKE" prefix.
// Dotenv-file loading, if any, belongs to local developer tooling, not the
// service binary.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Load("IRONLAKE", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
