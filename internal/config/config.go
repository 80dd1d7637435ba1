package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration.
type Config struct {
	ServerPort    int    `env:"SERVER_PORT" envDefault:"3002"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	DevMode       bool   `env:"DEV_MODE" envDefault:"false"`

	Database Database
	Cache    Cache
	Storage  Storage
	Auth     Auth
	Secrets  Secrets
	Cluster  Cluster
	Agent    Agent
	Email    Email
	WebAuthn WebAuthn
	Otel     OtelConfig

	CORSOrigins       []string `env:"CORS_ORIGINS" envSeparator:","`
	SecureCookies     bool     `env:"SECURE_COOKIES" envDefault:"true"`
	TrustProxyHeaders bool     `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"28800s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"28800s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host         string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port         int           `env:"POSTGRES_PORT" envDefault:"5432"`
	User         string        `env:"POSTGRES_USER" envDefault:"platform"`
	Password     string        `env:"POSTGRES_PASSWORD" envDefault:""`
	Database     string        `env:"POSTGRES_DB" envDefault:"platform"`
	SSLMode      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"5m"`
	QueryDebug   bool          `env:"DB_QUERY_DEBUG" envDefault:"false"`
}

func (d *Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// Cache holds the key/value cache (permission cache, pub/sub) endpoint.
type Cache struct {
	Addr              string        `env:"CACHE_ADDR" envDefault:"localhost:6379"`
	Password          string        `env:"CACHE_PASSWORD" envDefault:""`
	DB                int           `env:"CACHE_DB" envDefault:"0"`
	PermissionTTL     time.Duration `env:"PERMISSION_CACHE_TTL" envDefault:"60s"`
	InvalidateChannel string        `env:"PERMISSION_CACHE_CHANNEL" envDefault:"permcache:invalidate"`
}

// Storage holds the S3-compatible object store configuration.
type Storage struct {
	Endpoint        string `env:"STORAGE_ENDPOINT" envDefault:"localhost:9000"`
	AccessKeyID     string `env:"STORAGE_ACCESS_KEY" envDefault:""`
	SecretAccessKey string `env:"STORAGE_SECRET_KEY" envDefault:""`
	Bucket          string `env:"STORAGE_BUCKET" envDefault:"platform"`
	UseSSL          bool   `env:"STORAGE_USE_SSL" envDefault:"false"`
	Region          string `env:"STORAGE_REGION" envDefault:"us-east-1"`
}

func (s *Storage) IsConfigured() bool {
	return s.Endpoint != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}

// Auth holds session/token/login settings.
type Auth struct {
	AdminBootstrapPassword string        `env:"ADMIN_BOOTSTRAP_PASSWORD" envDefault:""`
	SessionTTL             time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	LoginRateLimitAttempts int           `env:"LOGIN_RATE_LIMIT_ATTEMPTS" envDefault:"10"`
	LoginRateLimitWindow   time.Duration `env:"LOGIN_RATE_LIMIT_WINDOW" envDefault:"5m"`
}

// Secrets holds the master-key configuration for the envelope secret engine.
type Secrets struct {
	MasterKeyHex string `env:"SECRETS_MASTER_KEY_HEX" envDefault:""`
	DevMode      bool   `env:"SECRETS_DEV_MODE" envDefault:"false"`
}

// Cluster holds container-orchestrator (Kubernetes) settings.
type Cluster struct {
	Kubeconfig      string        `env:"CLUSTER_KUBECONFIG" envDefault:""`
	PipelineNS      string        `env:"CLUSTER_PIPELINE_NAMESPACE" envDefault:"platform-pipelines"`
	AgentNS         string        `env:"CLUSTER_AGENT_NAMESPACE" envDefault:"platform-agents"`
	DeploymentNS    string        `env:"CLUSTER_DEPLOYMENT_NAMESPACE" envDefault:"platform-deployments"`
	RegistryURL     string        `env:"CLUSTER_REGISTRY_URL" envDefault:""`
	GitReposRoot    string        `env:"CLUSTER_GIT_REPOS_ROOT" envDefault:"/var/lib/platform/repos"`
	OpsRoot         string        `env:"CLUSTER_OPS_ROOT" envDefault:"/var/lib/platform/ops"`
	RolloutDeadline time.Duration `env:"CLUSTER_ROLLOUT_DEADLINE" envDefault:"5m"`
	ReconcileTick   time.Duration `env:"CLUSTER_RECONCILE_TICK" envDefault:"5s"`
}

// Agent holds settings for the ephemeral coding-agent workload spawned by
// the agent-session controller.
type Agent struct {
	CLIImage           string        `env:"AGENT_CLI_IMAGE" envDefault:"ghcr.io/platform/claude-agent:latest"`
	GitCloneImage      string        `env:"AGENT_GIT_CLONE_IMAGE" envDefault:"alpine/git:latest"`
	DefaultModel       string        `env:"AGENT_DEFAULT_MODEL" envDefault:""`
	MaxTurns           int           `env:"AGENT_MAX_TURNS" envDefault:"0"`
	ProviderSecretName string        `env:"AGENT_PROVIDER_SECRET_NAME" envDefault:"platform-provider-keys"`
	ProviderSecretKey  string        `env:"AGENT_PROVIDER_SECRET_KEY" envDefault:"anthropic-api-key"`
	PlatformAPIURL     string        `env:"AGENT_PLATFORM_API_URL" envDefault:"http://platform-api.platform-system.svc:3002"`
	WorkspaceSize      string        `env:"AGENT_WORKSPACE_SIZE" envDefault:"2Gi"`
	CPURequest         string        `env:"AGENT_CPU_REQUEST" envDefault:"250m"`
	CPULimit           string        `env:"AGENT_CPU_LIMIT" envDefault:"2"`
	MemRequest         string        `env:"AGENT_MEM_REQUEST" envDefault:"256Mi"`
	MemLimit           string        `env:"AGENT_MEM_LIMIT" envDefault:"2Gi"`
	TokenTTL           time.Duration `env:"AGENT_TOKEN_TTL" envDefault:"12h"`
}

// Email holds SMTP/Mailgun configuration for notification delivery.
type Email struct {
	Enabled          bool   `env:"EMAIL_ENABLED" envDefault:"false"`
	SMTPHost         string `env:"SMTP_HOST" envDefault:""`
	SMTPPort         int    `env:"SMTP_PORT" envDefault:"587"`
	MailgunDomain    string `env:"MAILGUN_DOMAIN" envDefault:""`
	MailgunAPIKey    string `env:"MAILGUN_API_KEY" envDefault:""`
	FromEmail        string `env:"EMAIL_FROM_ADDRESS" envDefault:"noreply@platform.local"`
	FromName         string `env:"EMAIL_FROM_NAME" envDefault:"Platform"`
	MaxRetries       int    `env:"EMAIL_MAX_RETRIES" envDefault:"3"`
	RetryDelaySec    int    `env:"EMAIL_RETRY_DELAY_SEC" envDefault:"60"`
	WorkerIntervalMs int    `env:"EMAIL_WORKER_INTERVAL_MS" envDefault:"5000"`
	WorkerBatchSize  int    `env:"EMAIL_WORKER_BATCH_SIZE" envDefault:"10"`
}

func (e *Email) IsConfigured() bool {
	return e.MailgunDomain != "" && e.MailgunAPIKey != ""
}

// WebAuthn holds relying-party configuration for the identity surface.
type WebAuthn struct {
	RPID     string `env:"WEBAUTHN_RP_ID" envDefault:"localhost"`
	RPOrigin string `env:"WEBAUTHN_RP_ORIGIN" envDefault:"http://localhost:3000"`
	RPName   string `env:"WEBAUTHN_RP_NAME" envDefault:"Platform"`
}

// NewConfig loads configuration from environment variables.
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("db_host", cfg.Database.Host),
		slog.Bool("dev_mode", cfg.DevMode),
	)

	return cfg, nil
}
