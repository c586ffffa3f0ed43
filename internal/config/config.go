package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Control plane.
	CoreDatabaseURL string
	TemporalAddress string
	HTTPListenAddr  string
	MetricsAddr     string
	LogLevel        string
	ServiceName     string

	// Deployment target.
	DeployEnv     string
	AppImage      string
	AppHost       string
	RegistryURL   string
	DockerHost    string
	DockerNetwork string

	// Application data store and backups.
	AppDatabasePath     string
	DBBackupPath        string
	BackupRetentionDays int
	BackupS3Bucket      string
	BackupS3Endpoint    string
	BackupS3Region      string
	BackupS3AccessKey   string
	BackupS3SecretKey   string

	// Slot and traffic state.
	SlotStatePath   string
	UpstreamConfDir string
	ProxyContainer  string

	// Health and rollout policy.
	DeployTimeout       time.Duration
	HealthCheckRetries  int
	HealthCheckInterval time.Duration
	DecommissionDelay   time.Duration

	// Migration command run inside the new slot container.
	MigrateCommand []string

	// Notifications.
	SlackWebhookURL string
}

func Load() (*Config, error) {
	retention, err := getEnvInt("BACKUP_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	retries, err := getEnvInt("HEALTH_CHECK_RETRIES", 10)
	if err != nil {
		return nil, err
	}
	interval, err := getEnvDuration("HEALTH_CHECK_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	deployTimeout, err := getEnvDuration("DEPLOY_TIMEOUT", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	decommission, err := getEnvDuration("DECOMMISSION_DELAY", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CoreDatabaseURL: getEnv("CORE_DATABASE_URL", ""),
		TemporalAddress: getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		HTTPListenAddr:  getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ServiceName:     getEnv("SERVICE_NAME", ""),

		DeployEnv:     getEnv("DEPLOY_ENV", "production"),
		AppImage:      getEnv("APP_IMAGE", "yukyudata/app"),
		AppHost:       getEnv("APP_HOST", "127.0.0.1"),
		RegistryURL:   getEnv("REGISTRY_URL", ""),
		DockerHost:    getEnv("DOCKER_HOST", "unix:///var/run/docker.sock"),
		DockerNetwork: getEnv("DOCKER_NETWORK", ""),

		AppDatabasePath:     getEnv("APP_DATABASE_PATH", "/var/lib/yukyudata/yukyu.db"),
		DBBackupPath:        getEnv("DB_BACKUP_PATH", "/var/backups/yukyudata"),
		BackupRetentionDays: retention,
		BackupS3Bucket:      getEnv("BACKUP_S3_BUCKET", ""),
		BackupS3Endpoint:    getEnv("BACKUP_S3_ENDPOINT", ""),
		BackupS3Region:      getEnv("BACKUP_S3_REGION", "us-east-1"),
		BackupS3AccessKey:   getEnv("BACKUP_S3_ACCESS_KEY", ""),
		BackupS3SecretKey:   getEnv("BACKUP_S3_SECRET_KEY", ""),

		SlotStatePath:   getEnv("SLOT_STATE_PATH", "/var/lib/yukyudata/active_slot"),
		UpstreamConfDir: getEnv("UPSTREAM_CONF_DIR", "/etc/yukyudata/upstream"),
		ProxyContainer:  getEnv("PROXY_CONTAINER", "yukyudata-proxy"),

		DeployTimeout:       deployTimeout,
		HealthCheckRetries:  retries,
		HealthCheckInterval: interval,
		DecommissionDelay:   decommission,

		MigrateCommand: splitCommand(getEnv("MIGRATE_COMMAND", "python manage_db.py migrate")),

		SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
	}

	return cfg, nil
}

// Validate checks that the variables a given role needs are present.
// Roles: "worker", "api".
func (c *Config) Validate(role string) error {
	var missing []string

	switch role {
	case "worker":
		if c.CoreDatabaseURL == "" {
			missing = append(missing, "CORE_DATABASE_URL")
		}
		if c.DBBackupPath == "" {
			missing = append(missing, "DB_BACKUP_PATH")
		}
		if c.AppDatabasePath == "" {
			missing = append(missing, "APP_DATABASE_PATH")
		}
		if c.SlotStatePath == "" {
			missing = append(missing, "SLOT_STATE_PATH")
		}
	case "api":
		if c.CoreDatabaseURL == "" {
			missing = append(missing, "CORE_DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown config role %q", role)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	// Accept bare seconds for compatibility with the legacy deploy scripts.
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitCommand(s string) []string {
	return strings.Fields(s)
}
