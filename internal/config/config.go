package config

import (
	"errors"
	"fmt"
	"os"

	"khadamat/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig         `yaml:"app"`
	Database   DatabaseConfig    `yaml:"database"`
	Redis      RedisConfig       `yaml:"redis"`
	Logging    LoggingConfig     `yaml:"logging"`
	Monitoring MonitoringConfig  `yaml:"monitoring"`
	API        APIConfig         `yaml:"api"`
	Poller     PollerConfig      `yaml:"poller"`
	Alerts     AlertsConfig      `yaml:"alerts"`
	Telegram   TelegramConfig    `yaml:"telegram"`
	Notifier   NotifierConfig    `yaml:"notifier"`
	Exports    ExportConfig      `yaml:"exports"`
	Categories []models.Category `yaml:"categories"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	Port      int                `yaml:"port"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type PollerConfig struct {
	Enabled         bool `yaml:"enabled"`
	IntervalSeconds int  `yaml:"interval_seconds"`
}

type AlertsConfig struct {
	AutoDismissMs int  `yaml:"auto_dismiss_ms"`
	Sound         bool `yaml:"sound"`
}

type TelegramConfig struct {
	Enabled         bool    `yaml:"enabled"`
	BotToken        string  `yaml:"bot_token"`
	OperatorChatIDs []int64 `yaml:"operator_chat_ids"`
}

type NotifierConfig struct {
	Channel             string `yaml:"channel"`
	MaxRetries          int    `yaml:"max_retries"`
	InitialDelaySeconds int    `yaml:"initial_delay_seconds"`
	MaxDelaySeconds     int    `yaml:"max_delay_seconds"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; env vars may come from the runtime instead.
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Expand ${VAR} references before parsing.
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return errors.New("telegram bot token is required when telegram is enabled")
	}

	if c.Poller.IntervalSeconds <= 0 {
		return errors.New("poller interval must be positive")
	}

	return ValidateCategories(c.Categories)
}

// ValidateCategories rejects codes outside the fixed category set and
// duplicates. The set is closed; extending it is a code change.
func ValidateCategories(categories []models.Category) error {
	seen := make(map[string]bool)
	for _, c := range categories {
		if !models.KnownCategory(c.Code) {
			return fmt.Errorf("unknown category code %q", c.Code)
		}
		if seen[c.Code] {
			return fmt.Errorf("duplicate category code %q", c.Code)
		}
		seen[c.Code] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}

	if c.Poller.IntervalSeconds == 0 {
		c.Poller.IntervalSeconds = models.DefaultPollIntervalSeconds
	}
	if c.Alerts.AutoDismissMs == 0 {
		c.Alerts.AutoDismissMs = models.DefaultAlertDismissMs
	}

	if c.Notifier.Channel == "" {
		c.Notifier.Channel = "whatsapp"
	}
	if c.Notifier.MaxRetries == 0 {
		c.Notifier.MaxRetries = 5
	}
	if c.Notifier.InitialDelaySeconds == 0 {
		c.Notifier.InitialDelaySeconds = 2
	}
	if c.Notifier.MaxDelaySeconds == 0 {
		c.Notifier.MaxDelaySeconds = 60
	}

	if len(c.Categories) == 0 {
		c.Categories = []models.Category{
			{Code: models.CategoryDelivery, Label: "توصيل داخلي", LabelEn: "Local delivery", SortOrder: 1},
			{Code: models.CategoryTrip, Label: "مشاوير بين المدن", LabelEn: "Intercity trips", SortOrder: 2},
			{Code: models.CategoryMaintenance, Label: "صيانة منزلية", LabelEn: "Home maintenance", SortOrder: 3},
		}
	}
}
