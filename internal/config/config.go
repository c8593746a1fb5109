package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Roles    RolesConfig    `mapstructure:"roles"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// WorkflowConfig holds approval workflow configuration
type WorkflowConfig struct {
	// SpecialApprovalThreshold is the amount above which welfare-flow
	// requests route through the special approval stage
	SpecialApprovalThreshold string `mapstructure:"special_approval_threshold"`

	// MaxRetries bounds the optimistic retry loop per engine operation
	MaxRetries int `mapstructure:"max_retries"`

	// AttachmentSchemes lists the URI schemes accepted for attachments
	AttachmentSchemes []string `mapstructure:"attachment_schemes"`
}

// LedgerConfig holds budget ledger configuration
type LedgerConfig struct {
	// DefaultLimit is the total limit for a ledger row provisioned on
	// first use, unless a category override applies
	DefaultLimit string `mapstructure:"default_limit"`

	// CategoryLimits overrides DefaultLimit per category name
	CategoryLimits map[string]string `mapstructure:"category_limits"`
}

// RolesConfig holds the static actor -> roles grant table
type RolesConfig struct {
	Grants map[string][]string `mapstructure:"grants"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	// Pick up a local .env before viper reads the environment
	_ = gotenv.Load()

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/benefit_approval.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Workflow defaults
	viper.SetDefault("workflow.special_approval_threshold", "10000")
	viper.SetDefault("workflow.max_retries", 3)
	viper.SetDefault("workflow.attachment_schemes", []string{"file", "https", "s3"})

	// Ledger defaults
	viper.SetDefault("ledger.default_limit", "50000")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("workflow.special_approval_threshold", "SPECIAL_APPROVAL_THRESHOLD")
	viper.BindEnv("ledger.default_limit", "LEDGER_DEFAULT_LIMIT")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in (0, 65535]")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	threshold, err := decimal.NewFromString(c.Workflow.SpecialApprovalThreshold)
	if err != nil {
		return fmt.Errorf("workflow.special_approval_threshold is not a decimal: %w", err)
	}
	if threshold.IsNegative() {
		return fmt.Errorf("workflow.special_approval_threshold must not be negative")
	}

	limit, err := decimal.NewFromString(c.Ledger.DefaultLimit)
	if err != nil {
		return fmt.Errorf("ledger.default_limit is not a decimal: %w", err)
	}
	if limit.IsNegative() {
		return fmt.Errorf("ledger.default_limit must not be negative")
	}
	for category, raw := range c.Ledger.CategoryLimits {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("ledger.category_limits.%s is not a decimal: %w", category, err)
		}
		if v.IsNegative() {
			return fmt.Errorf("ledger.category_limits.%s must not be negative", category)
		}
	}

	if c.Workflow.MaxRetries < 1 {
		return fmt.Errorf("workflow.max_retries must be at least 1")
	}

	return nil
}

// SpecialApprovalThreshold returns the parsed threshold. Validate must have
// accepted the config first.
func (c *Config) SpecialApprovalThreshold() decimal.Decimal {
	return decimal.RequireFromString(c.Workflow.SpecialApprovalThreshold)
}

// LimitForCategory returns the provisioning limit for a category name
func (c *Config) LimitForCategory(category string) decimal.Decimal {
	if raw, ok := c.Ledger.CategoryLimits[category]; ok {
		return decimal.RequireFromString(raw)
	}
	return decimal.RequireFromString(c.Ledger.DefaultLimit)
}
