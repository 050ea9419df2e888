// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// dateLayout is the layout used for PROGRAM_START and PROGRAM_END.
const dateLayout = "2006-01-02"

// Team deletion policies.
const (
	TeamDeleteReject   = "reject"
	TeamDeleteUnassign = "unassign"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	Port              string `mapstructure:"PORT"`
	Env               string `mapstructure:"APP_ENV"`
	DBDriver          string `mapstructure:"DB_DRIVER"`
	DBPath            string `mapstructure:"DB_PATH"`
	DBHost            string `mapstructure:"DB_HOST"`
	DBPort            string `mapstructure:"DB_PORT"`
	DBUser            string `mapstructure:"DB_USER"`
	DBPassword        string `mapstructure:"DB_PASSWORD"`
	DBName            string `mapstructure:"DB_NAME"`
	DBSSLMode         string `mapstructure:"DB_SSLMODE"`
	DBSchemaMode      string `mapstructure:"DB_SCHEMA_MODE"`
	DBMaxOpenConns    int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns    int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetime int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	RedisURL          string `mapstructure:"REDIS_URL"`
	AllowedOrigins    string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags      string `mapstructure:"FEATURE_FLAGS"`
	Timezone          string `mapstructure:"TIMEZONE"`
	ProgramStart      string `mapstructure:"PROGRAM_START"`
	ProgramEnd        string `mapstructure:"PROGRAM_END"`
	HiddenTeams       string `mapstructure:"HIDDEN_TEAMS"`
	UploadDir         string `mapstructure:"UPLOAD_DIR"`
	AvatarMaxUploadMB int    `mapstructure:"AVATAR_MAX_UPLOAD_MB"`
	ResetVerifierName string `mapstructure:"RESET_VERIFIER_NAME"`
	ResetVerifierTel  string `mapstructure:"RESET_VERIFIER_PHONE"`
	TeamDeletePolicy  string `mapstructure:"TEAM_DELETE_POLICY"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	LogFile           string `mapstructure:"LOG_FILE"`
	TracingEnabled    bool   `mapstructure:"TRACING_ENABLED"`
	TracingExporter   string `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint      string `mapstructure:"OTLP_ENDPOINT"`
	DevRootID         string `mapstructure:"DEV_ROOT_ID"`
	DevRootPassword   string `mapstructure:"DEV_ROOT_PASSWORD"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_PATH", "teamtrack.db")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "teamtrack")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_SCHEMA_MODE", "hybrid")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "")
	viper.SetDefault("TIMEZONE", "Local")
	viper.SetDefault("PROGRAM_START", "2025-03-10")
	viper.SetDefault("PROGRAM_END", "2025-05-09")
	viper.SetDefault("HIDDEN_TEAMS", "Dev Team")
	viper.SetDefault("UPLOAD_DIR", "uploads")
	viper.SetDefault("AVATAR_MAX_UPLOAD_MB", 20)
	viper.SetDefault("TEAM_DELETE_POLICY", TeamDeleteReject)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("DEV_ROOT_ID", "admin")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))
	config.DBDriver = strings.ToLower(strings.TrimSpace(config.DBDriver))
	config.DBSchemaMode = strings.ToLower(strings.TrimSpace(config.DBSchemaMode))
	config.TeamDeletePolicy = strings.ToLower(strings.TrimSpace(config.TeamDeletePolicy))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the config targets a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Location resolves TIMEZONE. "Local" and empty map to the process zone.
func (c *Config) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(tz)
}

// ProgramRange returns the first and last calendar day of the tracked program.
func (c *Config) ProgramRange() (time.Time, time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start, err := time.ParseInLocation(dateLayout, c.ProgramStart, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("PROGRAM_START: %w", err)
	}
	end, err := time.ParseInLocation(dateLayout, c.ProgramEnd, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("PROGRAM_END: %w", err)
	}
	return start, end, nil
}

// HiddenTeamNames returns the team names excluded from the progress board.
func (c *Config) HiddenTeamNames() []string {
	var out []string
	for _, name := range strings.Split(c.HiddenTeams, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}
	start, end, err := c.ProgramRange()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return errors.New("PROGRAM_END must not be before PROGRAM_START")
	}
	switch c.DBDriver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	switch c.TeamDeletePolicy {
	case "", TeamDeleteReject, TeamDeleteUnassign:
	default:
		return fmt.Errorf("TEAM_DELETE_POLICY must be %q or %q", TeamDeleteReject, TeamDeleteUnassign)
	}
	if c.AvatarMaxUploadMB < 0 {
		return errors.New("AVATAR_MAX_UPLOAD_MB must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver != "sqlite" {
			if c.DBPassword == "password" || c.DBPassword == "" {
				return errors.New("a strong DB_PASSWORD is required in production")
			}
			if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
				return errors.New("DB_SSLMODE must enable SSL in production")
			}
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
