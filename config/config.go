package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the server.
// Tags use mapstructure for Viper unmarshalling and env for environment variable binding.
type ServerConfig struct {
	HTTPPort    string `mapstructure:"HTTP_PORT"`
	MongoURI    string `mapstructure:"MONGO_URI"`
	MongoDBName string `mapstructure:"MONGO_DB_NAME"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogPretty   bool   `mapstructure:"LOG_PRETTY"`

	// RedisAddr enables the device session cache when non-empty.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// FrontendURL is the browser login page devices show to the user.
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	JWTSecretKey string `mapstructure:"JWT_SECRET_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTTTLMin    int    `mapstructure:"JWT_TTL_MIN"`

	PairingTokenTTLMin int `mapstructure:"PAIRING_TOKEN_TTL_MIN"`
	SessionTTLHour     int `mapstructure:"SESSION_TTL_HOUR"`
	OAuthStateTTLMin   int `mapstructure:"OAUTH_STATE_TTL_MIN"`

	GoogleClientID      string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL   string `mapstructure:"GOOGLE_REDIRECT_URL"`
	DiscordClientID     string `mapstructure:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `mapstructure:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURL  string `mapstructure:"DISCORD_REDIRECT_URL"`
}

// JWTTTL returns the browser JWT lifetime as a duration.
func (c *ServerConfig) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMin) * time.Minute
}

// PairingTokenTTL returns the pairing token lifetime as a duration.
func (c *ServerConfig) PairingTokenTTL() time.Duration {
	return time.Duration(c.PairingTokenTTLMin) * time.Minute
}

// SessionTTL returns the device session lifetime as a duration.
func (c *ServerConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHour) * time.Hour
}

// OAuthStateTTL returns the lifetime of in-flight OAuth redirect state.
func (c *ServerConfig) OAuthStateTTL() time.Duration {
	return time.Duration(c.OAuthStateTTLMin) * time.Minute
}

// LoadConfig reads configuration from file, environment variables, and defaults.
func LoadConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("/etc/gamelink/")
	v.AddConfigPath("$HOME/.gamelink")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("HTTP_PORT", "8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017/gamelink_dev")
	v.SetDefault("MONGO_DB_NAME", "gamelink_dev")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", true)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("JWT_SECRET_KEY", "a_very_secret_jwt_key_change_me") // CHANGE IN PRODUCTION
	v.SetDefault("JWT_ISSUER", "gamelink")
	v.SetDefault("JWT_TTL_MIN", 60)
	v.SetDefault("PAIRING_TOKEN_TTL_MIN", 5)
	v.SetDefault("SESSION_TTL_HOUR", 24)
	v.SetDefault("OAUTH_STATE_TTL_MIN", 10)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults and env vars apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	return &cfg, nil
}
