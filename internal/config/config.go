/**
 * @description
 * This package handles the configuration management for the settlement-service.
 * It uses the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"errors"
	"log"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the settlement-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                   string `mapstructure:"SERVER_PORT"`
	DatabaseURL                  string `mapstructure:"DATABASE_URL"`
	RabbitMQURL                  string `mapstructure:"RABBITMQ_URL"`
	RedisURL                     string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix         string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	GatewayProvider              string `mapstructure:"GATEWAY_PROVIDER"`
	GatewayBaseURL               string `mapstructure:"GATEWAY_BASE_URL"`
	GatewayAPIKey                string `mapstructure:"GATEWAY_API_KEY"`
	GatewayWebhookToken          string `mapstructure:"GATEWAY_WEBHOOK_TOKEN"`
	GatewayVerifyPayments        bool   `mapstructure:"GATEWAY_VERIFY_PAYMENTS"`
	JWTSecret                    string `mapstructure:"JWT_SECRET"`
	InternalAPIKey               string `mapstructure:"INTERNAL_API_KEY"`
	CORSAllowedOrigins           string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	ReserveSweepSchedule         string `mapstructure:"RESERVE_SWEEP_SCHEDULE"`
	ShareReleaseSchedule         string `mapstructure:"SHARE_RELEASE_SCHEDULE"`
	WithdrawalRateLimitPerMinute int    `mapstructure:"WITHDRAWAL_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("GATEWAY_PROVIDER", "asaas")
	viper.SetDefault("GATEWAY_VERIFY_PAYMENTS", true)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("RESERVE_SWEEP_SCHEDULE", "0 3 * * *")   // At 03:00 every day.
	viper.SetDefault("SHARE_RELEASE_SCHEDULE", "30 3 * * *")  // At 03:30 every day.
	viper.SetDefault("WITHDRAWAL_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "settlement:rate_limit")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("GATEWAY_PROVIDER")
	_ = viper.BindEnv("GATEWAY_BASE_URL")
	_ = viper.BindEnv("GATEWAY_API_KEY")
	_ = viper.BindEnv("GATEWAY_WEBHOOK_TOKEN")
	_ = viper.BindEnv("GATEWAY_VERIFY_PAYMENTS")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("RESERVE_SWEEP_SCHEDULE")
	_ = viper.BindEnv("SHARE_RELEASE_SCHEDULE")
	_ = viper.BindEnv("WITHDRAWAL_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	config.JWTSecret = strings.TrimSpace(config.JWTSecret)
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	config.GatewayWebhookToken = strings.TrimSpace(config.GatewayWebhookToken)

	if strings.TrimSpace(config.DatabaseURL) == "" {
		return config, errors.New("DATABASE_URL must be configured")
	}
	if config.JWTSecret == "" {
		return config, errors.New("JWT_SECRET must be configured")
	}
	if config.GatewayWebhookToken == "" {
		return config, errors.New("GATEWAY_WEBHOOK_TOKEN must be configured")
	}

	if config.WithdrawalRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative withdrawal rate limit configured; disabling\" limit=%d", config.WithdrawalRateLimitPerMinute)
		config.WithdrawalRateLimitPerMinute = 0
	}

	return
}
