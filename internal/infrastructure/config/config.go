package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Redis       RedisConfig
	Marketplace MarketplaceConfig
	Inventory   InventoryConfig
	Auth        AuthConfig
	Lock        LockConfig
	Note        NoteConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// MarketplaceConfig holds marketplace API settings
type MarketplaceConfig struct {
	BaseURL          string
	ClientID         string
	ClientSecret     string
	RedirectURI      string
	SellerID         string
	Timeout          time.Duration
	FullLogisticType string // logistic_type meaning the marketplace fulfills the order
	FlexLogisticType string // logistic_type meaning same-day courier dispatch
}

// InventoryConfig holds omnichannel inventory API settings
type InventoryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// AuthConfig holds token storage and refresh settings
type AuthConfig struct {
	TokenKey      string        // Redis key of the credential document
	RefreshMargin time.Duration // refresh this long before access token expiry
}

// LockConfig holds pack lock settings
type LockConfig struct {
	KeyPrefix string
}

// NoteConfig holds note writing feature switches
type NoteConfig struct {
	UpsertEnabled        bool
	SendBuyerMessage     bool
	BuyerMessageTemplate string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MELIZNUBE_ prefix (e.g., MELIZNUBE_MARKETPLACE_CLIENT_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("MELIZNUBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Marketplace: MarketplaceConfig{
			BaseURL:          v.GetString("marketplace.base_url"),
			ClientID:         v.GetString("marketplace.client_id"),
			ClientSecret:     v.GetString("marketplace.client_secret"),
			RedirectURI:      v.GetString("marketplace.redirect_uri"),
			SellerID:         v.GetString("marketplace.seller_id"),
			Timeout:          v.GetDuration("marketplace.timeout"),
			FullLogisticType: v.GetString("marketplace.full_logistic_type"),
			FlexLogisticType: v.GetString("marketplace.flex_logistic_type"),
		},
		Inventory: InventoryConfig{
			BaseURL: v.GetString("inventory.base_url"),
			Timeout: v.GetDuration("inventory.timeout"),
		},
		Auth: AuthConfig{
			TokenKey:      v.GetString("auth.token_key"),
			RefreshMargin: v.GetDuration("auth.refresh_margin"),
		},
		Lock: LockConfig{
			KeyPrefix: v.GetString("lock.key_prefix"),
		},
		Note: NoteConfig{
			UpsertEnabled:        v.GetBool("note.upsert_enabled"),
			SendBuyerMessage:     v.GetBool("note.send_buyer_message"),
			BuyerMessageTemplate: v.GetString("note.buyer_message_template"),
		},
	}

	applyDefaults(cfg, v)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.App.Name == "" {
		cfg.App.Name = "meliznube-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 64 << 10 // webhook payloads are tiny
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Marketplace.BaseURL == "" {
		cfg.Marketplace.BaseURL = "https://api.mercadolibre.com"
	}
	if cfg.Marketplace.Timeout == 0 {
		cfg.Marketplace.Timeout = 15 * time.Second
	}
	if cfg.Marketplace.FullLogisticType == "" {
		cfg.Marketplace.FullLogisticType = "fulfillment"
	}
	if cfg.Marketplace.FlexLogisticType == "" {
		cfg.Marketplace.FlexLogisticType = "self_service"
	}
	if cfg.Inventory.Timeout == 0 {
		cfg.Inventory.Timeout = 15 * time.Second
	}
	if cfg.Auth.TokenKey == "" {
		cfg.Auth.TokenKey = "meliznube:tokens"
	}
	if cfg.Auth.RefreshMargin == 0 {
		cfg.Auth.RefreshMargin = 60 * time.Second
	}
	if cfg.Lock.KeyPrefix == "" {
		cfg.Lock.KeyPrefix = "pack_lock:"
	}
	// A zero-value bool cannot distinguish "unset" from "false", so ask
	// viper directly before defaulting the note switches to enabled.
	if !v.IsSet("note.upsert_enabled") {
		cfg.Note.UpsertEnabled = true
	}
	if !v.IsSet("note.send_buyer_message") {
		cfg.Note.SendBuyerMessage = true
	}
	if cfg.Note.BuyerMessageTemplate == "" {
		cfg.Note.BuyerMessageTemplate = "Hola %s! Muchas gracias por tu compra. Ante cualquier consulta escribinos por aca."
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Auth.RefreshMargin < 0 {
		return fmt.Errorf("auth.refresh_margin cannot be negative")
	}
	if c.HTTP.MaxBodySize <= 0 {
		return fmt.Errorf("http.max_body_size must be positive")
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Marketplace.ClientID == "" {
			return fmt.Errorf("marketplace.client_id is required in production")
		}
		if c.Marketplace.ClientSecret == "" {
			return fmt.Errorf("marketplace.client_secret is required in production")
		}
		if c.Marketplace.SellerID == "" {
			return fmt.Errorf("marketplace.seller_id is required in production")
		}
		if c.Inventory.BaseURL == "" {
			return fmt.Errorf("inventory.base_url is required in production")
		}
		if c.Redis.Password == "" {
			return fmt.Errorf("redis.password is required in production")
		}
	}

	return nil
}

// Addr returns the host:port pair for the Redis client.
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
