package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "STOREFRONT"
	configFileEnvName = "STOREFRONT_CONFIG_FILE"
)

// Config holds all configuration for the application.
// Values come from defaults, then an optional config file, then STOREFRONT_* environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Identity IdentityConfig `mapstructure:"identity"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	LogLevel string         `mapstructure:"log_level"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type AuthConfig struct {
	APIKeys          []string `mapstructure:"api_keys"` // empty disables the client key check
	AppName          string   `mapstructure:"app_name"`
	RedirectURL      string   `mapstructure:"redirect_url"`
	ResetRedirectURL string   `mapstructure:"reset_redirect_url"`
}

type IdentityConfig struct {
	URL        string        `mapstructure:"url"`
	AnonKey    string        `mapstructure:"anon_key"`
	ClientInfo string        `mapstructure:"client_info"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type PaymentConfig struct {
	PublicKey           string        `mapstructure:"public_key"`
	ScriptURL           string        `mapstructure:"script_url"`
	Currency            string        `mapstructure:"currency"`
	ReferencePrefix     string        `mapstructure:"reference_prefix"`
	AmountMultiplier    int64         `mapstructure:"amount_multiplier"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
}

type NotifyConfig struct {
	WebhookURL  string        `mapstructure:"webhook_url"`
	FallbackURL string        `mapstructure:"fallback_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

var defaults = map[string]any{
	"server.port":                  "8080",
	"server.host":                  "127.0.0.1",
	"server.read_timeout":          15 * time.Second,
	"server.write_timeout":         15 * time.Second,
	"server.shutdown_timeout":      30 * time.Second,
	"server.allowed_origins":       []string{"*"},
	"auth.api_keys":                []string{},
	"auth.app_name":                "Blackfit",
	"auth.redirect_url":            "",
	"auth.reset_redirect_url":      "",
	"identity.url":                 "",
	"identity.anon_key":            "",
	"identity.client_info":         "storefront-go/1.0.0",
	"identity.timeout":             15 * time.Second,
	"payment.public_key":           "",
	"payment.script_url":           "https://js.paystack.co/v1/inline.js",
	"payment.currency":             "NGN",
	"payment.reference_prefix":     "blackfit",
	"payment.amount_multiplier":    100,
	"payment.confirmation_timeout": 30 * time.Second,
	"notify.webhook_url":           "",
	"notify.fallback_url":          "",
	"notify.timeout":               10 * time.Second,
	"log_level":                    "info",
}

// Load reads configuration using the command line in args (without the program name).
// An explicit --config wins over STOREFRONT_CONFIG_FILE.
func Load(args []string) (*Config, error) {
	path, err := configFilePath(args)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func configFilePath(args []string) (string, error) {
	cmdLine := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	arg := cmdLine.String("config", "", "config file (yaml, json or toml)")
	if err := cmdLine.Parse(args); err != nil {
		return "", err
	}
	if cmdLine.Changed("config") {
		return *arg, nil
	}
	if env, ok := os.LookupEnv(configFileEnvName); ok {
		return env, nil
	}
	return *arg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}

	if err := requireURL("identity.url", c.Identity.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Identity.AnonKey == "" {
		errs = append(errs, errors.New("identity.anon_key is required"))
	}

	if c.Payment.PublicKey == "" {
		errs = append(errs, errors.New("payment.public_key is required"))
	}
	if c.Payment.AmountMultiplier <= 0 {
		errs = append(errs, errors.New("payment.amount_multiplier must be positive"))
	}

	for _, u := range []struct{ key, value string }{
		{"notify.webhook_url", c.Notify.WebhookURL},
		{"notify.fallback_url", c.Notify.FallbackURL},
	} {
		if u.value == "" {
			continue
		}
		if err := requireURL(u.key, u.value); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func requireURL(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", key)
	}
	return nil
}

// Addr is the host:port the HTTP server listens on.
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}
