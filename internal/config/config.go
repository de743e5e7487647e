// Package config provides functionality for managing configuration options
// for the application using command-line flags, a config file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that reads as "10m" from flags, JSON and YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) Set(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10m\": %w", err)
	}
	return d.Set(s)
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	return d.Set(n.Value)
}

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address" yaml:"address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn" yaml:"database_dsn"`

	// LogLevel is a zap level name.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// BaseURL is the public URL the widget script calls back to.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// TokenMaxAge is the verification token acceptance window.
	TokenMaxAge Duration `json:"token_max_age" yaml:"token_max_age"`

	// TokenSecret, when set, makes minted tokens carry an HMAC tag.
	TokenSecret string `json:"token_secret" yaml:"token_secret"`

	// OperatorSecret signs operator bearer tokens.
	OperatorSecret string `json:"operator_secret" yaml:"operator_secret"`

	TLSCert string `json:"tls_cert" yaml:"tls_cert"`
	TLSKey  string `json:"tls_key" yaml:"tls_key"`
	// TLSClientCA verifies operator client certificates.
	TLSClientCA string `json:"tls_client_ca" yaml:"tls_client_ca"`

	// RedisAddr enables single-use tokens when non-empty.
	RedisAddr     string `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`

	// CORSOrigins lists the sites allowed to embed the widget.
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins"`

	// Config is the path to the Config file.
	Config string `json:"-" yaml:"-"`
}

// TLSEnabled reports whether a server certificate is configured.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}

func defaults() *Options {
	return &Options{
		Port:        "localhost:8080",
		LogLevel:    "info",
		BaseURL:     "http://localhost:8080",
		TokenMaxAge: Duration{10 * time.Minute},
		CORSOrigins: []string{"*"},
		Config:      "config.json",
	}
}

func newFlagSet(name string, o *Options) *flag.FlagSet {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	set.StringVar(&o.Port, "a", o.Port, "run on ip:port server")
	set.StringVar(&o.DatabaseDSN, "d", o.DatabaseDSN, "db address")
	set.StringVar(&o.LogLevel, "l", o.LogLevel, "log level")
	set.StringVar(&o.BaseURL, "base-url", o.BaseURL, "public base URL for the widget script")
	set.Var(&o.TokenMaxAge, "token-max-age", "verification token lifetime")
	set.StringVar(&o.TokenSecret, "token-secret", o.TokenSecret, "HMAC secret for verification tokens")
	set.StringVar(&o.OperatorSecret, "operator-secret", o.OperatorSecret, "JWT secret for operator tokens")
	set.StringVar(&o.TLSCert, "tls-cert", o.TLSCert, "server certificate")
	set.StringVar(&o.TLSKey, "tls-key", o.TLSKey, "server key")
	set.StringVar(&o.TLSClientCA, "tls-ca", o.TLSClientCA, "CA for operator client certificates")
	set.StringVar(&o.RedisAddr, "redis", o.RedisAddr, "redis address for single-use tokens")
	set.StringVar(&o.Config, "config", o.Config, "path to config file")
	set.StringVar(&o.Config, "c", o.Config, "path to config file (shorthand)")
	return set
}

// Parse loads .env if present, then parses the process flags, config file
// and environment. Invalid configuration is fatal.
func Parse() *Options {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("error while loading .env: %v", err)
	}
	opts, err := ParseArgs(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("error while parsing config: %v", err)
	}
	return opts
}

// ParseArgs resolves options from defaults, the config file, args and
// getenv, each overriding the one before.
func ParseArgs(args []string, getenv func(string) string) (*Options, error) {
	opts := defaults()
	if err := newFlagSet("pass1", opts).Parse(args); err != nil {
		return nil, err
	}
	if configPath := getenv("CONFIG"); configPath != "" {
		opts.Config = configPath
	}

	if opts.Config != "" {
		if err := loadFile(opts.Config, opts); err != nil {
			return nil, err
		}
		// Explicit flags win over the file.
		path := opts.Config
		if err := newFlagSet("pass2", opts).Parse(args); err != nil {
			return nil, err
		}
		opts.Config = path
	}

	if err := applyEnv(opts, getenv); err != nil {
		return nil, err
	}
	return opts, nil
}

func loadFile(path string, opts *Options) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, opts)
	default:
		err = json.Unmarshal(data, opts)
	}
	if err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func applyEnv(opts *Options, getenv func(string) string) error {
	strs := map[string]*string{
		"SERVER_ADDRESS":  &opts.Port,
		"DATABASE_DSN":    &opts.DatabaseDSN,
		"LOG_LEVEL":       &opts.LogLevel,
		"BASE_URL":        &opts.BaseURL,
		"TOKEN_SECRET":    &opts.TokenSecret,
		"OPERATOR_SECRET": &opts.OperatorSecret,
		"TLS_CERT":        &opts.TLSCert,
		"TLS_KEY":         &opts.TLSKey,
		"TLS_CLIENT_CA":   &opts.TLSClientCA,
		"REDIS_ADDR":      &opts.RedisAddr,
		"REDIS_PASSWORD":  &opts.RedisPassword,
	}
	for name, dst := range strs {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	if v := getenv("TOKEN_MAX_AGE"); v != "" {
		if err := opts.TokenMaxAge.Set(v); err != nil {
			return fmt.Errorf("TOKEN_MAX_AGE: %w", err)
		}
	}
	if v := getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REDIS_DB: %w", err)
		}
		opts.RedisDB = n
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		opts.CORSOrigins = nil
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				opts.CORSOrigins = append(opts.CORSOrigins, o)
			}
		}
	}
	return nil
}
