// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Options holds the configuration values for the server.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `env:"SERVER_ADDRESS"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `env:"DATABASE_DSN"`

	// Config is the path to the JSON config file.
	Config string `env:"CONFIG"`

	// SecretKey signs every issued token.
	SecretKey string `env:"SECRET_KEY"`
	// Algorithm is the HMAC signing algorithm: HS256, HS384 or HS512.
	Algorithm       string        `env:"ALGORITHM"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL"`
	EmailTokenTTL   time.Duration `env:"EMAIL_TOKEN_TTL"`

	// BaseURL is the public origin used in verification links.
	BaseURL    string `env:"BASE_URL"`
	LogLevel   string `env:"LOG_LEVEL"`
	BcryptCost int    `env:"BCRYPT_COST"`

	// Postmark credentials. Mail is only logged when the server token is empty.
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	MailFrom             string `env:"MAIL_FROM"`

	// S3-compatible avatar storage. Avatar uploads are disabled without a bucket.
	S3Bucket    string `env:"S3_BUCKET"`
	S3Region    string `env:"S3_REGION"`
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3PublicURL string `env:"S3_PUBLIC_URL"`

	// TLSCertFile and TLSKeyFile switch the server to HTTPS when both are set.
	TLSCertFile string `env:"TLS_CERT_FILE"`
	TLSKeyFile  string `env:"TLS_KEY_FILE"`

	// CleanupInterval is how often unconfirmed accounts older than
	// UnconfirmedRetention are removed. Zero disables the cleaner.
	CleanupInterval      time.Duration `env:"CLEANUP_INTERVAL"`
	UnconfirmedRetention time.Duration `env:"UNCONFIRMED_RETENTION"`
}

// fileOptions mirrors Options in the JSON config file, with durations as strings.
type fileOptions struct {
	Addr                 *string `json:"server_address"`
	DatabaseDSN          *string `json:"database_dsn"`
	SecretKey            *string `json:"secret_key"`
	Algorithm            *string `json:"algorithm"`
	AccessTokenTTL       *string `json:"access_token_ttl"`
	RefreshTokenTTL      *string `json:"refresh_token_ttl"`
	EmailTokenTTL        *string `json:"email_token_ttl"`
	BaseURL              *string `json:"base_url"`
	LogLevel             *string `json:"log_level"`
	BcryptCost           *int    `json:"bcrypt_cost"`
	PostmarkServerToken  *string `json:"postmark_server_token"`
	PostmarkAccountToken *string `json:"postmark_account_token"`
	MailFrom             *string `json:"mail_from"`
	S3Bucket             *string `json:"s3_bucket"`
	S3Region             *string `json:"s3_region"`
	S3Endpoint           *string `json:"s3_endpoint"`
	S3AccessKey          *string `json:"s3_access_key"`
	S3SecretKey          *string `json:"s3_secret_key"`
	S3PublicURL          *string `json:"s3_public_url"`
	TLSCertFile          *string `json:"tls_cert_file"`
	TLSKeyFile           *string `json:"tls_key_file"`
	CleanupInterval      *string `json:"cleanup_interval"`
	UnconfirmedRetention *string `json:"unconfirmed_retention"`
}

// Defaults returns the options used when nothing overrides them.
func Defaults() *Options {
	return &Options{
		Addr:                 "localhost:8080",
		Config:               "config.json",
		Algorithm:            "HS256",
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      7 * 24 * time.Hour,
		EmailTokenTTL:        7 * 24 * time.Hour,
		BaseURL:              "http://localhost:8080",
		LogLevel:             "info",
		BcryptCost:           10,
		MailFrom:             "no-reply@localhost",
		S3Region:             "us-east-1",
		CleanupInterval:      time.Hour,
		UnconfirmedRetention: 7 * 24 * time.Hour,
	}
}

// Load builds the options from defaults, command-line flags, the JSON config
// file, a .env file and finally environment variables, each overriding the last.
func Load(args []string) (*Options, error) {
	options := Defaults()

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&options.Addr, "a", options.Addr, "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", options.DatabaseDSN, "db address")
	fs.StringVar(&options.Config, "config", options.Config, "path to config file")
	fs.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	fs.StringVar(&options.SecretKey, "s", options.SecretKey, "token signing secret")
	fs.StringVar(&options.LogLevel, "l", options.LogLevel, "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env file is fine.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}
	if err := options.loadFile(); err != nil {
		return nil, err
	}

	if err := env.Parse(options); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func (o *Options) loadFile() error {
	if o.Config == "" {
		return nil
	}
	data, err := os.ReadFile(o.Config)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	var f fileOptions
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	setString(&o.Addr, f.Addr)
	setString(&o.DatabaseDSN, f.DatabaseDSN)
	setString(&o.SecretKey, f.SecretKey)
	setString(&o.Algorithm, f.Algorithm)
	setString(&o.BaseURL, f.BaseURL)
	setString(&o.LogLevel, f.LogLevel)
	setString(&o.PostmarkServerToken, f.PostmarkServerToken)
	setString(&o.PostmarkAccountToken, f.PostmarkAccountToken)
	setString(&o.MailFrom, f.MailFrom)
	setString(&o.S3Bucket, f.S3Bucket)
	setString(&o.S3Region, f.S3Region)
	setString(&o.S3Endpoint, f.S3Endpoint)
	setString(&o.S3AccessKey, f.S3AccessKey)
	setString(&o.S3SecretKey, f.S3SecretKey)
	setString(&o.S3PublicURL, f.S3PublicURL)
	setString(&o.TLSCertFile, f.TLSCertFile)
	setString(&o.TLSKeyFile, f.TLSKeyFile)
	if f.BcryptCost != nil {
		o.BcryptCost = *f.BcryptCost
	}

	durations := []struct {
		name string
		dst  *time.Duration
		src  *string
	}{
		{"access_token_ttl", &o.AccessTokenTTL, f.AccessTokenTTL},
		{"refresh_token_ttl", &o.RefreshTokenTTL, f.RefreshTokenTTL},
		{"email_token_ttl", &o.EmailTokenTTL, f.EmailTokenTTL},
		{"cleanup_interval", &o.CleanupInterval, f.CleanupInterval},
		{"unconfirmed_retention", &o.UnconfirmedRetention, f.UnconfirmedRetention},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("config file: %s: %w", d.name, err)
		}
		*d.dst = v
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// Validate reports the first invalid option.
func (o *Options) Validate() error {
	if o.SecretKey == "" {
		return errors.New("secret key is required (-s or SECRET_KEY)")
	}
	switch o.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported algorithm %q", o.Algorithm)
	}
	if o.AccessTokenTTL <= 0 || o.RefreshTokenTTL <= 0 || o.EmailTokenTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if (o.TLSCertFile == "") != (o.TLSKeyFile == "") {
		return errors.New("tls cert and key files must be set together")
	}
	if o.CleanupInterval < 0 || o.UnconfirmedRetention < 0 {
		return errors.New("cleanup durations must not be negative")
	}
	return nil
}

// MailEnabled reports whether verification mail goes out through Postmark.
func (o *Options) MailEnabled() bool { return o.PostmarkServerToken != "" }

// AvatarsEnabled reports whether avatar uploads are backed by object storage.
func (o *Options) AvatarsEnabled() bool { return o.S3Bucket != "" }

// TLSEnabled reports whether the server listens with HTTPS.
func (o *Options) TLSEnabled() bool { return o.TLSCertFile != "" }
