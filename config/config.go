package config

import (
	"errors"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	Env          string `env:"ENVIRONMENT"`
	ServerPort   int    `env:"SERVER_PORT" envDefault:"8080"`
	ServerDNS    string `env:"SERVER_DNS" envDefault:"http://localhost:8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"forkfeed.sqlite"`

	Auth struct {
		JWTSecret     string `env:"JWT_SECRET"`
		TokenTTLHours int    `env:"TOKEN_TTL_HOURS" envDefault:"72"`
	}

	Vapid struct {
		PublicKey  string `env:"VAPID_PUBLIC_KEY"`
		PrivateKey string `env:"VAPID_PRIVATE_KEY"`
		Subscriber string `env:"VAPID_SUBSCRIBER" envDefault:"notifications@forkfeed.app"`
	}

	Mailgun struct {
		Domain      string `env:"MAILGUN_DOMAIN"`
		APIKey      string `env:"MAILGUN_API_KEY"`
		SenderFrom  string `env:"MAILGUN_SENDER_FROM" envDefault:"Forkfeed <noreply@forkfeed.app>"`
		TimeoutSecs int    `env:"MAILGUN_TIMEOUT_SECS" envDefault:"10"`
	}

	log *zap.Logger
}

func NewConfig(lc fx.Lifecycle, log *zap.Logger) *Config {
	cfg := &Config{log: log}
	if err := env.Parse(cfg); err != nil {
		log.Sugar().Panic(err)
	}

	if err := cfg.ensureJWTSecret(); err != nil {
		log.Sugar().Panic(err)
	}
	if err := cfg.ensureVapidKeys(); err != nil {
		log.Sugar().Panic(err)
	}

	return cfg
}

func (cfg *Config) ensureJWTSecret() error {
	if cfg.Auth.JWTSecret != "" {
		return nil
	}
	if cfg.Env == "production" {
		return errors.New("JWT_SECRET envvar must be populated in production")
	}
	cfg.log.Sugar().Info("JWT_SECRET not set, using development default")
	cfg.Auth.JWTSecret = "forkfeed-development-secret"
	return nil
}

// ensureVapidKeys generates a throwaway VAPID keypair outside production so the
// web-push endpoints work on a fresh checkout. Subscriptions made against a
// generated keypair do not survive a restart.
func (cfg *Config) ensureVapidKeys() error {
	if cfg.Vapid.PublicKey != "" && cfg.Vapid.PrivateKey != "" {
		return nil
	}
	if cfg.Env == "production" {
		return errors.New("VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY envvars must be populated in production")
	}

	private, public, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	cfg.log.Sugar().Infow("Generated ephemeral VAPID keypair", "public_key", public)
	cfg.Vapid.PublicKey = public
	cfg.Vapid.PrivateKey = private
	return nil
}
