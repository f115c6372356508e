// Package config loads the server configuration from the environment, with
// an optional .env file for development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIHost       string
	Redis         RedisConfig
	NATS          NATSConfig
	Mailgun       MailgunConfig
	Token         TokenConfig
	BcryptCost    int
	SubjectPrefix string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type NATSConfig struct {
	URL string
}

type MailgunConfig struct {
	Domain string
	APIKey string
	Sender string
}

type TokenConfig struct {
	PrivateKeyFile string
	PublicKeyFile  string
	Lifetime       time.Duration
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	return Config{
		APIHost: getEnv("API_HOST", "http://localhost:8080"),
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Mailgun: MailgunConfig{
			Domain: getEnv("MAILGUN_DOMAIN", ""),
			APIKey: getEnv("MAILGUN_API_KEY", ""),
			Sender: getEnv("MAILGUN_SENDER", "RHeactor <noreply@example.com>"),
		},
		Token: TokenConfig{
			PrivateKeyFile: getEnv("TOKEN_PRIVATE_KEY_FILE", "private.pem"),
			PublicKeyFile:  getEnv("TOKEN_PUBLIC_KEY_FILE", "public.pem"),
			Lifetime:       time.Duration(getEnvInt("TOKEN_LIFETIME_SECONDS", 1800)) * time.Second,
		},
		BcryptCost:    getEnvInt("BCRYPT_COST", 10),
		SubjectPrefix: getEnv("EVENT_SUBJECT_PREFIX", "rheactor.events"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}
