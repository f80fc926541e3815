package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	PostgresConfig PostgresConfig `yaml:"postgres"`
	ServerConfig   ServerConfig   `yaml:"server"`
	AuthConfig     AuthConfig     `yaml:"auth"`
	RolloverConfig RolloverConfig `yaml:"rollover"`
}

type PostgresConfig struct {
	Host     string        `yaml:"host" env:"POSTGRES_HOST"`
	Port     string        `yaml:"port" env:"POSTGRES_PORT"`
	DBName   string        `yaml:"dbname" env:"POSTGRES_DB"`
	User     string        `yaml:"user" env:"POSTGRES_USER"`
	Password string        `yaml:"password" env:"POSTGRES_PASSWORD"`
	Timeout  time.Duration `yaml:"timeout" env-default:"30s"`
}

type ServerConfig struct {
	Port       string        `yaml:"port" env-default:"8080"`
	TimeoutAPI time.Duration `yaml:"timeout_api" env-default:"15s"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// RolloverConfig controls the scheduled carry-forward sweep. The HTTP
// endpoint works regardless; the cron job is an alternative trigger.
type RolloverConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Schedule string `yaml:"schedule" env-default:"0 5 0 * * *"`
}

func MustLoad() Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	var config Config
	err := cleanenv.ReadConfig(configPath, &config)
	if err != nil {
		log.Fatalf("config not read: %v", err)
	}
	return config
}
