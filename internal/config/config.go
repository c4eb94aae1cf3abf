package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	// JWTSecret если пуст, API работает без авторизации.
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL"`

	TransferTimeout time.Duration `env:"TRANSFER_TIMEOUT" envDefault:"5s"`
	LockTimeout     time.Duration `env:"LOCK_TIMEOUT"     envDefault:"3s"`
	TransferRetries int           `env:"TRANSFER_RETRIES" envDefault:"3"`

	TreasuryAccount string `env:"TREASURY_ACCOUNT" envDefault:"SYS-TREASURY-001"`
	BonusAccount    string `env:"BONUS_ACCOUNT"    envDefault:"SYS-BONUS-001"`
	RevenueAccount  string `env:"REVENUE_ACCOUNT"  envDefault:"SYS-REVENUE-001"`

	// AuditInterval 0 выключает фоновую сверку журнала.
	AuditInterval time.Duration `env:"AUDIT_INTERVAL" envDefault:"1m"`
	AuditWorkers  uint          `env:"AUDIT_WORKERS"  envDefault:"4"`
	AuditBatch    uint          `env:"AUDIT_BATCH"    envDefault:"100"`
}

// LoadConfig собирает конфиг из переменных окружения (и файла .env, если он есть) и флагов args.
// Переменные окружения имеют приоритет над флагами.
func LoadConfig(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %s", err.Error())
	}

	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if flagsErr := loadFlags(&flagsConfig, args); flagsErr != nil {
		return nil, fmt.Errorf("parse flags: %s", flagsErr.Error())
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.TransferTimeout < 0 || conf.LockTimeout < 0 || conf.AuditInterval < 0 {
		return nil, errors.New("timeouts and intervals must not be negative")
	}
	if conf.AuditInterval > 0 && (conf.AuditBatch == 0 || conf.AuditWorkers == 0) {
		return nil, errors.New("audit batch and workers must be positive while audit is enabled")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config, args []string) error {
	flags := flag.NewFlagSet("wallet", flag.ContinueOnError)
	flags.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flags.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flags.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	flags.StringVar(&flagConfig.JWTSecret, "j", "", "JWT secret for API clients, empty disables auth")

	return flags.Parse(args) //nolint:wrapcheck
}

// mergeConfig берет значения из окружения, строковые поля без значения заполняются из флагов.
func mergeConfig(envConfig, flagsConfig *Config) *Config {
	conf := *envConfig
	conf.RunAddress = defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress)
	conf.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	conf.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	conf.JWTSecret = defaultIfBlank(envConfig.JWTSecret, flagsConfig.JWTSecret)
	return &conf
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
