package config

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

const (
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

const minSecretLength = 32

type Config struct {
	Port      string `env:"PORT,      default=3000"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	AccessExpiresIn  string `env:"JWT_ACCESS_EXPIRES_IN,  default=15m"`
	RefreshExpiresIn string `env:"JWT_REFRESH_EXPIRES_IN, default=7d"`
	CORSOrigin       string `env:"CORS_ORIGIN,            default=*"`
	BcryptCost       int    `env:"BCRYPT_COST,            default=10"`
	StoreDriver      string `env:"STORE_DRIVER,           default=mongo"`
	AuditWorkers     int    `env:"AUDIT_WORKERS,          default=4"`

	// Parsed from the *ExpiresIn strings by Load.
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	Mongo MongoConfig
	Redis RedisConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

// Load reads configuration through l (envconfig.OsLookuper() in production)
// and validates it. A nil lookuper reads the process environment.
func Load(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	if l == nil {
		l = envconfig.OsLookuper()
	}

	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field and fills AccessTTL and RefreshTTL. All problems
// are reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("ENV must be one of development, test, production; got %q", c.Env))
	}

	if len(c.JWTSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength))
	}

	switch strings.ToLower(c.LogLevel) {
	case "error", "warn", "info", "debug":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of error, warn, info, debug; got %q", c.LogLevel))
	}

	switch c.StoreDriver {
	case DriverMongo, DriverRedis, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of mongo, redis, memory; got %q", c.StoreDriver))
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between 4 and 31; got %d", c.BcryptCost))
	}

	if c.AuditWorkers < 1 {
		errs = append(errs, fmt.Errorf("AUDIT_WORKERS must be positive; got %d", c.AuditWorkers))
	}

	var err error
	if c.AccessTTL, err = ParseTTL(c.AccessExpiresIn); err != nil {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_EXPIRES_IN: %w", err))
	}
	if c.RefreshTTL, err = ParseTTL(c.RefreshExpiresIn); err != nil {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_EXPIRES_IN: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: invalid environment: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Env == EnvProduction }

// ParseTTL parses a lifetime such as "30s", "15m", "12h" or "7d". A bare
// integer is read as seconds.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}

	unit := time.Second
	num := s
	switch s[len(s)-1] {
	case 's':
		num = s[:len(s)-1]
	case 'm':
		unit, num = time.Minute, s[:len(s)-1]
	case 'h':
		unit, num = time.Hour, s[:len(s)-1]
	case 'd':
		unit, num = 24*time.Hour, s[:len(s)-1]
	}

	n, err := strconv.ParseInt(num, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	if n <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", s)
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("duration %q is out of range", s)
	}
	return time.Duration(n) * unit, nil
}
