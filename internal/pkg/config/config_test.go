package config

import (
	"context"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validSecret = strings.Repeat("s", 32)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": validSecret,
	}))
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "*", cfg.CORSOrigin)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, DriverMongo, cfg.StoreDriver)
	assert.Equal(t, 4, cfg.AuditWorkers)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":             validSecret,
		"PORT":                   "8081",
		"ENV":                    "production",
		"JWT_ACCESS_EXPIRES_IN":  "30s",
		"JWT_REFRESH_EXPIRES_IN": "12h",
		"STORE_DRIVER":           "memory",
		"MONGO_DB":               "other",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30*time.Second, cfg.AccessTTL)
	assert.Equal(t, 12*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, "other", cfg.Mongo.Database)
}

func TestLoad_FailsFast(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"missing secret", map[string]string{}, "JWT_SECRET"},
		{"short secret", map[string]string{"JWT_SECRET": "short"}, "JWT_SECRET"},
		{"bad env", map[string]string{"JWT_SECRET": validSecret, "ENV": "staging"}, "ENV"},
		{"bad level", map[string]string{"JWT_SECRET": validSecret, "LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad driver", map[string]string{"JWT_SECRET": validSecret, "STORE_DRIVER": "sqlite"}, "STORE_DRIVER"},
		{"bad ttl", map[string]string{"JWT_SECRET": validSecret, "JWT_ACCESS_EXPIRES_IN": "soon"}, "JWT_ACCESS_EXPIRES_IN"},
		{"bad cost", map[string]string{"JWT_SECRET": validSecret, "BCRYPT_COST": "2"}, "BCRYPT_COST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), envconfig.MapLookuper(tt.env))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseTTL_LargestDays(t *testing.T) {
	maxDays := int64(math.MaxInt64 / int64(24*time.Hour))

	got, err := ParseTTL(strconv.FormatInt(maxDays, 10) + "d")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(maxDays)*24*time.Hour, got)

	_, err = ParseTTL(strconv.FormatInt(maxDays+1, 10) + "d")
	assert.Error(t, err)
}

func TestParseTTL(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"45", 45 * time.Second},
		{"45s", 45 * time.Second},
		{"15m", 15 * time.Minute},
		{"2h", 2 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
	}
	for _, tt := range tests {
		got, err := ParseTTL(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "d", "0m", "-5s", "1w", "1.5h", "300000000d", "9223372036854775807m"} {
		_, err := ParseTTL(bad)
		assert.Error(t, err, bad)
	}
}
