package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	file := writeConfigFile(t, `{
		"Addr": "127.0.0.1",
		"Port": 9000,
		"JWTTTL": "2h",
		"OTPRateWindow": 30,
		"RedisAddr": "redis:6379"
	}`)

	tests := []struct {
		name string
		args []string
		env  map[string]string
		want struct {
			addr          string
			port          int
			dbStr         string
			jwtTTL        time.Duration
			otpRateWindow time.Duration
			redisAddr     string
			logLevel      string
		}
	}{
		{
			name: "defaults",
			want: struct {
				addr          string
				port          int
				dbStr         string
				jwtTTL        time.Duration
				otpRateWindow time.Duration
				redisAddr     string
				logLevel      string
			}{
				addr: defaultAddr, port: defaultPort, dbStr: defaultDBStr,
				jwtTTL: 24 * time.Hour, otpRateWindow: time.Minute, logLevel: "info",
			},
		},
		{
			name: "json file",
			args: []string{"-c", file},
			want: struct {
				addr          string
				port          int
				dbStr         string
				jwtTTL        time.Duration
				otpRateWindow time.Duration
				redisAddr     string
				logLevel      string
			}{
				addr: "127.0.0.1", port: 9000, dbStr: defaultDBStr,
				jwtTTL: 2 * time.Hour, otpRateWindow: 30 * time.Second, redisAddr: "redis:6379", logLevel: "info",
			},
		},
		{
			name: "environment beats file",
			env:  map[string]string{"CONFIG": file, "PORT": "9100", "JWT_TTL": "15m", "LOG_LEVEL": "DEBUG"},
			want: struct {
				addr          string
				port          int
				dbStr         string
				jwtTTL        time.Duration
				otpRateWindow time.Duration
				redisAddr     string
				logLevel      string
			}{
				addr: "127.0.0.1", port: 9100, dbStr: defaultDBStr,
				jwtTTL: 15 * time.Minute, otpRateWindow: 30 * time.Second, redisAddr: "redis:6379", logLevel: "debug",
			},
		},
		{
			name: "invalid environment values are ignored",
			env:  map[string]string{"PORT": "70000", "JWT_TTL": "soon"},
			want: struct {
				addr          string
				port          int
				dbStr         string
				jwtTTL        time.Duration
				otpRateWindow time.Duration
				redisAddr     string
				logLevel      string
			}{
				addr: defaultAddr, port: defaultPort, dbStr: defaultDBStr,
				jwtTTL: 24 * time.Hour, otpRateWindow: time.Minute, logLevel: "info",
			},
		},
		{
			name: "database parts from environment",
			env: map[string]string{
				"DB_USER": "u", "DB_PASSWORD": "p", "DB_HOST": "h", "DB_PORT": "5433", "DB_NAME": "n",
			},
			want: struct {
				addr          string
				port          int
				dbStr         string
				jwtTTL        time.Duration
				otpRateWindow time.Duration
				redisAddr     string
				logLevel      string
			}{
				addr: defaultAddr, port: defaultPort, dbStr: "postgresql://u:p@h:5433/n?sslmode=disable",
				jwtTTL: 24 * time.Hour, otpRateWindow: time.Minute, logLevel: "info",
			},
		},
		{
			name: "explicit flags beat environment",
			args: []string{"-port", "9200", "-dbdsn", "postgres://flag", "-redis", "cache:6379"},
			env:  map[string]string{"PORT": "9100", "DB_STR": "postgres://env"},
			want: struct {
				addr          string
				port          int
				dbStr         string
				jwtTTL        time.Duration
				otpRateWindow time.Duration
				redisAddr     string
				logLevel      string
			}{
				addr: defaultAddr, port: 9200, dbStr: "postgres://flag",
				jwtTTL: 24 * time.Hour, otpRateWindow: time.Minute, redisAddr: "cache:6379", logLevel: "info",
			},
		},
		{
			name: "unset flags keep environment values",
			args: []string{"-addr", "10.0.0.5"},
			env:  map[string]string{"PORT": "9100", "DB_STR": "postgres://env"},
			want: struct {
				addr          string
				port          int
				dbStr         string
				jwtTTL        time.Duration
				otpRateWindow time.Duration
				redisAddr     string
				logLevel      string
			}{
				addr: "10.0.0.5", port: 9100, dbStr: "postgres://env",
				jwtTTL: 24 * time.Hour, otpRateWindow: time.Minute, logLevel: "info",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"CONFIG", "PORT", "JWT_TTL", "LOG_LEVEL", "DB_STR",
				"DB_USER", "DB_PASSWORD", "DB_HOST", "DB_PORT", "DB_NAME", "ADDR", "REDIS_ADDR"} {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig(tt.args)
			require.NoError(t, err)

			assert.Equal(t, tt.want.addr, cfg.Addr)
			assert.Equal(t, tt.want.port, cfg.Port)
			assert.Equal(t, tt.want.dbStr, cfg.DBStr)
			assert.Equal(t, tt.want.jwtTTL, cfg.JWTTTL.Duration)
			assert.Equal(t, tt.want.otpRateWindow, cfg.OTPRateWindow.Duration)
			assert.Equal(t, tt.want.redisAddr, cfg.RedisAddr)
			assert.Equal(t, tt.want.logLevel, cfg.LogLevel)
		})
	}
}

func TestLoadConfigBadFile(t *testing.T) {
	t.Setenv("CONFIG", "")
	t.Setenv("PORT", "")
	bad := writeConfigFile(t, `{"Port": "not a number"`)

	cfg, err := LoadConfig([]string{"-c", bad})
	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Port, "an unreadable file falls back to defaults")

	_, err = LoadConfig([]string{"-unknown"})
	assert.Error(t, err)
}

func TestUsesDefaultJWTSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		want   struct {
			isDefault bool
		}
	}{
		{
			name:   "built-in secret",
			secret: defaultJWTSecret,
			want: struct {
				isDefault bool
			}{isDefault: true},
		},
		{
			name:   "empty secret",
			secret: "",
			want: struct {
				isDefault bool
			}{isDefault: true},
		},
		{
			name:   "configured secret",
			secret: "s3cr3t-from-env",
			want: struct {
				isDefault bool
			}{isDefault: false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.JWTSecret = tt.secret
			assert.Equal(t, tt.want.isDefault, cfg.UsesDefaultJWTSecret())
		})
	}

	t.Run("environment replaces the built-in secret", func(t *testing.T) {
		t.Setenv("CONFIG", "")
		t.Setenv("JWT_SECRET", "from-env")
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		assert.False(t, cfg.UsesDefaultJWTSecret())
	})
}
