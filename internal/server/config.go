package server

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"taskboard/internal/domain/errors"
	"taskboard/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Duration reads either a Go duration string ("15m") or a number of seconds from JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		d.Duration = time.Duration(v * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %q", errors.ErrConfigInvalidFormat, v)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("%w: %s", errors.ErrConfigInvalidFormat, string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

type Config struct {
	Addr        string
	Port        int
	DBStr       string
	MigratePath string

	JWTSecret string
	JWTTTL    Duration

	LogLevel string
	LogJSON  bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	OTPRateLimit  int
	OTPRateWindow Duration

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	NotifyWorkers   int
	NotifyQueueSize int
	NotifyTimeout   Duration
	NotifyRetries   int

	ReminderInterval Duration
	ShutdownTimeout  Duration
}

const (
	defaultAddr        = "0.0.0.0"
	defaultPort        = 8080
	defaultDBStr       = "postgresql://taskboard:taskboard@db:5432/taskboard?sslmode=disable"
	defaultMigratePath = "migrations"
	defaultJWTSecret   = "dev_secret_change_me"
)

func DefaultConfig() *Config {
	return &Config{
		Addr:             defaultAddr,
		Port:             defaultPort,
		DBStr:            defaultDBStr,
		MigratePath:      defaultMigratePath,
		JWTSecret:        defaultJWTSecret,
		JWTTTL:           Duration{24 * time.Hour},
		LogLevel:         "info",
		OTPRateLimit:     5,
		OTPRateWindow:    Duration{time.Minute},
		SMTPPort:         587,
		NotifyWorkers:    2,
		NotifyQueueSize:  100,
		NotifyTimeout:    Duration{10 * time.Second},
		NotifyRetries:    2,
		ReminderInterval: Duration{0},
		ShutdownTimeout:  Duration{30 * time.Second},
	}
}

// ListenAddr is the host:port the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Addr, c.Port)
}

// UsesDefaultJWTSecret reports whether tokens are signed with the built-in development secret.
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == "" || c.JWTSecret == defaultJWTSecret
}

type flagValues struct {
	addr        *string
	port        *int
	dbstr       *string
	dbDsn       *string
	migratePath *string
	configFile  *string
	logLevel    *string
	logJSON     *bool
	redisAddr   *string
}

func registerFlags(fs *flag.FlagSet) *flagValues {
	return &flagValues{
		addr:        fs.String("addr", defaultAddr, "server address"),
		port:        fs.Int("port", defaultPort, "server port"),
		dbstr:       fs.String("dbstr", defaultDBStr, "database connection string"),
		dbDsn:       fs.String("dbdsn", "", "database DSN (takes precedence over dbstr)"),
		migratePath: fs.String("migratepath", defaultMigratePath, "path to the migrations directory"),
		configFile:  fs.String("c", "", "path to a JSON config file"),
		logLevel:    fs.String("log-level", "info", "log level: debug, info, warn, error"),
		logJSON:     fs.Bool("log-json", false, "emit JSON logs"),
		redisAddr:   fs.String("redis", "", "redis address for rate limiting"),
	}
}

// ReadConfig loads the configuration from the process command line and environment.
func ReadConfig() *Config {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		logger.Fatal("failed to read config", "error", err)
	}
	return cfg
}

// LoadConfig layers, lowest first: defaults, JSON file (-c or CONFIG), .env and the
// process environment, then flags that were set explicitly.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("taskboard", flag.ContinueOnError)
	flags := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if fileCfg := loadJSONConfig(*flags.configFile); fileCfg != nil {
		cfg = fileCfg
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to load .env", "error", err)
	}
	cfg = applyEnvOverrides(cfg)
	cfg = applyFlagOverrides(cfg, fs, flags)

	return cfg, nil
}

func loadJSONConfig(configPath string) *Config {
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}
	if configPath == "" {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		logger.Warn(errors.ErrConfigFileReadFailed.Error(), "path", configPath, "error", err)
		return nil
	}

	jsonConfig := DefaultConfig()
	if err := json.Unmarshal(data, jsonConfig); err != nil {
		logger.Warn(errors.ErrConfigParseFailed.Error(), "path", configPath, "error", err)
		return nil
	}

	logger.Info("json config loaded", "path", configPath)
	return jsonConfig
}

var envKeys = map[string]string{
	"addr":              "ADDR",
	"port":              "PORT",
	"db_str":            "DB_STR",
	"migrate_path":      "MIGRATE_PATH",
	"jwt_secret":        "JWT_SECRET",
	"jwt_ttl":           "JWT_TTL",
	"log_level":         "LOG_LEVEL",
	"log_json":          "LOG_JSON",
	"redis_addr":        "REDIS_ADDR",
	"redis_password":    "REDIS_PASSWORD",
	"redis_db":          "REDIS_DB",
	"otp_rate_limit":    "OTP_RATE_LIMIT",
	"otp_rate_window":   "OTP_RATE_WINDOW",
	"smtp_host":         "SMTP_HOST",
	"smtp_port":         "SMTP_PORT",
	"smtp_user":         "SMTP_USER",
	"smtp_pass":         "SMTP_PASS",
	"smtp_from":         "SMTP_FROM",
	"notify_workers":    "NOTIFY_WORKERS",
	"notify_queue_size": "NOTIFY_QUEUE_SIZE",
	"notify_timeout":    "NOTIFY_TIMEOUT",
	"notify_retries":    "NOTIFY_RETRIES",
	"reminder_interval": "REMINDER_INTERVAL",
	"shutdown_timeout":  "SHUTDOWN_TIMEOUT",
}

type envReader struct {
	v *viper.Viper
}

func newEnvReader() envReader {
	v := viper.New()
	v.AutomaticEnv()
	for key, env := range envKeys {
		_ = v.BindEnv(key, env)
	}
	return envReader{v: v}
}

func (e envReader) str(key string, dst *string) {
	if s := e.v.GetString(key); s != "" {
		*dst = s
	}
}

func (e envReader) integer(key string, dst *int, valid func(int) bool) {
	s := e.v.GetString(key)
	if s == "" {
		return
	}
	n, err := strconv.Atoi(s)
	if err != nil || (valid != nil && !valid(n)) {
		logger.Warn(errors.ErrConfigInvalidFormat.Error(), "env", envKeys[key], "value", s)
		return
	}
	*dst = n
}

func (e envReader) duration(key string, dst *Duration) {
	s := e.v.GetString(key)
	if s == "" {
		return
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		logger.Warn(errors.ErrConfigInvalidFormat.Error(), "env", envKeys[key], "value", s)
		return
	}
	dst.Duration = d
}

func (e envReader) boolean(key string, dst *bool) {
	s := e.v.GetString(key)
	if s == "" {
		return
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		logger.Warn(errors.ErrConfigInvalidFormat.Error(), "env", envKeys[key], "value", s)
		return
	}
	*dst = b
}

func validPort(p int) bool { return p >= 1 && p <= 65535 }

func nonNegative(n int) bool { return n >= 0 }

func applyEnvOverrides(cfg *Config) *Config {
	env := newEnvReader()

	env.str("addr", &cfg.Addr)
	env.integer("port", &cfg.Port, validPort)
	env.str("db_str", &cfg.DBStr)
	env.str("migrate_path", &cfg.MigratePath)
	env.str("jwt_secret", &cfg.JWTSecret)
	env.duration("jwt_ttl", &cfg.JWTTTL)
	env.str("log_level", &cfg.LogLevel)
	env.boolean("log_json", &cfg.LogJSON)
	env.str("redis_addr", &cfg.RedisAddr)
	env.str("redis_password", &cfg.RedisPassword)
	env.integer("redis_db", &cfg.RedisDB, nonNegative)
	env.integer("otp_rate_limit", &cfg.OTPRateLimit, nonNegative)
	env.duration("otp_rate_window", &cfg.OTPRateWindow)
	env.str("smtp_host", &cfg.SMTPHost)
	env.integer("smtp_port", &cfg.SMTPPort, validPort)
	env.str("smtp_user", &cfg.SMTPUser)
	env.str("smtp_pass", &cfg.SMTPPass)
	env.str("smtp_from", &cfg.SMTPFrom)
	env.integer("notify_workers", &cfg.NotifyWorkers, nonNegative)
	env.integer("notify_queue_size", &cfg.NotifyQueueSize, nonNegative)
	env.duration("notify_timeout", &cfg.NotifyTimeout)
	env.integer("notify_retries", &cfg.NotifyRetries, nonNegative)
	env.duration("reminder_interval", &cfg.ReminderInterval)
	env.duration("shutdown_timeout", &cfg.ShutdownTimeout)

	if cfg.DBStr == defaultDBStr {
		dbUser := os.Getenv("DB_USER")
		dbPassword := os.Getenv("DB_PASSWORD")
		dbName := os.Getenv("DB_NAME")
		dbHost := os.Getenv("DB_HOST")
		dbPort := os.Getenv("DB_PORT")
		if dbUser != "" && dbPassword != "" && dbName != "" && dbHost != "" && dbPort != "" {
			cfg.DBStr = fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, dbName)
		}
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	return cfg
}

// applyFlagOverrides only applies flags present on the command line so that flag
// defaults never mask file or environment values.
func applyFlagOverrides(cfg *Config, fs *flag.FlagSet, flags *flagValues) *Config {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *flags.addr
		case "port":
			if validPort(*flags.port) {
				cfg.Port = *flags.port
			} else {
				logger.Warn(errors.ErrConfigInvalidFormat.Error(), "flag", "port", "value", *flags.port)
			}
		case "dbstr":
			if *flags.dbDsn == "" {
				cfg.DBStr = *flags.dbstr
			}
		case "dbdsn":
			if *flags.dbDsn != "" {
				cfg.DBStr = *flags.dbDsn
			}
		case "migratepath":
			cfg.MigratePath = *flags.migratePath
		case "log-level":
			cfg.LogLevel = strings.ToLower(*flags.logLevel)
		case "log-json":
			cfg.LogJSON = *flags.logJSON
		case "redis":
			cfg.RedisAddr = *flags.redisAddr
		}
	})
	return cfg
}
