package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	commoncfg "github.com/kmallmaperez/geocore/common/config"
)

// Config is the geocore-api configuration. Values come from defaults, then
// the YAML file named by GEOCORE_CONFIG, then environment variables.
type Config struct {
	HTTP struct {
		Addr        string        `yaml:"addr"`
		ReadTimeout time.Duration `yaml:"read_timeout"`
	} `yaml:"http"`

	DBEnabled   bool                     `yaml:"db_enabled"`
	AutoMigrate bool                     `yaml:"auto_migrate"`
	Database    commoncfg.DatabaseConfig `yaml:"database"`

	RedisEnabled bool                  `yaml:"redis_enabled"`
	Redis        commoncfg.RedisConfig `yaml:"redis"`

	Log commoncfg.LogConfig `yaml:"log"`

	Auth    AuthConfig    `yaml:"auth"`
	Events  EventsConfig  `yaml:"events"`
	Report  ReportConfig  `yaml:"report"`
	Summary SummaryConfig `yaml:"summary"`
	Records RecordsConfig `yaml:"records"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenTTL      time.Duration `yaml:"token_ttl"`
	SeedAdmin     bool          `yaml:"seed_admin"`
	AdminName     string        `yaml:"admin_name"`
	AdminEmail    string        `yaml:"admin_email"`
	AdminPassword string        `yaml:"admin_password"`
}

// EventsConfig selects where record change events go: none, redis or mqtt.
type EventsConfig struct {
	Sink         string               `yaml:"sink"`
	Stream       string               `yaml:"stream"`
	StreamMaxLen int64                `yaml:"stream_max_len"`
	TopicPrefix  string               `yaml:"topic_prefix"`
	MQTT         commoncfg.MQTTConfig `yaml:"mqtt"`
}

type ReportConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type SummaryConfig struct {
	CacheTTL             time.Duration `yaml:"cache_ttl"`
	IdealMetresPerRigDay float64       `yaml:"ideal_metres_per_rig_day"`
}

type RecordsConfig struct {
	UserEditWindowDays int           `yaml:"user_edit_window_days"`
	LockTimeout        time.Duration `yaml:"lock_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = ":4000"
	cfg.HTTP.ReadTimeout = 15 * time.Second

	cfg.DBEnabled = true
	cfg.Database = commoncfg.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "geocore",
		SSLMode:  "disable",
		MaxConns: 10,
		MaxIdle:  5,
	}

	cfg.Redis.Addr = "localhost:6379"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Log.Service = "geocore-api"

	cfg.Auth.TokenTTL = 8 * time.Hour
	cfg.Auth.SeedAdmin = true
	cfg.Auth.AdminName = "Administrador"
	cfg.Auth.AdminEmail = "admin@geocore.pe"
	cfg.Auth.AdminPassword = "admin123"

	cfg.Events.Sink = "none"
	cfg.Events.Stream = "geocore:records"
	cfg.Events.StreamMaxLen = 10000
	cfg.Events.TopicPrefix = "geocore/records"
	cfg.Events.MQTT = commoncfg.MQTTConfig{
		Broker:         "tcp://localhost:1883",
		ClientID:       "geocore-api",
		QoS:            1,
		ConnectTimeout: 10 * time.Second,
	}

	cfg.Report.Timeout = 10 * time.Second
	cfg.Summary.CacheTTL = 5 * time.Minute
	cfg.Summary.IdealMetresPerRigDay = 35
	cfg.Records.UserEditWindowDays = 10
	cfg.Records.LockTimeout = 5 * time.Second
	return cfg
}

// Load builds the configuration.
func Load() (*Config, error) {
	cfg := Default()
	if path := os.Getenv("GEOCORE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.loadEnv()
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.ReadTimeout = parseDuration(getEnv("HTTP_READ_TIMEOUT", ""), c.HTTP.ReadTimeout)

	c.DBEnabled = parseBool(getEnv("DB_ENABLED", ""), c.DBEnabled)
	c.AutoMigrate = parseBool(getEnv("DB_AUTO_MIGRATE", ""), c.AutoMigrate)
	c.Database.LoadFromEnv("DB")

	c.RedisEnabled = parseBool(getEnv("REDIS_ENABLED", ""), c.RedisEnabled)
	c.Redis.LoadFromEnv("REDIS")

	c.Log.LoadFromEnv("LOG")

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.TokenTTL = parseDuration(getEnv("JWT_TTL", ""), c.Auth.TokenTTL)
	c.Auth.SeedAdmin = parseBool(getEnv("SEED_ADMIN", ""), c.Auth.SeedAdmin)
	c.Auth.AdminEmail = getEnv("SEED_ADMIN_EMAIL", c.Auth.AdminEmail)
	c.Auth.AdminPassword = getEnv("SEED_ADMIN_PASSWORD", c.Auth.AdminPassword)

	c.Events.Sink = getEnv("EVENTS_SINK", c.Events.Sink)
	c.Events.Stream = getEnv("EVENTS_STREAM", c.Events.Stream)
	c.Events.TopicPrefix = getEnv("EVENTS_TOPIC_PREFIX", c.Events.TopicPrefix)
	c.Events.MQTT.LoadFromEnv("MQTT")

	c.Report.WebhookURL = getEnv("REPORT_WEBHOOK_URL", c.Report.WebhookURL)
	c.Report.Timeout = parseDuration(getEnv("REPORT_WEBHOOK_TIMEOUT", ""), c.Report.Timeout)

	c.Summary.CacheTTL = parseDuration(getEnv("SUMMARY_CACHE_TTL", ""), c.Summary.CacheTTL)
	c.Summary.IdealMetresPerRigDay = parseFloat(getEnv("IDEAL_METRES_PER_RIG_DAY", ""), c.Summary.IdealMetresPerRigDay)
	c.Records.UserEditWindowDays = parseInt(getEnv("USER_EDIT_WINDOW_DAYS", ""), c.Records.UserEditWindowDays)
	c.Records.LockTimeout = parseDuration(getEnv("RECORD_LOCK_TIMEOUT", ""), c.Records.LockTimeout)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func parseFloat(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
