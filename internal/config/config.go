package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	ChannelBase            string
	CORSAllowOrigins       string
	JWTSecret              string
	FrequencyCacheTTL      time.Duration
	ResolveRateLimit       int
	ResolveRateLimitWindow time.Duration
	Monitor                MonitorConfig
}

// MonitorConfig configures the activity monitor.
type MonitorConfig struct {
	Enabled           bool
	Interval          time.Duration
	TickTimeout       time.Duration
	RefreshOnSkip     bool
	LastHourMax       int64
	Last24HoursMax    int64
	QualifyingActions []string
	AdminRoles        []string
	MentorEmails      []string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return fromViper(v)
}

func fromViper(v *viper.Viper) (Config, error) {
	v.SetDefault("app.name", "Mentora API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel_base", "mentora")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("logs.frequency_cache_ttl", "30s")
	v.SetDefault("resolve.rate_limit", 30)
	v.SetDefault("resolve.rate_window", "1m")
	v.SetDefault("monitor.enabled", true)
	v.SetDefault("monitor.interval", "5m")
	v.SetDefault("monitor.tick_timeout", "1m")
	v.SetDefault("monitor.refresh_on_skip", false)
	v.SetDefault("monitor.last_hour.max", 100)
	v.SetDefault("monitor.last_24_hours.max", 500)
	v.SetDefault("monitor.qualifying_actions", "CREATE,UPDATE,DELETE,FAILED_LOGIN")
	v.SetDefault("monitor.admin_roles", "admin")
	v.SetDefault("monitor.mentor_emails", "")

	frequencyTTL, err := parseDuration(v, "logs.frequency_cache_ttl")
	if err != nil {
		return Config{}, err
	}
	resolveWindow, err := parseDuration(v, "resolve.rate_window")
	if err != nil {
		return Config{}, err
	}
	interval, err := parseDuration(v, "monitor.interval")
	if err != nil {
		return Config{}, err
	}
	tickTimeout, err := parseDuration(v, "monitor.tick_timeout")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		ChannelBase:            v.GetString("channel_base"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		JWTSecret:              v.GetString("jwt.secret"),
		FrequencyCacheTTL:      frequencyTTL,
		ResolveRateLimit:       v.GetInt("resolve.rate_limit"),
		ResolveRateLimitWindow: resolveWindow,
		Monitor: MonitorConfig{
			Enabled:           v.GetBool("monitor.enabled"),
			Interval:          interval,
			TickTimeout:       tickTimeout,
			RefreshOnSkip:     v.GetBool("monitor.refresh_on_skip"),
			LastHourMax:       v.GetInt64("monitor.last_hour.max"),
			Last24HoursMax:    v.GetInt64("monitor.last_24_hours.max"),
			QualifyingActions: splitList(v.GetString("monitor.qualifying_actions")),
			AdminRoles:        splitList(v.GetString("monitor.admin_roles")),
			MentorEmails:      splitList(v.GetString("monitor.mentor_emails")),
		},
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.Monitor.Interval < time.Second {
		return Config{}, fmt.Errorf("monitor interval must be at least 1s")
	}
	if cfg.Monitor.TickTimeout <= 0 {
		return Config{}, fmt.Errorf("monitor tick timeout must be positive")
	}
	if cfg.Monitor.LastHourMax < 0 || cfg.Monitor.Last24HoursMax < 0 {
		return Config{}, fmt.Errorf("monitor thresholds must not be negative")
	}
	if cfg.ResolveRateLimit <= 0 {
		cfg.ResolveRateLimit = 30
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
