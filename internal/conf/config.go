package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Backend   BackendConfig
	Admin     AdminConfig
	Session   SessionConfig
	Redis     RedisConfig
	MongoDB   MongoConfig
	Widget    WidgetConfig
	Notify    NotifyConfig
	Scheduler SchedulerConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port string
	Mode string // gin mode: debug, release, test
}

// BackendConfig points at the remote GoodAds REST service.
type BackendConfig struct {
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	AdminSecret string `mapstructure:"admin_secret"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	AdminPrefix string `mapstructure:"admin_prefix"`
}

type AdminConfig struct {
	Username string
	Password string
}

type SessionConfig struct {
	Driver     string        // memory | redis
	CookieName string        `mapstructure:"cookie_name"`
	TTL        time.Duration `mapstructure:"ttl"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MongoConfig is optional. An empty URI keeps waitlist leads in memory.
type MongoConfig struct {
	URI      string
	Database string
}

// WidgetConfig is rendered into window.GoodAdsConfig. An empty APIKey reuses
// backend.api_key.
type WidgetConfig struct {
	ScriptURL string `mapstructure:"script_url"`
	APIKey    string `mapstructure:"api_key"`
	Position  string
	Theme     string
}

type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type SchedulerConfig struct {
	SweepSchedule string `mapstructure:"sweep_schedule"`
	ProbeSchedule string `mapstructure:"probe_schedule"`
}

type LogConfig struct {
	Level  string
	Format string // text | json
}

const (
	SessionDriverMemory = "memory"
	SessionDriverRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("backend.base_url", "https://goodads.onrender.com")
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.admin_secret", "")
	v.SetDefault("backend.jwt_secret", "")
	v.SetDefault("backend.admin_prefix", "/api/admin/")

	v.SetDefault("admin.username", "admin")
	v.SetDefault("admin.password", "")

	v.SetDefault("session.driver", SessionDriverMemory)
	v.SetDefault("session.cookie_name", "goodads_client")
	v.SetDefault("session.ttl", 24*time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mongodb.uri", "")
	v.SetDefault("mongodb.database", "goodads")

	v.SetDefault("widget.script_url", "https://goodads.onrender.com/widget.js")
	v.SetDefault("widget.api_key", "")
	v.SetDefault("widget.position", "bottom-right")
	v.SetDefault("widget.theme", "light")

	v.SetDefault("notify.webhook_url", "")

	v.SetDefault("scheduler.sweep_schedule", "*/10 * * * *")
	v.SetDefault("scheduler.probe_schedule", "*/5 * * * *")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads ./config/config.yaml (optional) and GOODADS_* environment
// overrides. Extra search paths are tried first.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./config")
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("GOODADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		logrus.Info("No config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return errors.New("config: backend.base_url is required")
	}
	if c.Admin.Username == "" || c.Admin.Password == "" {
		return errors.New("config: admin.username and admin.password are required")
	}
	switch c.Session.Driver {
	case SessionDriverMemory, SessionDriverRedis:
	default:
		return fmt.Errorf("config: unknown session.driver %q", c.Session.Driver)
	}
	if c.Backend.AdminPrefix == "" {
		c.Backend.AdminPrefix = "/api/admin/"
	}
	if c.Widget.APIKey == "" {
		c.Widget.APIKey = c.Backend.APIKey
	}
	return nil
}
