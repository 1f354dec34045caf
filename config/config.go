package config

import (
	"os"
	"time"

	"github.com/juju/errors"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Config holds the executor's deployment configuration. Per-node secrets
// (broker credentials, report API keys) live in workflow metadata, not here.
type Config struct {
	Engine struct {
		TickInterval  time.Duration `yaml:"tick_interval"`
		Concurrency   int           `yaml:"concurrency"`
		CandleHistory int           `yaml:"candle_history"`
	} `yaml:"engine"`
	Database struct {
		PostgresDSN string `yaml:"postgres_dsn"`
		MemStore    bool   `yaml:"mem_store"`
	} `yaml:"database"`
	Report struct {
		CutoffMinutes int           `yaml:"cutoff_minutes"`
		Timezone      string        `yaml:"timezone"`
		Lookback      time.Duration `yaml:"lookback"`
	} `yaml:"report"`
	Notify struct {
		EmailAPIKey    string `yaml:"email_api_key"`
		EmailFrom      string `yaml:"email_from"`
		WhatsappAPIKey string `yaml:"whatsapp_api_key"`
		WhatsappFrom   string `yaml:"whatsapp_from"`
	} `yaml:"notify"`
	Insight struct {
		GeminiAPIKey string `yaml:"gemini_api_key"`
	} `yaml:"insight"`
	Proxy string `yaml:"proxy"`
}

// Load reads YAML config from path, then applies environment variable
// overrides. A missing file is fine: everything has a default or an env
// source.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, errors.Annotatef(err, "reading config %s", path)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Annotatef(err, "parsing config %s", path)
		}
	}

	if v := os.Getenv("TRADEFLOW_POSTGRES_DSN"); v != "" {
		cfg.Database.PostgresDSN = v
	}
	if v := os.Getenv("TRADEFLOW_MEM_STORE"); v != "" {
		cfg.Database.MemStore = cast.ToBool(v)
	}
	if v := os.Getenv("TRADEFLOW_TICK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.TickInterval = d
		}
	}
	if v := os.Getenv("RESEND_API_KEY"); v != "" {
		cfg.Notify.EmailAPIKey = v
	}
	if v := os.Getenv("WHATSAPP_API_KEY"); v != "" {
		cfg.Notify.WhatsappAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Insight.GeminiAPIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	return cfg, nil
}

// Validate rejects combinations the engine cannot run with.
func (c *Config) Validate() error {
	if !c.Database.MemStore && c.Database.PostgresDSN == "" {
		return errors.BadRequestf("either database.postgres_dsn or database.mem_store must be set")
	}
	if c.Engine.TickInterval < 0 {
		return errors.BadRequestf("engine.tick_interval must not be negative")
	}
	return nil
}
