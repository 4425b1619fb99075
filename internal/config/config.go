package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Match   MatchConfig   `yaml:"match" mapstructure:"match"`
	CRM     CRMConfig     `yaml:"crm" mapstructure:"crm"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres or sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GeocodeConfig configures the geocoding client and resolver.
type GeocodeConfig struct {
	GoogleAPIKey string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests per second
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ScoringConfig holds the match scoring weights and decay shapes. The weights
// sum to 100; each component band decays linearly per its penalty constant.
type ScoringConfig struct {
	LocationWeight float64 `yaml:"location_weight" mapstructure:"location_weight"`
	BedsWeight     float64 `yaml:"beds_weight" mapstructure:"beds_weight"`
	BathsWeight    float64 `yaml:"baths_weight" mapstructure:"baths_weight"`
	BudgetWeight   float64 `yaml:"budget_weight" mapstructure:"budget_weight"`

	LocationDecayMiles float64 `yaml:"location_decay_miles" mapstructure:"location_decay_miles"`
	BedStepPenalty     float64 `yaml:"bed_step_penalty" mapstructure:"bed_step_penalty"`
	BathStepPenalty    float64 `yaml:"bath_step_penalty" mapstructure:"bath_step_penalty"`
	BudgetOverrunTol   float64 `yaml:"budget_overrun_tolerance" mapstructure:"budget_overrun_tolerance"`

	PriorityRadiusMiles float64 `yaml:"priority_radius_miles" mapstructure:"priority_radius_miles"`
}

// MatchConfig configures the batch match runner.
type MatchConfig struct {
	MinScore    int `yaml:"min_score" mapstructure:"min_score"`
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// CRMConfig holds the external pipeline sync (Salesforce) settings.
type CRMConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	Username     string `yaml:"username" mapstructure:"username"`
	KeyPath      string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL     string `yaml:"login_url" mapstructure:"login_url"`
	StageMapPath string `yaml:"stage_map_path" mapstructure:"stage_map_path"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "dealflow.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("geocode.rate_limit", 2)
	v.SetDefault("geocode.timeout_secs", 30)
	v.SetDefault("scoring.location_weight", 40)
	v.SetDefault("scoring.beds_weight", 25)
	v.SetDefault("scoring.baths_weight", 15)
	v.SetDefault("scoring.budget_weight", 20)
	v.SetDefault("scoring.location_decay_miles", 50)
	v.SetDefault("scoring.bed_step_penalty", 0.25)
	v.SetDefault("scoring.bath_step_penalty", 0.20)
	v.SetDefault("scoring.budget_overrun_tolerance", 0.5)
	v.SetDefault("scoring.priority_radius_miles", 50)
	v.SetDefault("match.min_score", 60)
	v.SetDefault("match.concurrency", 5)
	v.SetDefault("crm.login_url", "https://login.salesforce.com")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
