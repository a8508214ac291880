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
	Fetch   FetchConfig   `yaml:"fetch" mapstructure:"fetch"`
	Build   BuildConfig   `yaml:"build" mapstructure:"build"`
	Combine CombineConfig `yaml:"combine" mapstructure:"combine"`
	Filter  FilterConfig  `yaml:"filter" mapstructure:"filter"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Flatten FlattenConfig `yaml:"flatten" mapstructure:"flatten"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the optional database backend.
// Driver is one of "none", "sqlite" or "postgres".
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	BatchSize   int    `yaml:"batch_size" mapstructure:"batch_size"`
}

// FetchConfig configures quarterly data set downloads from SEC.
type FetchConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	EDGARUserAgent string `yaml:"edgar_user_agent" mapstructure:"edgar_user_agent"`
	TimeoutSecs    int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// BuildConfig configures per-period record construction.
type BuildConfig struct {
	DataDir       string `yaml:"data_dir" mapstructure:"data_dir"`
	OutputDir     string `yaml:"output_dir" mapstructure:"output_dir"`
	TempDir       string `yaml:"temp_dir" mapstructure:"temp_dir"`
	Concurrency   int    `yaml:"concurrency" mapstructure:"concurrency"`
	ReferenceDate string `yaml:"reference_date" mapstructure:"reference_date"` // YYYY-MM-DD; empty = now
}

// CombineConfig configures the cross-period merge.
type CombineConfig struct {
	InputDir  string `yaml:"input_dir" mapstructure:"input_dir"`
	Output    string `yaml:"output" mapstructure:"output"`
	StatsFile string `yaml:"stats_file" mapstructure:"stats_file"`
}

// FilterConfig holds the target-subset predicates.
type FilterConfig struct {
	MinFunding           float64  `yaml:"min_funding" mapstructure:"min_funding"`
	States               []string `yaml:"states" mapstructure:"states"`
	ExcludedPlaceholders []string `yaml:"excluded_placeholders" mapstructure:"excluded_placeholders"`
	ExcludedIndustries   []string `yaml:"excluded_industries" mapstructure:"excluded_industries"`
}

// EnrichConfig configures domain inference.
type EnrichConfig struct {
	MaxPatterns        int    `yaml:"max_patterns" mapstructure:"max_patterns"`
	CheckpointInterval int    `yaml:"checkpoint_interval" mapstructure:"checkpoint_interval"`
	RulesFile          string `yaml:"rules_file" mapstructure:"rules_file"`
}

// FlattenConfig configures the tabular export.
type FlattenConfig struct {
	TopN   int    `yaml:"top_n" mapstructure:"top_n"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MetricsConfig configures the Prometheus textfile written after each stage.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
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
	v.SetEnvPrefix("FORMD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

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

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.batch_size", 2000)
	v.SetDefault("fetch.base_url", "https://www.sec.gov/files/structureddata/data/form-d-data-sets")
	v.SetDefault("fetch.edgar_user_agent", "formd-cli admin@example.com")
	v.SetDefault("fetch.timeout_secs", 300)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("build.data_dir", ".")
	v.SetDefault("build.output_dir", "processed")
	v.SetDefault("build.concurrency", 1)
	v.SetDefault("combine.input_dir", "processed")
	v.SetDefault("combine.output", "sec_companies_master.json")
	v.SetDefault("combine.stats_file", "sec_companies_stats.csv")
	v.SetDefault("filter.min_funding", 1_000_000)
	v.SetDefault("filter.states", []string{"MA", "CA", "NY", "WA", "TX", "IL"})
	v.SetDefault("filter.excluded_placeholders", []string{"X0", "X1", "X2", "X3"})
	v.SetDefault("filter.excluded_industries", []string{
		"real estate", "realty", "property", "reit", "residential",
		"pooled investment", "hedge fund", "private equity", "investment fund",
		"oil", "gas", "petroleum", "energy exploration",
		"agriculture", "farming", "agribusiness",
		"retail", "store", "shopping",
		"construction", "contractor", "building",
		"commercial",
		"restaurant", "food service", "hospitality",
	})
	v.SetDefault("enrich.max_patterns", 5)
	v.SetDefault("enrich.checkpoint_interval", 1000)
	v.SetDefault("flatten.top_n", 100)
	v.SetDefault("flatten.format", "csv")
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
