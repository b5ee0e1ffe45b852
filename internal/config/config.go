package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"backtest-reporter/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Run      RunConfig      `mapstructure:"run"`
	Recorder RecorderConfig `mapstructure:"recorder"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	Report   ReportConfig   `mapstructure:"report"`
	Plot     PlotConfig     `mapstructure:"plot"`
	Simulate SimulateConfig `mapstructure:"simulate"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// RunConfig identifies the backtest run whose streams are written and read.
type RunConfig struct {
	Name      string   `mapstructure:"name"`
	Strategy  string   `mapstructure:"strategy"`
	Tickers   []string `mapstructure:"tickers"`
	OutputDir string   `mapstructure:"output_dir"`
}

// RecorderConfig governs the observation write path.
type RecorderConfig struct {
	FlushThreshold int `mapstructure:"flush_threshold"`
}

// LoaderConfig governs the paginated read path.
type LoaderConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// ReportConfig tunes the analytics pass.
type ReportConfig struct {
	RiskFreeRateAnnual float64 `mapstructure:"risk_free_rate_annual"`
}

// PlotConfig tunes the downsampling stage.
type PlotConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	TargetPoints int `mapstructure:"target_points"`
}

// SimulateConfig drives the synthetic run generator.
type SimulateConfig struct {
	Ticks       int     `mapstructure:"ticks"`
	InitialCash float64 `mapstructure:"initial_cash"`
	Seed        int64   `mapstructure:"seed"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BTREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "btreport")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("run.name", "default")
	v.SetDefault("run.strategy", "manual")
	v.SetDefault("run.output_dir", "reports")

	v.SetDefault("recorder.flush_threshold", 1000)
	v.SetDefault("loader.page_size", 1000)

	v.SetDefault("report.risk_free_rate_annual", 0.0)

	v.SetDefault("plot.chunk_size", 50000)
	v.SetDefault("plot.target_points", 2000)

	v.SetDefault("simulate.ticks", 500)
	v.SetDefault("simulate.initial_cash", 100000.0)
	v.SetDefault("simulate.seed", 1)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Run.Name == "" {
		return fmt.Errorf("run.name must not be empty")
	}
	if c.Run.OutputDir == "" {
		return fmt.Errorf("run.output_dir must not be empty")
	}
	if c.Recorder.FlushThreshold <= 0 {
		return fmt.Errorf("recorder.flush_threshold must be greater than zero")
	}
	if c.Loader.PageSize <= 0 {
		return fmt.Errorf("loader.page_size must be greater than zero")
	}
	if c.Plot.ChunkSize <= 0 {
		return fmt.Errorf("plot.chunk_size must be greater than zero")
	}
	if c.Plot.TargetPoints < 2 {
		return fmt.Errorf("plot.target_points must be at least 2")
	}
	if c.Report.RiskFreeRateAnnual < 0 {
		return fmt.Errorf("report.risk_free_rate_annual cannot be negative")
	}
	if c.Simulate.Ticks <= 0 {
		return fmt.Errorf("simulate.ticks must be greater than zero")
	}
	return nil
}
