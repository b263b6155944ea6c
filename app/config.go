package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/PeladoCollado/stress/types"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ModeThreads   = "threads"
	ModeProcesses = "processes"

	EnvPrefix = "STRESS"
)

type Config struct {
	JobFile string

	Workers   int
	Mode      string
	Processes bool

	NoShuffle bool
	Seed      int64

	TimeoutSeconds int
	ParseJSON      bool
	JSONPath       string
	Head           bool
	Output         bool

	MetricsAddr string

	LogLevel       string
	LogDevelopment bool
}

func DefaultConfig() Config {
	return Config{
		JobFile: "stress.json",

		Workers: 10,
		Mode:    ModeThreads,

		TimeoutSeconds: int(types.DefaultReadTimeout / time.Second),
		JSONPath:       types.DefaultJSONPath,

		LogLevel: "info",
	}
}

func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.JobFile, "file", "f", cfg.JobFile, "Job file (JSON, JSONC or YAML)")

	fs.IntVarP(&cfg.Workers, "workers", "n", cfg.Workers, "Number of concurrent workers")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "Worker mode: threads or processes")
	fs.BoolVarP(&cfg.Processes, "processes", "p", cfg.Processes, "Run workers as processes (same as --mode=processes)")

	fs.BoolVar(&cfg.NoShuffle, "no-shuffle", cfg.NoShuffle, "Keep jobs in file order instead of shuffling")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Shuffle seed; 0 picks one from the clock")

	fs.IntVarP(&cfg.TimeoutSeconds, "timeout", "t", cfg.TimeoutSeconds, "Read timeout for each request in seconds")
	fs.BoolVarP(&cfg.ParseJSON, "json", "j", cfg.ParseJSON, "Parse JSON responses and log the extracted field")
	fs.StringVar(&cfg.JSONPath, "json-path", cfg.JSONPath, "JMESPath expression logged when --json is set")
	fs.BoolVar(&cfg.Head, "head", cfg.Head, "Log the head of each response")
	fs.BoolVar(&cfg.Output, "output", cfg.Output, "Log the full body of each response")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address during the run")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.BoolVar(&cfg.LogDevelopment, "log-dev", cfg.LogDevelopment, "Human friendly development logging")
}

func ParseConfig(args []string) (Config, error) {
	cfg := DefaultConfig()
	fs := pflag.NewFlagSet("stress", pflag.ContinueOnError)
	BindFlags(fs, &cfg)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnvironment fills every flag that was not given on the command line from the
// matching STRESS_ environment variable, e.g. STRESS_NO_SHUFFLE for --no-shuffle.
func ApplyEnvironment(fs *pflag.FlagSet, v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var applyErr error
	fs.VisitAll(func(flag *pflag.Flag) {
		if applyErr != nil || flag.Changed || !v.IsSet(flag.Name) {
			return
		}
		if err := fs.Set(flag.Name, v.GetString(flag.Name)); err != nil {
			applyErr = fmt.Errorf("environment value for --%s: %w", flag.Name, err)
		}
	})
	return applyErr
}

// Normalize folds the processes shortcut into Mode.
func (c Config) Normalize() Config {
	if c.Processes {
		c.Mode = ModeProcesses
	}
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	return c
}

func (c Config) Settings() types.Settings {
	settings := types.DefaultSettings()
	settings.ReadTimeout = time.Duration(c.TimeoutSeconds) * time.Second
	settings.ParseJSON = c.ParseJSON
	if c.JSONPath != "" {
		settings.JSONPath = c.JSONPath
	}
	switch {
	case c.Output:
		settings.Output = types.OutputFull
	case c.Head:
		settings.Output = types.OutputHead
	}
	return settings
}

func ValidateConfig(cfg Config) error {
	if cfg.JobFile == "" {
		return fmt.Errorf("file is required")
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	if cfg.ParseJSON && cfg.JSONPath == "" {
		return fmt.Errorf("json-path is required when json parsing is enabled")
	}
	return nil
}
