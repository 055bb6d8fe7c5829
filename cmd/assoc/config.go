package main

import (
	"errors"
	"fmt"
	"strings"

	assoc "github.com/goliatone/go-assoc"
	"github.com/goliatone/go-assoc/pkg/activity"
	"github.com/spf13/viper"
)

// Config is the decoded CLI configuration. Every key can be set in
// assoc.yaml, through ASSOC_<KEY> environment variables, or by flag.
type Config struct {
	Schema    string          `mapstructure:"schema"`
	Evaluator string          `mapstructure:"evaluator"`
	Verbosity int             `mapstructure:"verbosity"`
	Store     StoreConfig     `mapstructure:"store"`
	Activity  activity.Config `mapstructure:"activity"`
}

// StoreConfig selects the persistence backend used by save and fetch.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	Addr   string `mapstructure:"addr"`
	Prefix string `mapstructure:"prefix"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("schema", "schema.yaml")
	v.SetDefault("evaluator", "expr")
	v.SetDefault("verbosity", 0)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.path", "assoc.db")
	v.SetDefault("store.addr", "localhost:6379")
	v.SetDefault("store.prefix", "")
	v.SetDefault("activity.enabled", false)
	v.SetDefault("activity.channel", activity.DefaultChannel)
}

func loadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	setDefaults(v)
	v.SetEnvPrefix("ASSOC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("assoc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	switch cfg.Evaluator {
	case "expr", "cel":
	case "js":
		if !assoc.JSEvaluatorAvailable() {
			return Config{}, fmt.Errorf("evaluator js requires a build with the js_eval tag")
		}
	default:
		return Config{}, fmt.Errorf("unknown evaluator %q", cfg.Evaluator)
	}
	return cfg, nil
}
