// Package config loads runtime settings from defaults, an optional YAML file
// and VTASK_ environment variables.
package config

import (
	"fmt"
	"io"
	"runtime"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/Swind/go-vtask/core"
)

const EnvPrefix = "VTASK"

// Property keys
const (
	PropName            = "name"
	PropCarriers        = "carriers"
	PropHistoryCapacity = "history_capacity"
	PropShutdownTimeout = "shutdown_timeout"
	PropDaemonDefault   = "daemon_default"
	PropLogLevel        = "log.level"

	PropMetricsNamespace    = "metrics.namespace"
	PropMetricsPollInterval = "metrics.poll_interval"
	PropMetricsListen       = "metrics.listen"
)

type MetricsConfig struct {
	Namespace    string
	PollInterval time.Duration
	// Listen is the address serving /metrics; empty disables it.
	Listen string
}

// RuntimeConfig is the resolved configuration of one runtime.
type RuntimeConfig struct {
	Name            string
	Carriers        int
	HistoryCapacity int
	ShutdownTimeout time.Duration
	DaemonDefault   bool
	LogLevel        logrus.Level
	Metrics         MetricsConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(PropName, "vtask")
	v.SetDefault(PropCarriers, runtime.NumCPU())
	v.SetDefault(PropHistoryCapacity, 100)
	v.SetDefault(PropShutdownTimeout, "10s")
	v.SetDefault(PropDaemonDefault, false)
	v.SetDefault(PropLogLevel, "info")
	v.SetDefault(PropMetricsNamespace, "vtask")
	v.SetDefault(PropMetricsPollInterval, "1s")
	v.SetDefault(PropMetricsListen, "")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (YAML) over the defaults. An empty path uses defaults and
// environment only.
func Load(path string) (*RuntimeConfig, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return decode(v)
}

// LoadReader reads YAML from r over the defaults.
func LoadReader(r io.Reader) (*RuntimeConfig, error) {
	v := newViper()
	v.SetConfigType("yml")
	if err := v.ReadConfig(r); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(v)
}

// Default returns the configuration built from defaults and environment.
func Default() *RuntimeConfig {
	cfg, err := decode(newViper())
	if err != nil {
		// Only a malformed environment can fail here
		logrus.WithError(err).Warn("ignoring invalid VTASK_ environment")
		cfg, _ = decode(withoutEnv())
	}
	return cfg
}

func withoutEnv() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// decode coerces loosely typed values and validates them. All problems are
// reported together.
func decode(v *viper.Viper) (*RuntimeConfig, error) {
	var errs *multierror.Error
	cfg := &RuntimeConfig{
		Name: cast.ToString(v.Get(PropName)),
		Metrics: MetricsConfig{
			Namespace: cast.ToString(v.Get(PropMetricsNamespace)),
			Listen:    cast.ToString(v.Get(PropMetricsListen)),
		},
	}

	var err error
	if cfg.Carriers, err = cast.ToIntE(v.Get(PropCarriers)); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", PropCarriers, err))
	} else if cfg.Carriers < 1 {
		errs = multierror.Append(errs, fmt.Errorf("%s: must be at least 1, got %d", PropCarriers, cfg.Carriers))
	}
	if cfg.HistoryCapacity, err = cast.ToIntE(v.Get(PropHistoryCapacity)); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", PropHistoryCapacity, err))
	}
	if cfg.ShutdownTimeout, err = cast.ToDurationE(v.Get(PropShutdownTimeout)); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", PropShutdownTimeout, err))
	}
	if cfg.DaemonDefault, err = cast.ToBoolE(v.Get(PropDaemonDefault)); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", PropDaemonDefault, err))
	}
	if cfg.LogLevel, err = logrus.ParseLevel(cast.ToString(v.Get(PropLogLevel))); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", PropLogLevel, err))
	}
	if cfg.Metrics.PollInterval, err = cast.ToDurationE(v.Get(PropMetricsPollInterval)); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", PropMetricsPollInterval, err))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger returns a logrus logger at the configured level.
func (c *RuntimeConfig) NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(c.LogLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// SchedulerConfig converts c into a core.SchedulerConfig. A nil logger is
// replaced with one built by NewLogger.
func (c *RuntimeConfig) SchedulerConfig(logger core.Logger) *core.SchedulerConfig {
	if logger == nil {
		logger = core.NewLogrusLogger(c.NewLogger())
	}
	cfg := core.DefaultSchedulerConfig()
	cfg.Name = c.Name
	cfg.Carriers = c.Carriers
	cfg.HistoryCapacity = c.HistoryCapacity
	cfg.DaemonByDefault = c.DaemonDefault
	cfg.Logger = logger
	cfg.PanicHandler = &core.DefaultPanicHandler{Logger: logger}
	cfg.RejectedTaskHandler = &core.DefaultRejectedTaskHandler{Logger: logger}
	return cfg
}
