package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// DSTConfig holds the settings for the statistics-reporting export:
// the reporting municipality and which sections are reported.
type DSTConfig struct {
	MunicipalityCPR string `mapstructure:"municipalityCpr"`
	MunicipalityID  string `mapstructure:"municipalityId"`
	TestMode        bool   `mapstructure:"testMode"`
}

func DefaultDSTConfig() DSTConfig {
	return DSTConfig{
		MunicipalityCPR: "0000000000",
		MunicipalityID:  "000",
		TestMode:        true,
	}
}

// DSTConfigHolder exposes the current DST export config and hot-reloads it
// when the backing file changes.
type DSTConfigHolder struct {
	current atomic.Value // holds DSTConfig
}

func NewDSTConfigHolder() (*DSTConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("dst")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/caseflow/config") // Volume-mounted config
	v.AddConfigPath("/etc/caseflow")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("CASEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultDSTConfig()
		v.SetDefault("dst.municipalityCpr", defaults.MunicipalityCPR)
		v.SetDefault("dst.municipalityId", defaults.MunicipalityID)
		v.SetDefault("dst.testMode", defaults.TestMode)
	}

	var cfg DSTConfig
	if err := v.UnmarshalKey("dst", &cfg); err != nil {
		return nil, err
	}
	if err := validateDSTConfig(cfg); err != nil {
		return nil, err
	}

	holder := &DSTConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DSTConfig
		if err := v.UnmarshalKey("dst", &updated); err != nil {
			log.Printf("[dst-config] reload failed: %v", err)
			return
		}
		if err := validateDSTConfig(updated); err != nil {
			log.Printf("[dst-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[dst-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *DSTConfigHolder) Get() DSTConfig {
	return h.current.Load().(DSTConfig)
}

// NewStaticDSTConfigHolder returns a holder pinned to cfg. Used by tests and
// callers that do not read from disk.
func NewStaticDSTConfigHolder(cfg DSTConfig) *DSTConfigHolder {
	holder := &DSTConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func validateDSTConfig(cfg DSTConfig) error {
	if cfg.MunicipalityID == "" {
		return errors.New("dst.municipalityId cannot be empty")
	}
	return nil
}
