// Package config loads the planner configuration from a YAML or JSON file
// with GR_ prefixed environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/gridrepair/core/costs"
	"github.com/kilianp07/gridrepair/core/factory"
	"github.com/kilianp07/gridrepair/core/metrics"
	"github.com/kilianp07/gridrepair/core/workorder"
	"github.com/kilianp07/gridrepair/infra/mqtt"
	"github.com/kilianp07/gridrepair/infra/store"
)

// EnvPrefix marks environment overrides. A double underscore separates
// levels: GR_HOSPITAL__GENERATOR_HOURS=24.
const EnvPrefix = "GR_"

type Config struct {
	Inputs   InputsConfig         `json:"inputs"`
	Output   OutputConfig         `json:"output"`
	Costs    costs.Table          `json:"costs"`
	Hospital workorder.Budget     `json:"hospital"`
	Phases   workorder.Thresholds `json:"phases"`
	Store    factory.ModuleConfig `json:"store"`
	Metrics  metrics.Config       `json:"metrics"`
	MQTT     mqtt.Config          `json:"mqtt"`
	API      APIConfig            `json:"api"`
	Sentry   SentryConfig         `json:"sentry"`
	Logging  LoggingConfig        `json:"logging"`
}

// Load reads path, applies environment overrides, then the costs sheet named
// by inputs.costs, and finally defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := cfg.applyCostSheet(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// applyCostSheet overlays a standalone costs file. Its hospital section is
// only used when the main file has none.
func (c *Config) applyCostSheet() error {
	if c.Inputs.Costs == "" {
		return nil
	}
	sheet, err := costs.LoadSheet(c.Inputs.Costs)
	if err != nil {
		return err
	}
	c.Costs = sheet.Table
	if c.Hospital == (workorder.Budget{}) {
		c.Hospital = sheet.Hospital
	}
	return nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Output.SetDefaults()
	c.Costs.SetDefaults()
	if c.Hospital == (workorder.Budget{}) {
		c.Hospital = DefaultHospital()
	}
	c.Phases.SetDefaults()
	if c.Store.Type == "" {
		c.Store = factory.ModuleConfig{
			Type: "jsonl",
			Conf: map[string]any{"path": filepath.Join(c.Output.OutputsDir, "runs.jsonl")},
		}
	}
	c.MQTT.SetDefaults()
	c.API.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Inputs.Validate(); err != nil {
		return err
	}
	if err := c.Costs.Validate(); err != nil {
		return fmt.Errorf("costs: %w", err)
	}
	if err := c.Hospital.Validate(); err != nil {
		return fmt.Errorf("hospital: %w", err)
	}
	if err := c.Phases.Validate(); err != nil {
		return fmt.Errorf("phases: %w", err)
	}
	if !contains(store.Types(), c.Store.Type) {
		return fmt.Errorf("store: unknown backend %q", c.Store.Type)
	}
	for i, s := range c.Metrics.Sinks {
		if s.Type == "" {
			return fmt.Errorf("metrics: sink %d has no type", i)
		}
	}
	if err := c.MQTT.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// DefaultHospital is a 20 hour generator with a 20% safety margin.
func DefaultHospital() workorder.Budget {
	return workorder.Budget{GeneratorHours: 20, Margin: 0.2}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
