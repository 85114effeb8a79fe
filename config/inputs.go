package config

import (
	"errors"
	"path/filepath"
)

// InputsConfig names the source tables. Only the network sheet is
// mandatory.
type InputsConfig struct {
	Network   string `json:"network"`
	Buildings string `json:"buildings"`
	Infra     string `json:"infra"`
	Works     string `json:"works"`
	// Costs is an optional standalone costs YAML overriding the costs section.
	Costs string `json:"costs"`
}

// Validate checks mandatory fields.
func (c InputsConfig) Validate() error {
	if c.Network == "" {
		return errors.New("inputs: network is required")
	}
	return nil
}

// Paths returns the configured inputs keyed by role, for run records.
func (c InputsConfig) Paths() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		"network":   c.Network,
		"buildings": c.Buildings,
		"infra":     c.Infra,
		"works":     c.Works,
		"costs":     c.Costs,
	} {
		if v != "" {
			out[k] = filepath.Clean(v)
		}
	}
	return out
}

// OutputConfig places the exported files.
type OutputConfig struct {
	StagingDir string `json:"staging_dir"`
	OutputsDir string `json:"outputs_dir"`
	// Timestamp appends the run time to file names. Defaults to true.
	Timestamp *bool `json:"timestamp"`
	// Chart writes an HTML phase chart next to the work orders.
	Chart bool `json:"chart"`
}

// SetDefaults applies the staging and outputs directories of the working
// directory.
func (c *OutputConfig) SetDefaults() {
	if c.StagingDir == "" {
		c.StagingDir = "staging"
	}
	if c.OutputsDir == "" {
		c.OutputsDir = "outputs"
	}
	if c.Timestamp == nil {
		t := true
		c.Timestamp = &t
	}
}

// Stamped reports whether file names carry a timestamp.
func (c OutputConfig) Stamped() bool { return c.Timestamp == nil || *c.Timestamp }
