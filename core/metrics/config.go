package metrics

import "github.com/kilianp07/gridrepair/core/factory"

// Config defines settings for metrics sinks. Listen is the address of the
// Prometheus endpoint; empty disables it.
type Config struct {
	Sinks  []factory.ModuleConfig `json:"sinks" koanf:"sinks"`
	Listen string                 `json:"listen" koanf:"listen"`
}
