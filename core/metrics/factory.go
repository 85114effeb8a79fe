package metrics

import "github.com/kilianp07/gridrepair/core/factory"

var sinkRegistry = factory.NewRegistry[PlanSink]()

// RegisterSink adds a sink factory identified by name.
func RegisterSink(name string, f factory.Factory[PlanSink]) error {
	return sinkRegistry.Register(name, f)
}

// SinkTypes lists the registered sink names.
func SinkTypes() []string { return sinkRegistry.Names() }

// NewSink creates a PlanSink from the provided configuration. No
// configuration yields a NopSink and several yield a MultiSink.
func NewSink(cfgs []factory.ModuleConfig) (PlanSink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]PlanSink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
