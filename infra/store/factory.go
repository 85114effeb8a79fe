package store

import "github.com/kilianp07/gridrepair/core/factory"

var registry = factory.NewRegistry[Store]()

func init() {
	registry.MustRegister("none", func(map[string]any) (Store, error) { return NopStore{}, nil })
	registry.MustRegister("jsonl", func(conf map[string]any) (Store, error) {
		var c JSONLConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewRotatingJSONLStore(c)
	})
	registry.MustRegister("sqlite", func(conf map[string]any) (Store, error) {
		var c SQLiteConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c)
	})
}

// New creates the store selected by cfg. An empty type yields a NopStore.
func New(cfg factory.ModuleConfig) (Store, error) {
	if cfg.Type == "" {
		return NopStore{}, nil
	}
	return registry.Create(cfg)
}

// Types lists the registered backends.
func Types() []string { return registry.Names() }
