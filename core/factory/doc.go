// Package factory is a generic registry of named constructors. A module is
// selected by a type string and built from a map of raw settings decoded
// into a typed struct, so metric sinks and run stores can be picked from
// configuration.
//
//	reg := factory.NewRegistry[store.Store]()
//	_ = reg.Register("jsonl", func(conf map[string]any) (store.Store, error) {
//		var c store.JSONLConfig
//		if err := factory.Decode(conf, &c); err != nil {
//			return nil, err
//		}
//		return store.NewJSONL(c)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "runs.jsonl"}})
package factory
