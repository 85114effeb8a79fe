// Package infra holds the adapters around the planner core: table ingestion,
// run storage, MQTT crew dispatch, metrics exporters, Sentry and zerolog.
// They depend on the interfaces of the core packages, never the reverse.
package infra
