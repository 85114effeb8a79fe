// Package ingest reads the network, building, infrastructure and works
// tables (CSV or Excel), normalizes their column names and joins them into
// the rows consumed by the planner.
package ingest
