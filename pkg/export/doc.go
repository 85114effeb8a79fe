// Package export writes planning artifacts: CSV and JSON tables under
// timestamped names, and an HTML chart of the work-order phases.
package export
