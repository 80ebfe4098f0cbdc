// Package report renders the result of a dependency run.
//
// WriteGraph emits the machine-readable graph consumed by force-directed
// graph viewers; WriteConsole prints the per-symbol usage summary.
package report
