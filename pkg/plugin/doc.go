// Package plugin defines the contract between the engine and the
// processing steps it runs.
//
// A plugin describes itself with a Descriptor, exposes its configuration as
// Options and implements exactly one of the variant interfaces:
//   - Reader: loads a table from a source
//   - Writer: sends a table to a sink
//   - Action: transforms its input tables into one output table
//   - Pattern: detects an imperfection and optionally repairs it
//
// Plugins are constructed by name through an explicit Registry.
package plugin
