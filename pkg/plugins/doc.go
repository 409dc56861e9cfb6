// Package plugins collects the built-in processing steps.
//
// Subpackages:
//   - csvio: delimited file reader and writer
//   - sqlio: SQL query reader (MySQL, SQLite)
//   - action: select, union and project
//   - pattern: distorted labels, missing values, duplicate rows
//   - builtin: registers all of the above on a plugin.Registry
package plugins
