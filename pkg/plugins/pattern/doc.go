// Package pattern holds the built-in data-quality patterns.
//
// A pattern detects an imperfection and returns the offending items as a
// table. Repairable patterns pause their node so the detected table can be
// reviewed before Repair is applied to the master table.
package pattern
