// Package ports declares the interfaces the engine depends on. Adapters
// under pkg/adapters implement them.
package ports
