// Package events provides event bus implementations.
//
// Implementations:
//   - memory: synchronous in-process delivery, plus the typed Bus used by
//     graphs and runners
//   - redis: Redis Streams, one stream per topic
package events
