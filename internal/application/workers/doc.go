// Package workers implements the pool that executes runner commands
// asynchronously.
//
// The worker pool manages a fixed number of goroutines that:
//   - Drain a bounded queue fed by Submit and by command events published
//     on ports.CommandTopic
//   - Execute each command through an Executor (the workspace manager)
//   - Publish command.completed / command.failed on the graph topic
//
// The health monitor tracks worker status and logs metrics.
package workers
