// Package node wraps a plugin in an executable graph node.
//
// A node owns its execution state, its predecessor and successor edges and
// a reference to the artifact its last run committed. State changes are
// announced synchronously to StateListeners; a listener error aborts the
// run that triggered it and is returned from Run.
//
// State machine:
//
//	unstarted -> executing -> completed
//	                       -> paused -> resumed -> completed   (repairable patterns)
//	any       -> unstarted                                     (Reset)
package node
