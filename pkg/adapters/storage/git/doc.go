// Package git stores artifacts in a git repository on local disk using
// go-git, so the store can be inspected and cloned with standard tools.
package git
