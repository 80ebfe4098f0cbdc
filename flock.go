// Package flock maps which projects of a TypeScript workspace consume the
// public surface of which libraries.
package flock

// Version is the current flock release.
const Version = "0.1.0"
