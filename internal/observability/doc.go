// Package observability builds the structured zap logger shared by the
// binaries: JSON or console encoding, optionally teed into a size-rotated
// log file.
package observability
