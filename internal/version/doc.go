// Package version exposes build metadata for lastapp.
//
// Version, Commit and BuildTime are injected with -ldflags at build time.
package version
