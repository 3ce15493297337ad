// Package main hosts the podtenuki CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the full episode pipeline, the single
// stage commands, preset listing, preflight checks, and configuration
// scaffolding. It centralizes configuration resolution, client wiring, and
// structured logging setup so subcommands can focus on user experience.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
