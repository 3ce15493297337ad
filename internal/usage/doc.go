// Package usage accumulates metered API usage (tokens, audio minutes) and
// turns it into an estimated cost report.
//
// A Tracker is created once per process and passed explicitly to every client
// that consumes metered services. Recording never fails the caller; malformed
// samples are logged and skipped. Nothing is persisted across runs.
package usage
