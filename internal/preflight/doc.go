// Package preflight provides readiness checks for the external tools,
// services, and filesystem paths that podtenuki depends on.
//
// The CLI "podtenuki check" command runs RunAll and renders the results as a
// table. Service checks are skipped when their credentials are absent so a
// partially configured install still reports what it can.
package preflight
