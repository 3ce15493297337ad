// Package episode holds the per-run state the pipeline threads through its
// stages: the inputs, the working audio file, and what each stage produced.
package episode
