// Package types defines the shared data model of the monitor: interface and
// peer snapshots produced by the fetcher, the verdict set derived from them,
// transition events, and the per-tick report handed to observers.
//
// These are plain values. Snapshots are never mutated after construction and
// VerdictSet is compared structurally.
package types
