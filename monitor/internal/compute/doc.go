// Package compute turns fetched snapshots into connectivity verdicts and
// transition events.
//
// evaluate.go: Evaluate applies the handshake-timeout rule to the monitored
// peers of one snapshot. Pure; now is passed explicitly.
//
// transition.go: Detect diffs two verdict sets. A nil previous set is the
// baseline case and never yields events.
//
// escalate.go: EscalationState counts consecutive fetch failures and emits
// api_unavailable once at the threshold, then api_recovered on the next
// success.
package compute
