// Package swarm provides HiveOps' incident triage core. It defines the
// diagnostic Agents, the Orchestrator (concurrent fan-out, barrier join and
// rule-based synthesis), the AuditGate that judges whether a verdict can be
// acted on autonomously, and the Service that wraps a triage run with IDs,
// metrics and escalation.
package swarm
