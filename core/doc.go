// Package core contains the shared value types and leaf interfaces of the
// session orchestration engine: finalized turns, session results, and the
// per-agent memory capability. Higher-level packages (agent, environment,
// session) depend on core; core depends on nothing inside the module so that
// store and provider implementations can be swapped without import cycles.
package core
