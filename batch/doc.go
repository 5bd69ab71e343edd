// Package batch binds cron-style triggers to uniquely identified,
// parameterized recurring jobs.
//
// A JobDefinitionBuilder freezes a job's name and typed parameter set into
// an immutable JobDefinition; a TriggerBinder pairs a definition with a
// cron expression into an immutable TriggerBinding for the scheduler to
// register. On every firing a Materializer derives a fresh ExecutionRequest
// whose key the downstream idempotent execution engine treats as novel, so
// recurring firings are never silently discarded as duplicates.
//
// All validation is synchronous: a Build call either yields a fully valid
// immutable value or fails with a sentinel error and no side effect.
package batch
