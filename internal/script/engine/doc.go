/*
Package engine composes the sandbox, bridge, tracker and scheduler into
one script invocation.

# State Machine

A run moves through created → running → draining_async → capturing →
finalized. The synchronous body executes in running; draining_async
awaits the async tracker and the test chain together; the capture hook
fires exactly once and produces a fully independent RunResult.

# Lifetime

The interpreter context is released only by ordinary garbage collection
once the run's goroutine drops it. It is never disposed explicitly while
a returned value might still be referenced.

# Failure Surface

Callers always receive either a complete RunResult (possibly containing
failed assertions) or a ScriptFailure carrying best-effort partial test
data. On timeout no RunResult is ever emitted.
*/
package engine
