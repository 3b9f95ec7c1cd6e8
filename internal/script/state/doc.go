/*
Package state holds the mutable data a script run operates on and the
immutable snapshot it produces.

# Overview

Each run owns exactly one Environment, one CookieJar, one test descriptor
tree and one console buffer. Guest code mutates them through bridge
capabilities; nothing outside the run goroutine touches them until the
engine captures a RunResult.

# Snapshot Discipline

All Clone methods produce fully independent deep copies. The capture hook
relies on this: a RunResult must never share a slice or map with live run
state, otherwise a stray continuation can mutate a result a consumer
already holds.
*/
package state
