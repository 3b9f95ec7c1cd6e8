/*
Package sandbox provides the isolated JavaScript runtime a script run
executes in.

# Overview

Each run gets a fresh goja VM with:

  - A bounded call stack (interpreter-level recursion limit)
  - Node-style globals removed (require, process, module, exports)
  - eval and the Function constructor disabled
  - Console capture into an ordered entry list
  - Interrupt-based cancellation tied to the caller's context

# Security Model

Sandboxed code cannot touch the filesystem or network directly, spawn
processes, or reach host internals. Every host interaction goes through
the bridge capabilities installed on top of this runtime.

# Lifetime

A Runtime is never pooled or reused across runs. Values the guest created
may outlive the run inside a captured closure, so the VM is released by
ordinary garbage collection, never an explicit teardown.
*/
package sandbox
