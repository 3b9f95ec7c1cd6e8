/*
Package server exposes the script engine over HTTP for local debugging.

Endpoints:

  - GET  /health: liveness probe
  - GET  /metrics: Prometheus metrics for script runs
  - POST /run: execute a script against a supplied context

The debug server is a development convenience; embedding applications
call the engine package directly.
*/
package server
