// Package config provides 12-factor configuration for the relay script
// engine.
//
// Configuration is loaded from environment variables with sensible
// defaults, so an embedded engine works with zero setup and a deployed
// one is tunable without code changes.
//
// Configuration Sections:
//   - Engine: script run timeout, drain grace rounds, call stack limit
//   - HTTP: network executor timeouts, retries and rate limiting
//   - Logging: log level and output format
//   - Server: debug server bind settings
//
// Environment Variables:
//   - RELAY_SCRIPT_TIMEOUT, RELAY_DRAIN_GRACE_ROUNDS, RELAY_MAX_CALL_STACK
//   - RELAY_HTTP_TIMEOUT, RELAY_HTTP_RETRY_MAX, RELAY_HTTP_RATE_RPS
//   - RELAY_LOG_LEVEL, RELAY_LOG_DEV
//   - RELAY_PORT, RELAY_HOST
package config
