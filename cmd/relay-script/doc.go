// Command relay-script runs a pre-request or test script against an HTTP
// context described by a YAML scenario file, or serves the engine over
// HTTP for local debugging.
//
// Usage:
//
//	relay-script -scenario request.yaml script.js
//	relay-script -serve
package main
