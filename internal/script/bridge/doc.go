/*
Package bridge installs the host capability surface into a fresh sandbox
runtime.

# Capabilities

Per run, the guest sees: log, console.*, env.get/set/unset,
cookies.get/set, fetch(url, options), test(name, body),
assert(actual, matcher, expected), a mutable request object during the
pre-request phase and a response object during the test phase.

Raw host functions live on a hidden __host object; a JavaScript prelude
assembles the public API over them. The prelude also owns the sequential
test scheduler's promise chain: each test() call appends its body to one
running chain at registration time, so no guest callable is ever stored
for invocation from an unrelated tick.

# Error Policy

assert records and never throws. A body that throws produces one failing
outcome and the chain moves on. Deliberately unimplemented legacy APIs
(XMLHttpRequest, timers) throw descriptive errors at the call site.
*/
package bridge
