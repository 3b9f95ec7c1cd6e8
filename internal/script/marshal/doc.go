/*
Package marshal converts host network primitives to and from boundary-safe
plain data.

This is the single point where responses and requests cross the sandbox
boundary. The contract is strict: every output field is self-contained.
Bodies are fully drained into memory, headers are copied into ordered
pairs, and nothing returned here holds a lazy reference into transport
internals. A SerializedResponse handed to the guest stays valid for the
whole run regardless of what the transport does afterwards.
*/
package marshal
