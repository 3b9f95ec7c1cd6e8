package sandbox

import (
	"context"
	"time"

	"github.com/dop251/goja"

	"github.com/relayhq/relay/internal/script/state"
)

// Config defines sandbox limits
type Config struct {
	MaxCallStackSize int  // Interpreter call stack depth limit
	EnableConsole    bool // Allow console.log/warn/error/info
}

// DefaultConfig returns the limits used for script runs
func DefaultConfig() Config {
	return Config{
		MaxCallStackSize: 1024,
		EnableConsole:    true,
	}
}

// Runtime wraps a goja VM with security controls and console capture.
// It is single-goroutine: all VM access must happen on the goroutine
// that drives the run.
type Runtime struct {
	vm      *goja.Runtime
	config  Config
	console []state.ConsoleEntry
}

// New creates a fresh hardened runtime
func New(config Config) *Runtime {
	vm := goja.New()

	if config.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStackSize)
	}

	r := &Runtime{
		vm:      vm,
		config:  config,
		console: []state.ConsoleEntry{},
	}
	r.setupGlobals()
	return r
}

// VM exposes the underlying goja runtime for capability installation
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// setupGlobals removes dangerous globals and installs console capture
func (r *Runtime) setupGlobals() {
	// Remove Node-style globals
	r.vm.Set("require", goja.Undefined())
	r.vm.Set("process", goja.Undefined())
	r.vm.Set("module", goja.Undefined())
	r.vm.Set("exports", goja.Undefined())

	// eval and the Function constructor are equivalent escape hatches
	r.vm.Set("eval", goja.Undefined())
	_, _ = r.vm.RunString(`(function() {
		try {
			Object.defineProperty(Function.prototype, 'constructor', {
				value: function() { throw new TypeError('Function constructor is disabled'); },
				writable: false,
				configurable: false
			});
		} catch (e) {}
	})();`)

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		console.Set("log", r.makeConsoleFunc("log"))
		console.Set("warn", r.makeConsoleFunc("warn"))
		console.Set("error", r.makeConsoleFunc("error"))
		console.Set("info", r.makeConsoleFunc("info"))
		r.vm.Set("console", console)
	}
}

// makeConsoleFunc creates one console level function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		var msg string
		for i, arg := range call.Arguments {
			if i > 0 {
				msg += " "
			}
			msg += arg.String()
		}
		r.Append(level, msg)
		return goja.Undefined()
	}
}

// Append records one console entry, preserving emission order
func (r *Runtime) Append(level, message string) {
	r.console = append(r.console, state.ConsoleEntry{
		Level:   level,
		Message: message,
		Time:    time.Now(),
	})
}

// Console returns a copy of the captured entries
func (r *Runtime) Console() []state.ConsoleEntry {
	out := make([]state.ConsoleEntry, len(r.console))
	copy(out, r.console)
	return out
}

// WatchContext interrupts the VM when ctx is done. The returned stop
// function must be called once the run leaves guest code.
func (r *Runtime) WatchContext(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			r.vm.Interrupt(ctx.Err())
		case <-done:
		}
	}()
	return func() { close(done) }
}

// Run executes script source on the VM
func (r *Runtime) Run(src string) (goja.Value, error) {
	return r.vm.RunString(src)
}
