package bridge

import (
	"fmt"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/relayhq/relay/internal/script/marshal"
)

// hostFetch issues one tracked network call and returns a promise for
// its boundary-safe response. Independently invokable any number of
// times per script; each call registers its own handle with the tracker
// and settles on the run goroutine.
func (c *Capabilities) hostFetch(call goja.FunctionCall) goja.Value {
	vm := c.rt.VM()

	if c.executor == nil {
		panic(vm.NewGoError(fmt.Errorf("%sfetch (no network executor supplied)", UnsupportedPrefix)))
	}

	if c.onFetch != nil {
		c.onFetch()
	}

	url := call.Argument(0).String()
	options := exportFetchOptions(call.Argument(1))

	promise, resolve, reject := vm.NewPromise()

	desc, err := marshal.ToNetworkRequest(url, options)
	if err != nil {
		reject(vm.NewGoError(err))
		return vm.ToValue(promise)
	}

	c.logger.Debug("script fetch issued",
		zap.String("method", desc.Method),
		zap.String("url", desc.URL),
	)

	handle := c.tracker.Register()
	ctx := c.runCtx
	go func() {
		raw, err := c.executor(ctx, desc)
		handle.Settle(func() {
			if err != nil {
				reject(vm.NewGoError(fmt.Errorf("fetch %s %s: %w", desc.Method, desc.URL, err)))
				return
			}
			resolve(c.responseObject(marshal.ToSerializedResponse(raw)))
		})
	}()

	return vm.ToValue(promise)
}

// exportFetchOptions flattens guest fetch options into plain Go data.
// ArrayBuffer bodies become byte slices; anything else is handed to the
// marshaler as-is.
func exportFetchOptions(v goja.Value) map[string]interface{} {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	exported, ok := v.Export().(map[string]interface{})
	if !ok {
		return nil
	}
	if body, ok := exported["body"].(goja.ArrayBuffer); ok {
		exported["body"] = body.Bytes()
	}
	return exported
}

// responseObject converts a serialized response into the plain data
// shape the prelude's __makeResponse wraps. Each call builds independent
// values; nothing aliases marshaler internals.
func (c *Capabilities) responseObject(sr *marshal.SerializedResponse) *goja.Object {
	vm := c.rt.VM()
	obj := vm.NewObject()
	obj.Set("status", sr.Status)
	obj.Set("statusText", sr.StatusText)

	headers := make([]interface{}, 0, len(sr.Headers))
	for _, h := range sr.Headers {
		entry := vm.NewObject()
		entry.Set("name", h.Name)
		entry.Set("value", h.Value)
		headers = append(headers, entry)
	}
	obj.Set("headers", vm.NewArray(headers...))

	obj.Set("bodyText", sr.Text())
	obj.Set("body", vm.NewArrayBuffer(sr.Bytes()))
	return obj
}
