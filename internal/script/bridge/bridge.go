package bridge

import (
	"context"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/relayhq/relay/internal/logging"
	"github.com/relayhq/relay/internal/script/marshal"
	"github.com/relayhq/relay/internal/script/sandbox"
	"github.com/relayhq/relay/internal/script/sched"
	"github.com/relayhq/relay/internal/script/state"
	"github.com/relayhq/relay/internal/script/track"
)

// NetworkExecutor performs the actual HTTP call for a guest fetch. It is
// a stateless collaborator invoked per call; the engine never opens
// sockets itself.
type NetworkExecutor func(ctx context.Context, req *marshal.RequestDescriptor) (*marshal.RawResponse, error)

// UnsupportedPrefix marks errors thrown for deliberately unimplemented
// capabilities so the engine can classify an escaped one.
const UnsupportedPrefix = "unsupported capability: "

// Capabilities wires host functions into one sandbox runtime. One
// instance per run; never shared.
type Capabilities struct {
	rt       *sandbox.Runtime
	env      *state.Environment
	jar      *state.CookieJar
	reg      *sched.Registry
	tracker  *track.Tracker
	executor NetworkExecutor
	logger   *logging.Logger

	runCtx   context.Context
	phase    string
	request  *marshal.RequestDescriptor
	response *marshal.SerializedResponse
	onFetch  func()
}

// Options configures capability installation
type Options struct {
	Runtime     *sandbox.Runtime
	Environment *state.Environment
	Cookies     *state.CookieJar
	Registry    *sched.Registry
	Tracker     *track.Tracker
	Executor    NetworkExecutor
	Logger      *logging.Logger
	Phase       string
	Request     *marshal.RequestDescriptor
	Response    *marshal.SerializedResponse
	OnFetch     func() // optional fetch counter hook
}

// New creates the capability set for one run
func New(opts Options) *Capabilities {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Capabilities{
		rt:       opts.Runtime,
		env:      opts.Environment,
		jar:      opts.Cookies,
		reg:      opts.Registry,
		tracker:  opts.Tracker,
		executor: opts.Executor,
		logger:   logger,
		phase:    opts.Phase,
		request:  opts.Request,
		response: opts.Response,
		onFetch:  opts.OnFetch,
	}
}

// Install binds the __host object, runs the prelude and sets the
// phase-specific globals. ctx bounds every fetch issued by the guest.
func (c *Capabilities) Install(ctx context.Context) error {
	c.runCtx = ctx
	vm := c.rt.VM()

	host := vm.NewObject()
	host.Set("log", c.hostLog)
	host.Set("envGet", c.hostEnvGet)
	host.Set("envSet", c.hostEnvSet)
	host.Set("envUnset", c.hostEnvUnset)
	host.Set("cookieGet", c.hostCookieGet)
	host.Set("cookieSet", c.hostCookieSet)
	host.Set("fetch", c.hostFetch)
	host.Set("registerTest", c.hostRegisterTest)
	host.Set("enterTest", c.hostEnterTest)
	host.Set("leaveTest", c.hostLeaveTest)
	host.Set("trackChain", c.hostTrackChain)
	host.Set("assert", c.hostAssert)
	host.Set("unsupported", c.hostUnsupported)
	if err := vm.Set("__host", host); err != nil {
		return fmt.Errorf("installing host object: %w", err)
	}

	if _, err := vm.RunString(prelude); err != nil {
		return fmt.Errorf("installing prelude: %w", err)
	}

	if c.phase == state.PhasePreRequest && c.request != nil {
		wrap, ok := goja.AssertFunction(vm.Get("__makeRequest"))
		if !ok {
			return fmt.Errorf("prelude did not define __makeRequest")
		}
		req, err := wrap(goja.Undefined(), c.requestObject())
		if err != nil {
			return fmt.Errorf("installing request global: %w", err)
		}
		if err := vm.Set("request", req); err != nil {
			return fmt.Errorf("installing request global: %w", err)
		}
	}
	if c.phase == state.PhaseTest && c.response != nil {
		wrap, ok := goja.AssertFunction(vm.Get("__makeResponse"))
		if !ok {
			return fmt.Errorf("prelude did not define __makeResponse")
		}
		resp, err := wrap(goja.Undefined(), c.responseObject(c.response))
		if err != nil {
			return fmt.Errorf("installing response global: %w", err)
		}
		if err := vm.Set("response", resp); err != nil {
			return fmt.Errorf("installing response global: %w", err)
		}
	}
	return nil
}

// hostLog records one console entry emitted through the bare log()
// capability
func (c *Capabilities) hostLog(message string) {
	c.rt.Append("log", message)
}

func (c *Capabilities) hostEnvGet(scope, key string) goja.Value {
	vm := c.rt.VM()
	if v, ok := c.env.Get(scope, key); ok {
		return vm.ToValue(v)
	}
	return goja.Undefined()
}

func (c *Capabilities) hostEnvSet(scope, key, value string) {
	if !c.env.Set(scope, key, value) {
		panic(c.rt.VM().NewGoError(fmt.Errorf("unknown environment scope %q", scope)))
	}
}

func (c *Capabilities) hostEnvUnset(scope, key string) {
	c.env.Unset(scope, key)
}

func (c *Capabilities) hostCookieGet(name string) goja.Value {
	vm := c.rt.VM()
	if cookie, ok := c.jar.Get(name); ok {
		obj := vm.NewObject()
		obj.Set("name", cookie.Name)
		obj.Set("value", cookie.Value)
		obj.Set("domain", cookie.Domain)
		obj.Set("path", cookie.Path)
		return obj
	}
	return goja.Undefined()
}

func (c *Capabilities) hostCookieSet(name, value string) {
	c.jar.Set(state.Cookie{Name: name, Value: value})
}

func (c *Capabilities) hostRegisterTest(name string) int64 {
	return c.reg.Register(name)
}

func (c *Capabilities) hostEnterTest(id int64) {
	c.reg.Enter(id)
}

func (c *Capabilities) hostLeaveTest(id int64, errMessage goja.Value) {
	msg := ""
	if errMessage != nil && !goja.IsUndefined(errMessage) && !goja.IsNull(errMessage) {
		msg = errMessage.String()
	}
	c.reg.Leave(id, msg)
}

func (c *Capabilities) hostTrackChain(v goja.Value) {
	if p, ok := v.Export().(*goja.Promise); ok {
		c.reg.TrackChain(p)
	}
}

// hostUnsupported throws the descriptive error for a deliberately
// unimplemented capability
func (c *Capabilities) hostUnsupported(name, hint string) {
	msg := UnsupportedPrefix + name
	if hint != "" {
		msg += " (" + hint + ")"
	}
	panic(c.rt.VM().NewGoError(fmt.Errorf("%s", msg)))
}

// IsUnsupported reports whether an escaped guest error came from an
// unsupported-capability stub
func IsUnsupported(err error) bool {
	return err != nil && strings.Contains(err.Error(), UnsupportedPrefix)
}

// requestObject builds the mutable request global for pre-request
// scripts. Plain data only; mutations are read back at capture.
func (c *Capabilities) requestObject() *goja.Object {
	vm := c.rt.VM()
	obj := vm.NewObject()
	obj.Set("method", c.request.Method)
	obj.Set("url", c.request.URL)
	headers := make([]interface{}, 0, len(c.request.Headers))
	for _, h := range c.request.Headers {
		hdr := map[string]interface{}{"name": h.Name, "value": h.Value}
		headers = append(headers, hdr)
	}
	obj.Set("headers", headers)
	obj.Set("body", string(c.request.Body.Content))
	return obj
}

// MutatedRequest exports the request global back into plain data.
// Returns nil when the run had no request global.
func (c *Capabilities) MutatedRequest() *state.MutatedRequest {
	if c.phase != state.PhasePreRequest || c.request == nil {
		return nil
	}
	vm := c.rt.VM()
	raw := vm.Get("request")
	if raw == nil || goja.IsUndefined(raw) || goja.IsNull(raw) {
		return nil
	}
	exported, ok := raw.Export().(map[string]interface{})
	if !ok {
		return nil
	}
	out := &state.MutatedRequest{
		Method: stringField(exported, "method", c.request.Method),
		URL:    stringField(exported, "url", c.request.URL),
		Body:   stringField(exported, "body", ""),
	}
	if hs, ok := exported["headers"].([]interface{}); ok {
		for _, item := range hs {
			h, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			out.Headers = append(out.Headers, state.Header{
				Name:  stringField(h, "name", ""),
				Value: stringField(h, "value", ""),
			})
		}
	}
	return out
}

func stringField(m map[string]interface{}, key, fallback string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return fallback
}
