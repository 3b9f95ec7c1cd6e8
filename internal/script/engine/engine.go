package engine

import (
	"context"
	"errors"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relayhq/relay/internal/config"
	"github.com/relayhq/relay/internal/logging"
	"github.com/relayhq/relay/internal/monitoring"
	"github.com/relayhq/relay/internal/script/bridge"
	"github.com/relayhq/relay/internal/script/marshal"
	"github.com/relayhq/relay/internal/script/sandbox"
	"github.com/relayhq/relay/internal/script/sched"
	"github.com/relayhq/relay/internal/script/state"
	"github.com/relayhq/relay/internal/script/track"
)

// Run states, in order
const (
	stateCreated   = "created"
	stateRunning   = "running"
	stateDraining  = "draining_async"
	stateCapturing = "capturing"
	stateFinalized = "finalized"
)

// Engine runs untrusted scripts against a request/response context.
// Safe for concurrent use; each Run builds its own isolated context.
type Engine struct {
	cfg     config.EngineConfig
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// New creates an engine. metrics may be nil.
func New(cfg config.EngineConfig, logger *logging.Logger, metrics *monitoring.Metrics) *Engine {
	if logger == nil {
		logger = logging.NewDefault()
	}
	return &Engine{cfg: cfg, logger: logger.Named("engine"), metrics: metrics}
}

// Invocation is one script run's input. Environment and Cookies are
// snapshotted at start; the caller's copies are never mutated.
type Invocation struct {
	Source      string
	Phase       string // state.PhasePreRequest or state.PhaseTest
	Request     *marshal.RequestDescriptor
	Response    *marshal.RawResponse
	Environment *state.Environment
	Cookies     []state.Cookie
	Executor    bridge.NetworkExecutor
}

// Run executes one script. It returns a complete RunResult or an error;
// when the run itself failed the error is a *state.ScriptFailure with
// best-effort partial test data.
func (e *Engine) Run(ctx context.Context, inv Invocation) (*state.RunResult, error) {
	phase := inv.Phase
	if phase == "" {
		phase = state.PhaseTest
	}
	runID := uuid.NewString()
	logger := e.logger.With(zap.String("run_id", runID), zap.String("phase", phase))
	start := time.Now()

	if e.metrics != nil {
		e.metrics.ActiveRuns.Inc()
		defer e.metrics.ActiveRuns.Dec()
	}

	timeout := e.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// created: fresh context, capabilities installed on initial snapshots
	logger.Debug("run state", zap.String("state", stateCreated))
	rt := sandbox.New(sandbox.Config{
		MaxCallStackSize: e.cfg.MaxCallStack,
		EnableConsole:    true,
	})
	env := inv.Environment.Clone()
	jar := state.NewCookieJar(inv.Cookies)
	reg := sched.NewRegistry()
	tracker := track.New()

	var initialResp *marshal.SerializedResponse
	if inv.Response != nil {
		initialResp = marshal.ToSerializedResponse(inv.Response)
	}

	caps := bridge.New(bridge.Options{
		Runtime:     rt,
		Environment: env,
		Cookies:     jar,
		Registry:    reg,
		Tracker:     tracker,
		Executor:    inv.Executor,
		Logger:      logger,
		Phase:       phase,
		Request:     inv.Request,
		Response:    initialResp,
		OnFetch:     e.countFetch,
	})
	if err := caps.Install(ctx); err != nil {
		return nil, e.fail(logger, phase, start, &state.ScriptFailure{
			Kind:    state.FailureScriptError,
			Message: err.Error(),
		})
	}

	rejections := watchRejections(rt.VM())

	// running: the guest's synchronous body registers tests, mutates
	// state and issues fetches
	logger.Debug("run state", zap.String("state", stateRunning))
	// The watch spans running and draining: a continuation applied
	// during the drain runs guest code too and must honor the timeout
	stop := rt.WatchContext(ctx)
	defer stop()
	_, runErr := rt.Run(inv.Source)
	if runErr != nil {
		return nil, e.fail(logger, phase, start, classify(ctx, runErr, reg))
	}

	// draining_async: await the tracker and the test chain together
	logger.Debug("run state", zap.String("state", stateDraining))
	if err := drainGuest(ctx, tracker, reg, e.cfg.DrainGraceRounds); err != nil {
		// Timeout abandons the pending chain; no partial RunResult
		return nil, e.fail(logger, phase, start, &state.ScriptFailure{
			Kind:         state.FailureTimeout,
			Message:      "script run exceeded its timeout: " + err.Error(),
			PartialTests: state.CloneTree(reg.Tests()),
		})
	}

	// Rejections nothing ever handled land on the implicit root entry
	for _, msg := range rejections.unhandled() {
		reg.Record(state.StatusFail, "unhandled rejection: "+msg)
	}

	// capturing: the capture hook fires exactly once
	logger.Debug("run state", zap.String("state", stateCapturing))
	result := capture(runID, env, jar, reg, rt, caps, time.Since(start))

	// finalized
	logger.Info("run complete",
		zap.String("state", stateFinalized),
		zap.Int("tests", len(result.Tests)),
		zap.Duration("duration", result.Duration),
	)
	e.observe(phase, "ok", start, result)
	return result, nil
}

func (e *Engine) countFetch() {
	if e.metrics != nil {
		e.metrics.FetchesTotal.Inc()
	}
}

func (e *Engine) fail(logger *logging.Logger, phase string, start time.Time, f *state.ScriptFailure) *state.ScriptFailure {
	logger.Warn("run failed",
		zap.String("kind", f.Kind),
		zap.String("error", f.Message),
	)
	if e.metrics != nil {
		e.metrics.ObserveRun(phase, f.Kind, time.Since(start))
	}
	return f
}

func (e *Engine) observe(phase, outcome string, start time.Time, result *state.RunResult) {
	if e.metrics == nil {
		return
	}
	e.metrics.ObserveRun(phase, outcome, time.Since(start))
	var count func(tests []*state.TestDescriptor)
	count = func(tests []*state.TestDescriptor) {
		for _, t := range tests {
			for _, o := range t.Outcomes {
				e.metrics.TestOutcomes.WithLabelValues(o.Status).Inc()
			}
			count(t.Children)
		}
	}
	count(result.Tests)
}

// drainGuest runs the tracker drain, converting a VM interrupt raised
// inside an applied continuation into the context error
func drainGuest(ctx context.Context, tracker *track.Tracker, reg *sched.Registry, graceRounds int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(*goja.InterruptedError); ok && ctx.Err() != nil {
				err = ctx.Err()
				return
			}
			panic(r)
		}
	}()
	return tracker.Drain(ctx, reg.ChainSettled, graceRounds)
}

// classify maps an escaped guest error to its failure kind
func classify(ctx context.Context, err error, reg *sched.Registry) *state.ScriptFailure {
	partial := state.CloneTree(reg.Tests())

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) && ctx.Err() != nil {
		return &state.ScriptFailure{
			Kind:         state.FailureTimeout,
			Message:      "script run exceeded its timeout",
			PartialTests: partial,
		}
	}
	if bridge.IsUnsupported(err) {
		return &state.ScriptFailure{
			Kind:         state.FailureUnsupportedFeature,
			Message:      exceptionMessage(err),
			PartialTests: partial,
		}
	}
	return &state.ScriptFailure{
		Kind:         state.FailureScriptError,
		Message:      exceptionMessage(err),
		PartialTests: partial,
	}
}

func exceptionMessage(err error) string {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ex.Value().String()
	}
	return err.Error()
}

// rejectionWatch tracks promise rejections that never gained a handler
type rejectionWatch struct {
	pending map[*goja.Promise]string
}

func watchRejections(vm *goja.Runtime) *rejectionWatch {
	w := &rejectionWatch{pending: map[*goja.Promise]string{}}
	vm.SetPromiseRejectionTracker(func(p *goja.Promise, op goja.PromiseRejectionOperation) {
		switch op {
		case goja.PromiseRejectionReject:
			msg := ""
			if res := p.Result(); res != nil {
				msg = res.String()
			}
			w.pending[p] = msg
		case goja.PromiseRejectionHandle:
			delete(w.pending, p)
		}
	})
	return w
}

func (w *rejectionWatch) unhandled() []string {
	out := make([]string, 0, len(w.pending))
	for _, msg := range w.pending {
		out = append(out, msg)
	}
	return out
}
