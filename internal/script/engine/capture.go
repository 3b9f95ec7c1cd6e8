package engine

import (
	"time"

	"github.com/relayhq/relay/internal/script/bridge"
	"github.com/relayhq/relay/internal/script/sandbox"
	"github.com/relayhq/relay/internal/script/sched"
	"github.com/relayhq/relay/internal/script/state"
)

// capture is the single point that turns live run state into an
// immutable result. Every field is deep-copied: a consumer holding the
// result must never observe a later mutation from a stray continuation.
func capture(runID string, env *state.Environment, jar *state.CookieJar, reg *sched.Registry, rt *sandbox.Runtime, caps *bridge.Capabilities, elapsed time.Duration) *state.RunResult {
	return &state.RunResult{
		RunID:          runID,
		Environment:    env.Clone(),
		Cookies:        jar.All(),
		Tests:          state.CloneTree(reg.Tests()),
		Console:        rt.Console(),
		MutatedRequest: caps.MutatedRequest(),
		Duration:       elapsed,
	}
}
