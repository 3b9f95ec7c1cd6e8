package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/relay/internal/script/state"
)

func TestRegistrationOrderPreserved(t *testing.T) {
	reg := NewRegistry()
	reg.Register("first")
	reg.Register("second")
	reg.Register("third")

	tests := reg.Tests()
	require.Len(t, tests, 3)
	assert.Equal(t, "first", tests[0].Name)
	assert.Equal(t, "second", tests[1].Name)
	assert.Equal(t, "third", tests[2].Name)
}

func TestNestedRegistrationAttachesToActive(t *testing.T) {
	reg := NewRegistry()
	outer := reg.Register("outer")
	reg.Enter(outer)
	reg.Register("inner")
	reg.Leave(outer, "")

	tests := reg.Tests()
	require.Len(t, tests, 1)
	require.Len(t, tests[0].Children, 1)
	assert.Equal(t, "inner", tests[0].Children[0].Name)
}

func TestOutcomesRecordOnActive(t *testing.T) {
	reg := NewRegistry()
	id := reg.Register("status")
	reg.Enter(id)
	reg.Record(state.StatusPass, "200 eq 200")
	reg.Record(state.StatusFail, "body contains error")
	reg.Leave(id, "")

	tests := reg.Tests()
	require.Len(t, tests[0].Outcomes, 2)
}

func TestLeaveWithErrorRecordsFailureAndFreezes(t *testing.T) {
	reg := NewRegistry()
	id := reg.Register("throws")
	reg.Enter(id)
	reg.Leave(id, "boom")

	tests := reg.Tests()
	require.Len(t, tests[0].Outcomes, 1)
	assert.Equal(t, state.StatusFail, tests[0].Outcomes[0].Status)
	assert.Equal(t, "boom", tests[0].Outcomes[0].Message)
	assert.True(t, tests[0].Frozen())

	// Frozen: nothing can append anymore
	tests[0].Record(state.StatusPass, "late")
	assert.Len(t, reg.Tests()[0].Outcomes, 1)
}

func TestAssertionsOutsideTestsSurfaceAsImplicitEntry(t *testing.T) {
	reg := NewRegistry()
	reg.Record(state.StatusFail, "top-level assertion")
	reg.Register("real test")

	tests := reg.Tests()
	require.Len(t, tests, 2)
	assert.Equal(t, RootName, tests[0].Name)
	assert.Equal(t, "real test", tests[1].Name)
}

func TestChainSettledDefaultsTrue(t *testing.T) {
	reg := NewRegistry()
	assert.True(t, reg.ChainSettled(), "no registered test means nothing to wait for")
}
