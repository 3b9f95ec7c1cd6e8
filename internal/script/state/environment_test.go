package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvironmentScopes(t *testing.T) {
	env := NewEnvironment()

	t.Run("set and get per scope", func(t *testing.T) {
		require.True(t, env.Set(ScopeGlobal, "base_url", "https://api.example.com"))
		require.True(t, env.Set(ScopeSelected, "token", "abc"))

		v, ok := env.Get(ScopeGlobal, "base_url")
		assert.True(t, ok)
		assert.Equal(t, "https://api.example.com", v)

		_, ok = env.Get(ScopeGlobal, "token")
		assert.False(t, ok)
	})

	t.Run("selected shadows global on scopeless reads", func(t *testing.T) {
		env.Set(ScopeGlobal, "shared", "from-global")
		env.Set(ScopeSelected, "shared", "from-selected")

		v, ok := env.Get("", "shared")
		assert.True(t, ok)
		assert.Equal(t, "from-selected", v)
	})

	t.Run("unknown scope rejected", func(t *testing.T) {
		assert.False(t, env.Set("session", "k", "v"))
		_, ok := env.Get("session", "k")
		assert.False(t, ok)
	})
}

func TestEnvironmentOrderAndUniqueness(t *testing.T) {
	env := NewEnvironment()
	env.Set(ScopeSelected, "a", "1")
	env.Set(ScopeSelected, "b", "2")
	env.Set(ScopeSelected, "a", "3") // overwrite keeps position

	require.Len(t, env.Selected, 2)
	assert.Equal(t, "a", env.Selected[0].Key)
	assert.Equal(t, "3", env.Selected[0].Value)
	assert.Equal(t, "b", env.Selected[1].Key)
}

func TestEnvironmentUnset(t *testing.T) {
	env := NewEnvironment()
	env.Set(ScopeGlobal, "k", "v")
	env.Set(ScopeSelected, "k", "v2")

	assert.True(t, env.Unset("", "k"))
	_, ok := env.Get("", "k")
	assert.False(t, ok)
	assert.False(t, env.Unset(ScopeGlobal, "k"))
}

func TestEnvironmentCloneIndependence(t *testing.T) {
	env := NewEnvironment()
	env.Set(ScopeGlobal, "k", "original")

	clone := env.Clone()
	env.Set(ScopeGlobal, "k", "mutated")
	env.Set(ScopeSelected, "new", "entry")

	v, ok := clone.Get(ScopeGlobal, "k")
	require.True(t, ok)
	assert.Equal(t, "original", v)
	assert.Empty(t, clone.Selected)
}

func TestEnvironmentNilClone(t *testing.T) {
	var env *Environment
	clone := env.Clone()
	require.NotNil(t, clone)
	assert.Empty(t, clone.Global)
}
