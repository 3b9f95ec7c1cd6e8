package state

// Scope names for environment variables
const (
	ScopeGlobal   = "global"
	ScopeSelected = "selected"
)

// Variable is one environment entry
type Variable struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Secret bool   `json:"secret,omitempty"`
}

// Environment holds two ordered variable scopes with unique keys per scope.
// The selected scope shadows the global scope on reads.
type Environment struct {
	Global   []Variable `json:"global"`
	Selected []Variable `json:"selected"`
}

// NewEnvironment creates an empty environment
func NewEnvironment() *Environment {
	return &Environment{
		Global:   []Variable{},
		Selected: []Variable{},
	}
}

func (e *Environment) scope(name string) *[]Variable {
	switch name {
	case ScopeGlobal:
		return &e.Global
	case ScopeSelected:
		return &e.Selected
	}
	return nil
}

// Get returns the value for key in the named scope.
// An empty scope name looks up selected first, then global.
func (e *Environment) Get(scope, key string) (string, bool) {
	if scope == "" {
		if v, ok := e.Get(ScopeSelected, key); ok {
			return v, true
		}
		return e.Get(ScopeGlobal, key)
	}
	vars := e.scope(scope)
	if vars == nil {
		return "", false
	}
	for _, v := range *vars {
		if v.Key == key {
			return v.Value, true
		}
	}
	return "", false
}

// Set inserts or replaces key in the named scope, preserving insertion
// order for existing keys. An empty scope name targets the selected scope.
func (e *Environment) Set(scope, key, value string) bool {
	if scope == "" {
		scope = ScopeSelected
	}
	vars := e.scope(scope)
	if vars == nil {
		return false
	}
	for i := range *vars {
		if (*vars)[i].Key == key {
			(*vars)[i].Value = value
			return true
		}
	}
	*vars = append(*vars, Variable{Key: key, Value: value})
	return true
}

// Unset removes key from the named scope. An empty scope name removes
// from both scopes.
func (e *Environment) Unset(scope, key string) bool {
	if scope == "" {
		a := e.Unset(ScopeSelected, key)
		b := e.Unset(ScopeGlobal, key)
		return a || b
	}
	vars := e.scope(scope)
	if vars == nil {
		return false
	}
	for i := range *vars {
		if (*vars)[i].Key == key {
			*vars = append((*vars)[:i], (*vars)[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns an independent deep copy
func (e *Environment) Clone() *Environment {
	if e == nil {
		return NewEnvironment()
	}
	out := &Environment{
		Global:   make([]Variable, len(e.Global)),
		Selected: make([]Variable, len(e.Selected)),
	}
	copy(out.Global, e.Global)
	copy(out.Selected, e.Selected)
	return out
}
