package state

// Outcome status values
const (
	StatusPass = "pass"
	StatusFail = "fail"
)

// Outcome is one recorded assertion result
type Outcome struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// TestDescriptor is one node of the test tree. Nesting follows stack
// discipline: a test registered while another is running becomes its
// child. Outcomes only grow while the descriptor is active; once
// execution moves past it the descriptor is frozen.
type TestDescriptor struct {
	Name     string            `json:"name"`
	Outcomes []Outcome         `json:"outcomes"`
	Children []*TestDescriptor `json:"children,omitempty"`

	frozen bool
}

// NewTestDescriptor creates an empty descriptor
func NewTestDescriptor(name string) *TestDescriptor {
	return &TestDescriptor{
		Name:     name,
		Outcomes: []Outcome{},
	}
}

// Record appends an outcome. Calls after Freeze are dropped: execution
// already moved past this descriptor, so a late continuation must not
// alter it.
func (d *TestDescriptor) Record(status, message string) {
	if d.frozen {
		return
	}
	d.Outcomes = append(d.Outcomes, Outcome{Status: status, Message: message})
}

// Freeze marks the descriptor immutable
func (d *TestDescriptor) Freeze() {
	d.frozen = true
}

// Frozen reports whether the descriptor no longer accepts outcomes
func (d *TestDescriptor) Frozen() bool {
	return d.frozen
}

// Failed reports whether any outcome in this subtree failed
func (d *TestDescriptor) Failed() bool {
	for _, o := range d.Outcomes {
		if o.Status == StatusFail {
			return true
		}
	}
	for _, c := range d.Children {
		if c.Failed() {
			return true
		}
	}
	return false
}

// Clone returns an independent deep copy of the subtree
func (d *TestDescriptor) Clone() *TestDescriptor {
	out := &TestDescriptor{
		Name:     d.Name,
		Outcomes: make([]Outcome, len(d.Outcomes)),
		frozen:   d.frozen,
	}
	copy(out.Outcomes, d.Outcomes)
	if len(d.Children) > 0 {
		out.Children = make([]*TestDescriptor, len(d.Children))
		for i, c := range d.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// CloneTree deep-copies a descriptor list
func CloneTree(tests []*TestDescriptor) []*TestDescriptor {
	out := make([]*TestDescriptor, len(tests))
	for i, t := range tests {
		out[i] = t.Clone()
	}
	return out
}
