package plan

import (
	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
)

// Attribute-bag keys conventionally attached to steps by the engine.
const (
	KeyInput  = "input"
	KeyOutput = "output"
)

// Step is one node of a plan's singly-linked list. The head of the list is
// a start sentinel; group nesting is tracked per node with a group-open
// flag and a group-close count.
type Step struct {
	name       string
	attributes map[string]interface{}
	next       *Step
	start      bool
	beginGroup bool
	endGroup   int
}

// Name returns the transformer name the step was added with; the start
// sentinel returns "start".
func (s *Step) Name() string {
	if s.start {
		return "start"
	}

	return s.name
}

// IsStart reports whether the step is the plan's start sentinel.
func (s *Step) IsStart() bool { return s.start }

// Next returns the following step, or nil at the end of the plan.
func (s *Step) Next() *Step { return s.next }

// Attributes returns the step's attribute bag. The bag is live: mutations
// are visible to subsequent readers, which is how the engine threads one
// step's results into the next.
func (s *Step) Attributes() map[string]interface{} { return s.attributes }

// Input returns the step's input bag, allocating it on first use.
func (s *Step) Input() map[string]interface{} {
	return s.bag(KeyInput)
}

// Output returns the step's output bag, allocating it on first use.
func (s *Step) Output() map[string]interface{} {
	return s.bag(KeyOutput)
}

func (s *Step) bag(key string) map[string]interface{} {
	if s.attributes == nil {
		s.attributes = map[string]interface{}{}
	}

	m, ok := maputil.GetMap(s.attributes, key)
	if !ok {
		m = map[string]interface{}{}
		s.attributes[key] = m
	}

	return m
}
