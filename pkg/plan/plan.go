// Package plan implements the refinable, ordered, nested sequence of
// transformer steps that the engine executes: a singly-linked list behind a
// start sentinel, a position cursor, a group-aware insertion cursor, and a
// small state machine.
package plan

import (
	"fmt"
	"strings"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
)

// MaxSteps caps how many steps a plan may hold.
const MaxSteps = 100

// State is the plan lifecycle state.
type State int

const (
	// StateInitial: no step has been entered yet.
	StateInitial State = iota
	// StateInProgress: the cursor sits on a real step.
	StateInProgress
	// StateFailed: a step failed; the plan will not advance again.
	StateFailed
	// StateSucceeded: the cursor advanced past the last step.
	StateSucceeded
)

// String returns the camelCase label used in logs and serialized results.
func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateInProgress:
		return "inProgress"
	case StateFailed:
		return "failed"
	case StateSucceeded:
		return "succeeded"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Plan holds the step list and its execution state. Plans are built by the
// engine's refinement and consumed by its run loop, but are owned by the
// caller and safe to inspect at any point.
type Plan struct {
	start         *Step
	current       *Step
	groupTail     *Step
	count         int
	originalInput map[string]interface{}
	state         State
}

// New creates an empty plan positioned on its start sentinel.
func New() *Plan {
	start := &Step{start: true}

	return &Plan{start: start, current: start, state: StateInitial}
}

// Add inserts a new step after the current insertion point: the group tail
// when one is open, otherwise the cursor. The inserted step becomes the new
// group tail, opening a nested group under the insertion point; group-close
// counts move forward so that every opened group is closed on the last step
// of its subtree.
func (p *Plan) Add(name string, attributes map[string]interface{}) (*Step, error) {
	if p.count >= MaxSteps {
		return nil, fmt.Errorf("cannot add step %q: plan already has %d steps", name, p.count)
	}

	at := p.groupTail
	if at == nil {
		at = p.current
	}

	if at == nil {
		return nil, fmt.Errorf("cannot add step %q: plan already completed", name)
	}

	step := &Step{name: name, attributes: attributes}
	step.next = at.next
	at.next = step

	// Opening a fresh group under the insertion point pairs with one close
	// on the new step; closes already owed by the insertion point move onto
	// the new step, which is now the last node of those groups.
	if !at.beginGroup {
		at.beginGroup = true
		step.endGroup++
	}

	step.endGroup += at.endGroup
	at.endGroup = 0

	p.groupTail = step
	p.count++

	return step, nil
}

// Advance moves the cursor to the next step and returns it. Advancing a
// failed or succeeded plan is a no-op. The first advance moves the plan to
// inProgress; advancing past the last step moves it to succeeded and clears
// the cursor.
func (p *Plan) Advance() *Step {
	if p.state == StateFailed || p.state == StateSucceeded {
		return p.current
	}

	p.groupTail = nil

	if p.current == nil {
		return nil
	}

	p.current = p.current.next

	if p.state == StateInitial {
		p.state = StateInProgress
	}

	if p.current == nil {
		p.state = StateSucceeded
	}

	return p.current
}

// Fail marks the plan failed unless it already succeeded.
func (p *Plan) Fail() {
	if p.state != StateSucceeded {
		p.state = StateFailed
	}
}

// UpdateOriginalInput records the source the plan was refined from. Only
// the first call takes effect.
func (p *Plan) UpdateOriginalInput(source map[string]interface{}) {
	if p.originalInput == nil {
		p.originalInput = maputil.DeepCopyMap(source)
	}
}

// OriginalInput returns the recorded source, or nil.
func (p *Plan) OriginalInput() map[string]interface{} { return p.originalInput }

// Current returns the cursor: the start sentinel before the first advance,
// a step during execution, or nil after completion.
func (p *Plan) Current() *Step { return p.current }

// State returns the lifecycle state.
func (p *Plan) State() State { return p.state }

// Size returns the number of steps (the sentinel does not count).
func (p *Plan) Size() int { return p.count }

// Empty reports whether the plan has no steps.
func (p *Plan) Empty() bool { return p.start.next == nil }

// Start returns the start sentinel.
func (p *Plan) Start() *Step { return p.start }

// String renders the plan on one line, opening "{" after each group-opening
// step, closing one "}" per owed group close, and marking the cursor with
// "*": "[start] -> { A -> { *B } }".
func (p *Plan) String() string {
	var b strings.Builder

	var prev *Step

	for node := p.start; node != nil; node = node.next {
		if prev != nil {
			b.WriteString(" -> ")

			if prev.beginGroup {
				b.WriteString("{ ")
			}
		}

		if node == p.current {
			b.WriteString("*")
		}

		if node.start {
			b.WriteString("[start]")
		} else {
			b.WriteString(node.name)
		}

		for i := 0; i < node.endGroup; i++ {
			b.WriteString(" }")
		}

		prev = node
	}

	return b.String()
}
