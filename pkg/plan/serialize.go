package plan

import (
	"fmt"

	"github.com/adobe/asset-compute-pipeline-sub000/internal/maputil"
)

// Serialized-node keys.
const (
	keyName    = "name"
	keyCurrent = "current"
	keySteps   = "steps"
)

// stepNode is the tree form of a step used while converting between the
// linked list and the nested serialization.
type stepNode struct {
	step     *Step
	children []*stepNode
}

// tree folds the linked list into nested groups: a group-opening step
// collects the following steps as children until its group is closed.
func (p *Plan) tree() []*stepNode {
	var root []*stepNode

	stack := []*[]*stepNode{&root}

	for node := p.start.next; node != nil; node = node.next {
		n := &stepNode{step: node}

		top := stack[len(stack)-1]
		*top = append(*top, n)

		if node.beginGroup {
			stack = append(stack, &n.children)
		}

		for i := 0; i < node.endGroup; i++ {
			// The sentinel's group is the root and cannot be popped.
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	return root
}

// ToObject serializes the plan to its wire shape: an array of step objects
// with the attribute bag spread beside "name", "current: true" on the
// cursor's step, and nested groups under "steps".
func (p *Plan) ToObject() []interface{} {
	return nodesToObjects(p.tree(), p.current)
}

func nodesToObjects(nodes []*stepNode, current *Step) []interface{} {
	out := make([]interface{}, 0, len(nodes))

	for _, n := range nodes {
		obj := maputil.DeepCopyMap(n.step.attributes)
		if obj == nil {
			obj = map[string]interface{}{}
		}

		obj[keyName] = n.step.name

		if n.step == current {
			obj[keyCurrent] = true
		}

		if len(n.children) > 0 {
			obj[keySteps] = nodesToObjects(n.children, current)
		}

		out = append(out, obj)
	}

	return out
}

// FromObject rebuilds a plan from its wire shape. A step carrying
// "current: true" becomes the cursor and the plan resumes inProgress;
// without a marker the cursor rests on the start sentinel.
func FromObject(obj []interface{}) (*Plan, error) {
	p := New()
	tail := p.start

	var current *Step

	var build func(nodes []interface{}, opener *Step) error

	build = func(nodes []interface{}, opener *Step) error {
		if len(nodes) == 0 {
			return nil
		}

		opener.beginGroup = true

		for _, raw := range nodes {
			m, ok := raw.(map[string]interface{})
			if !ok {
				return fmt.Errorf("step node must be an object, got %T", raw)
			}

			name, _ := m[keyName].(string)
			if name == "" {
				return fmt.Errorf("step node missing name: %v", m)
			}

			if p.count >= MaxSteps {
				return fmt.Errorf("cannot add step %q: plan already has %d steps", name, p.count)
			}

			step := &Step{name: name, attributes: maputil.CopyExcluding(m, keyName, keyCurrent, keySteps)}
			tail.next = step
			tail = step
			p.count++

			if isCurrent, _ := m[keyCurrent].(bool); isCurrent {
				current = step
			}

			if rawSteps, present := m[keySteps]; present {
				children, ok := rawSteps.([]interface{})
				if !ok {
					return fmt.Errorf("step %q: steps must be an array, got %T", name, rawSteps)
				}

				if err := build(children, step); err != nil {
					return err
				}
			}
		}

		tail.endGroup++

		return nil
	}

	if err := build(obj, p.start); err != nil {
		return nil, err
	}

	if current != nil {
		p.current = current
		p.state = StateInProgress
	}

	return p, nil
}
