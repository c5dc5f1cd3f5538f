package plan

import (
	"errors"
	"strconv"
	"strings"
)

// Paths name nodes by the route taken from the root. A container contributes
// "Kind[i]" for the child taken, Focus and LoopWhile contribute their kind,
// and a Task contributes its action name: "Sequence[2].Parallel[1].upper".

// NodePath returns the path of n below prefix.
func NodePath(prefix string, n Plan) string {
	switch n := n.(type) {
	case nil:
		return prefix + "<nil>"
	case TaskNode:
		return prefix + n.name
	default:
		return prefix + n.Kind().String()
	}
}

// ChildPrefix is the prefix of the i-th child of a container of kind k.
func ChildPrefix(prefix string, k Kind, i int) string {
	return prefix + k.String() + "[" + strconv.Itoa(i) + "]."
}

// ScopePrefix is the prefix of the single child of a Focus or LoopWhile.
func ScopePrefix(prefix string, k Kind) string {
	return prefix + k.String() + "."
}

// SkipChildren can be returned by a WalkFunc to skip the subtree of the
// visited node.
var SkipChildren = errors.New("skip children")

// WalkFunc is called for each node visited by Walk.
type WalkFunc func(path string, n Plan) error

// Walk visits p and its descendants in pre-order. Nil children of malformed
// trees are visited as nil.
func Walk(p Plan, fn WalkFunc) error {
	return walk(p, "", fn)
}

func walk(n Plan, prefix string, fn WalkFunc) error {
	if err := fn(NodePath(prefix, n), n); err != nil {
		if errors.Is(err, SkipChildren) {
			return nil
		}
		return err
	}
	switch n := n.(type) {
	case SequenceNode:
		return walkGroup(n.children, prefix, KindSequence, fn)
	case ParallelNode:
		return walkGroup(n.children, prefix, KindParallel, fn)
	case ChooseNode:
		return walkGroup(n.children, prefix, KindChoose, fn)
	case FocusNode:
		if n.child != nil {
			return walk(n.child, ScopePrefix(prefix, KindFocus), fn)
		}
	case LoopNode:
		if n.body != nil {
			return walk(n.body, ScopePrefix(prefix, KindLoopWhile), fn)
		}
	}
	return nil
}

func walkGroup(children []Plan, prefix string, k Kind, fn WalkFunc) error {
	for i, c := range children {
		if err := walk(c, ChildPrefix(prefix, k, i), fn); err != nil {
			return err
		}
	}
	return nil
}

// TaskNames returns the distinct action names p refers to, in first-seen
// order.
func TaskNames(p Plan) []string {
	var names []string
	seen := make(map[string]bool)
	_ = Walk(p, func(_ string, n Plan) error {
		if t, ok := n.(TaskNode); ok && !seen[t.name] {
			seen[t.name] = true
			names = append(names, t.name)
		}
		return nil
	})
	return names
}

// Contains reports whether any node of p has kind k.
func Contains(p Plan, k Kind) bool {
	found := errors.New("found")
	err := Walk(p, func(_ string, n Plan) error {
		if n != nil && n.Kind() == k {
			return found
		}
		return nil
	})
	return err == found
}

// Size is the number of nodes in p.
func Size(p Plan) int {
	size := 0
	_ = Walk(p, func(string, Plan) error {
		size++
		return nil
	})
	return size
}

// Depth is the height of p; a single Task has depth 1.
func Depth(p Plan) int {
	switch n := p.(type) {
	case nil:
		return 0
	case SequenceNode:
		return 1 + maxDepth(n.children)
	case ParallelNode:
		return 1 + maxDepth(n.children)
	case ChooseNode:
		return 1 + maxDepth(n.children)
	case FocusNode:
		return 1 + Depth(n.child)
	case LoopNode:
		return 1 + Depth(n.body)
	default:
		return 1
	}
}

func maxDepth(children []Plan) int {
	d := 0
	for _, c := range children {
		d = max(d, Depth(c))
	}
	return d
}

// String renders p compactly, for example
// "Sequence(Task(a), Parallel(Task(b), Task(c)))".
func String(p Plan) string {
	var b strings.Builder
	writeNode(&b, p)
	return b.String()
}

func writeNode(b *strings.Builder, p Plan) {
	switch n := p.(type) {
	case nil:
		b.WriteString("<nil>")
	case TaskNode:
		b.WriteString("Task(" + n.name + ")")
	case SequenceNode:
		writeGroup(b, KindSequence, n.children)
	case ParallelNode:
		writeGroup(b, KindParallel, n.children)
	case ChooseNode:
		writeGroup(b, KindChoose, n.children)
	case FocusNode:
		b.WriteString("Focus(")
		writeNode(b, n.child)
		b.WriteString(")")
	case LoopNode:
		b.WriteString("LoopWhile(")
		writeNode(b, n.body)
		b.WriteString(")")
	}
}

func writeGroup(b *strings.Builder, k Kind, children []Plan) {
	b.WriteString(k.String() + "(")
	for i, c := range children {
		if i > 0 {
			b.WriteString(", ")
		}
		writeNode(b, c)
	}
	b.WriteString(")")
}
