// Package render exports plans as Mermaid flowcharts.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/plan"
)

// Mermaid produces a Mermaid flowchart for p. Node shapes follow the node
// kind:
//   - Task: [Rectangle]
//   - Sequence: ([Stadium]), children linked in order
//   - Parallel: {{Hexagon}}
//   - Choose: {Rhombus}
//   - Focus: [/Parallelogram/]
//   - LoopWhile: ((Circle)) with a dotted edge back from the body
//
// When trace is not empty, tasks that ran are styled as ok or failed and
// annotated with their run count and total duration.
func Mermaid(p plan.Plan, trace api.Trace) string {
	g := &graph{ids: make(map[string]bool), stats: collect(trace)}
	g.sb.WriteString("graph TD\n")
	g.node(p, "")

	if len(trace) > 0 {
		g.sb.WriteString("\n    %% Trace overlay\n")
		// Black text keeps labels readable on light fills in both themes.
		g.sb.WriteString("    classDef ok fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
		g.sb.WriteString("    classDef failed fill:#ffebee,stroke:#c62828,stroke-width:4px,color:#000;\n")
		for _, c := range g.classes {
			fmt.Fprintf(&g.sb, "    class %s %s;\n", c.id, c.class)
		}
	}
	return g.sb.String()
}

type stepStats struct {
	runs   int
	failed bool
	total  time.Duration
}

func collect(trace api.Trace) map[string]*stepStats {
	stats := make(map[string]*stepStats)
	for _, rec := range trace {
		s, ok := stats[rec.Path]
		if !ok {
			s = &stepStats{}
			stats[rec.Path] = s
		}
		s.runs++
		s.total += rec.Duration
		s.failed = s.failed || !rec.OK
	}
	return stats
}

type styled struct{ id, class string }

type graph struct {
	sb      strings.Builder
	ids     map[string]bool
	stats   map[string]*stepStats
	classes []styled
}

// node writes n and its subtree and returns the Mermaid ID of n.
func (g *graph) node(n plan.Plan, prefix string) string {
	path := plan.NodePath(prefix, n)
	id := g.id(path)

	switch n := n.(type) {
	case plan.TaskNode:
		g.task(id, path, n.Name())

	case plan.SequenceNode:
		g.shape(id, "([", "])", "Sequence")
		prev := id
		for i, c := range n.Children() {
			child := g.node(c, plan.ChildPrefix(prefix, plan.KindSequence, i))
			if i == 0 {
				g.edge(id, "-->", child)
			} else {
				g.edge(prev, "-->", child)
			}
			prev = child
		}

	case plan.ParallelNode:
		g.shape(id, "{{", "}}", "Parallel")
		g.fan(id, prefix, plan.KindParallel, n.Children())

	case plan.ChooseNode:
		g.shape(id, "{", "}", "Choose")
		g.fan(id, prefix, plan.KindChoose, n.Children())

	case plan.FocusNode:
		g.shape(id, "[/", "/]", "Focus")
		child := g.node(n.Child(), plan.ScopePrefix(prefix, plan.KindFocus))
		g.edge(id, "-->", child)

	case plan.LoopNode:
		g.shape(id, "((", "))", "LoopWhile")
		body := g.node(n.Body(), plan.ScopePrefix(prefix, plan.KindLoopWhile))
		g.edge(id, `-- "while" -->`, body)
		g.edge(body, "-.->", id)

	default:
		g.shape(id, "[", "]", "?")
	}
	return id
}

func (g *graph) fan(id, prefix string, k plan.Kind, children []plan.Plan) {
	for i, c := range children {
		child := g.node(c, plan.ChildPrefix(prefix, k, i))
		g.edge(id, fmt.Sprintf(`-- "%d" -->`, i), child)
	}
}

func (g *graph) task(id, path, name string) {
	label := escape(name)
	s, ran := g.stats[path]
	if ran {
		label += fmt.Sprintf(" <br/> %d× %s", s.runs, s.total.Round(time.Microsecond))
		class := "ok"
		if s.failed {
			class = "failed"
		}
		g.classes = append(g.classes, styled{id, class})
	}
	g.shape(id, "[", "]", label)
}

func (g *graph) shape(id, opener, closer, label string) {
	fmt.Fprintf(&g.sb, "    %s%s\"%s\"%s\n", id, opener, label, closer)
}

func (g *graph) edge(from, arrow, to string) {
	fmt.Fprintf(&g.sb, "    %s %s %s\n", from, arrow, to)
}

// id derives a unique Mermaid ID from a node path.
func (g *graph) id(path string) string {
	base := sanitizeMermaidID(path)
	id := base
	for i := 2; g.ids[id]; i++ {
		id = base + "_" + strconv.Itoa(i)
	}
	g.ids[id] = true
	return id
}

func sanitizeMermaidID(path string) string {
	var b strings.Builder
	for _, r := range path {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "root"
	}
	return b.String()
}

// escape keeps double quotes from ending a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, `"`, "'")
}
