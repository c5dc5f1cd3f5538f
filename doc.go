// Package plano builds workflows as plan trees and runs them.
//
// A plan is a small algebra of nodes: Task invokes a named action,
// Sequence threads the state through its children, Parallel and Choose run
// their children on the same input and combine the results, Focus runs a
// child on a part of the state selected by a lens, and LoopWhile repeats a
// body while a predicate holds. Plans are plain values; nothing runs until
// a plan is compiled against a Registry of actions.
//
// # Interpreters
//
// Three interpreters share the same plan trees:
//
//   - CompileLinear runs a flat list of action names left to right.
//   - CompileStructured walks the whole tree, records a trace of every
//     task and reports failures with the path of the failing node.
//   - CompileEffectful runs the tree inside an effect such as Option,
//     Result or Writer, using actions registered in an Arrows registry.
//
// Every compile checks the plan before any state flows. Unknown actions,
// missing combinators and malformed nodes are reported together:
//
//	reg := plano.NewRegistry().
//	    MustRegister("denoise", plano.Pure(denoise)).
//	    MustRegister("upper", plano.Pure(strings.ToUpper))
//
//	runner, err := plano.CompileStructured(reg,
//	    plano.Sequence(plano.Task("denoise"), plano.Task("upper")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := runner.Run(ctx, "~ab~c")
//
// # Actions
//
// Registries adapt functions when they are registered. An action may take
// the state, the state and an environment, or a context and the state, and
// may or may not return an error. The environment of a run travels in the
// context, see WithEnv. Pure and Typed adapt functions over concrete types.
//
// # Agents and flows
//
// Agent bundles a registry with default options, an optional evaluator and
// an optional RunStore that keeps the record of every run. Flow is a fluent
// builder for linear workflows defined with inline functions:
//
//	runner := plano.New("greet").
//	    Step("trim", plano.Pure(strings.TrimSpace)).
//	    Step("shout", plano.Pure(strings.ToUpper)).
//	    MustCompile()
//
// # Errors
//
// Failures are *StepError values carrying the path of the failing node and
// one of the error kinds (ErrActionFailure, ErrSelectionOutOfRange, ...).
// They work with errors.Is and errors.As; the original cause stays
// reachable through errors.Is as well.
package plano
