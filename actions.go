package plano

import (
	"context"

	"github.com/petrijr/plano/pkg/api"
)

// Pure adapts a typed function to an Action. The state is converted to I
// before the call; a state of another type fails with ErrStateType.
//
//	reg.MustRegister("upper", plano.Pure(strings.ToUpper))
func Pure[I, O any](fn func(I) O) Action {
	return api.PureAction(fn)
}

// Typed adapts a typed, context aware function that may fail to an Action.
func Typed[I, O any](fn func(context.Context, I) (O, error)) Action {
	return api.TypedAction(fn)
}
