// Package snapshot makes deep copies of run states so that trace records
// cannot be changed by later steps.
package snapshot

import (
	"reflect"
	"time"

	clone "github.com/huandu/go-clone"
)

func init() {
	// Times are values; copying their *Location would detach them from
	// time.Local and time.UTC.
	clone.MarkAsScalar(reflect.TypeFor[time.Time]())
}

// Cloner is implemented by states that know how to copy themselves.
type Cloner interface {
	Clone() any
}

// Copy returns a deep copy of v. A state implementing Cloner is copied with
// Clone; everything else is cloned field by field, unexported fields
// included. Shared or cyclic references stay shared in the copy.
func Copy(v any) any {
	if v == nil {
		return nil
	}
	if c, ok := v.(Cloner); ok {
		return c.Clone()
	}
	return clone.Slowly(v)
}
