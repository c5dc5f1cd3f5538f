package plan

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/plano/pkg/api"
)

type doc struct {
	Title string
	Body  string
}

var titleLens = NewLens(
	func(d doc) string { return d.Title },
	func(d doc, t string) doc { d.Title = t; return d },
)

func TestNewLens(t *testing.T) {
	t.Parallel()

	d := doc{Title: "hello", Body: "world"}
	got, err := titleLens.Get(d)
	require.NoError(t, err)
	require.Equal(t, "hello", got)

	next, err := titleLens.Set(d, "HELLO")
	require.NoError(t, err)
	require.Equal(t, doc{Title: "HELLO", Body: "world"}, next)
	require.Equal(t, "hello", d.Title)

	_, err = titleLens.Get("not a doc")
	require.ErrorIs(t, err, api.ErrStateType)
	_, err = titleLens.Set(d, 42)
	require.ErrorIs(t, err, api.ErrStateType)
}

func TestLensLaws(t *testing.T) {
	t.Parallel()

	eq := func(a, b any) bool { return reflect.DeepEqual(a, b) }

	require.NoError(t, CheckLaws(titleLens,
		[]any{doc{}, doc{Title: "x", Body: "y"}},
		[]any{"", "new"}, eq))

	require.NoError(t, CheckLaws(Key("title"),
		[]any{map[string]any{}, map[string]any{"title": "a", "n": 1}},
		[]any{"b", nil, 3}, eq))

	require.NoError(t, CheckLaws(Index(1),
		[]any{[]any{"a", "b", "c"}},
		[]any{"z"}, eq))
}

func TestCheckLaws_ReportsViolation(t *testing.T) {
	t.Parallel()

	broken := MakeLens(
		func(s any) (any, error) { return s, nil },
		func(s, a any) (any, error) { return "constant", nil },
	)
	err := CheckLaws(broken, []any{"x"}, nil, func(a, b any) bool { return a == b })
	require.Error(t, err)
}

func TestKeyLens_CopyOnWrite(t *testing.T) {
	t.Parallel()

	in := map[string]any{"title": "a"}
	out, err := Key("title").Set(in, "b")
	require.NoError(t, err)
	require.Equal(t, "a", in["title"])
	require.Equal(t, "b", out.(map[string]any)["title"])

	_, err = Key("title").Get("string state")
	require.ErrorIs(t, err, api.ErrStateType)
}

func TestIndexLens_OutOfRange(t *testing.T) {
	t.Parallel()

	_, err := Index(3).Get([]any{"a"})
	require.Error(t, err)
	_, err = Index(0).Get(map[string]any{})
	require.ErrorIs(t, err, api.ErrStateType)
}

func TestComposeAndModify(t *testing.T) {
	t.Parallel()

	l := Compose(Key("doc"), Key("title"))
	s := map[string]any{"doc": map[string]any{"title": "a", "body": "b"}}

	got, err := l.Get(s)
	require.NoError(t, err)
	require.Equal(t, "a", got)

	shout := l.Modify(func(v any) (any, error) { return v.(string) + "!", nil })
	next, err := shout(s)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"doc": map[string]any{"title": "a!", "body": "b"}}, next)
	require.Equal(t, "a", s["doc"].(map[string]any)["title"])
}
