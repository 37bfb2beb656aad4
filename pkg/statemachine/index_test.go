package statemachine

import (
	"testing"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(opts ...IndexOption) *TransitionIndex {
	return NewTransitionIndex(append([]IndexOption{WithIndexLogger(logger.Nop())}, opts...)...)
}

func names(states []State) []string {
	out := make([]string, 0, len(states))
	for _, s := range states {
		out = append(out, s.Name())
	}
	return out
}

func TestIndex_AddEnsuresVertices(t *testing.T) {
	idx := newTestIndex()
	a, b, c := NewState("A"), NewState("B"), NewState("C")

	require.NoError(t, idx.Add(NewTransition(a, NewMessage("1"), b)))
	require.NoError(t, idx.Add(NewTransition(b, NewMessage("2"), c)))

	assert.Equal(t, 3, idx.Size())
	assert.Equal(t, []string{"A", "B", "C"}, names(idx.States()))
	assert.Len(t, idx.Transitions("A"), 1)
	assert.Empty(t, idx.Transitions("C"))
	assert.Nil(t, idx.Transitions("missing"))

	first, ok := idx.First()
	require.True(t, ok)
	assert.Same(t, a, first)

	_, ok = NewTransitionIndex().First()
	assert.False(t, ok)
}

func TestIndex_FindIsIdempotent(t *testing.T) {
	idx := newTestIndex()
	a := NewState("A")
	require.NoError(t, idx.Add(NewTransition(a, NewMessage("1"), NewState("B"))))
	require.NoError(t, idx.Add(NewTransition(NewState("A"), NewMessage("2"), NewState("C"))))
	require.NoError(t, idx.Add(NewTransition(NewState("C"), NewMessage("3"), NewState("A"))))

	for i := 0; i < 3; i++ {
		found, ok := idx.Find("A")
		require.True(t, ok)
		assert.Same(t, a, found)
	}
}

func TestIndex_OverrideOnDuplicateAdd(t *testing.T) {
	idx := newTestIndex()
	a, b, c := NewState("A"), NewState("B"), NewState("C")

	require.NoError(t, idx.Add(NewTransition(a, NewMessage("1"), b)))
	require.NoError(t, idx.Add(NewTransition(a, NewMessage("1"), c)))

	ts := idx.Transitions("A")
	require.Len(t, ts, 1)
	assert.Equal(t, "C", ts[0].Target.Name())

	// B 不再被任何边引用
	assert.Equal(t, 2, idx.Size())
	_, ok := idx.Find("B")
	assert.False(t, ok)
	assert.Empty(t, idx.Prune())
}

func TestIndex_OverrideKeepsReferencedTarget(t *testing.T) {
	idx := newTestIndex()
	a, b, c, d := NewState("A"), NewState("B"), NewState("C"), NewState("D")

	require.NoError(t, idx.AddAll(
		NewTransition(a, NewMessage("1"), b),
		NewTransition(d, NewMessage("x"), b),
		NewTransition(a, NewMessage("2"), c),
		NewTransition(c, NewMessage("y"), a),
	))

	require.NoError(t, idx.Add(NewTransition(a, NewMessage("1"), c)))
	assert.Equal(t, 4, idx.Size())

	require.NoError(t, idx.Add(NewTransition(d, NewMessage("x"), a)))
	_, ok := idx.Find("B")
	assert.False(t, ok)
	assert.Equal(t, 3, idx.Size())

	// 旧目标自身还有出边时保留
	require.NoError(t, idx.Add(NewTransition(a, NewMessage("3"), b)))
	require.NoError(t, idx.Add(NewTransition(b, NewMessage("z"), c)))
	require.NoError(t, idx.Add(NewTransition(a, NewMessage("3"), d)))
	_, ok = idx.Find("B")
	assert.True(t, ok)
}

func TestIndex_FinalStateProtection(t *testing.T) {
	idx := newTestIndex()
	a := NewState("A")
	b := NewState("B", AsFinal())

	require.NoError(t, idx.Add(NewTransition(a, NewMessage("1"), b)))
	assert.Equal(t, 2, idx.Size())

	err := idx.Add(NewTransition(b, NewMessage("1"), NewState("C")))
	require.Error(t, err)
	assert.True(t, IsStructuralError(err))
	assert.Equal(t, 2, idx.Size())

	// 新实例未标记 final，但图中的规范顶点是 final
	err = idx.Add(NewTransition(NewState("B"), NewMessage("1"), NewState("C")))
	require.Error(t, err)
	assert.True(t, IsStructuralError(err))
	assert.False(t, IsValidationError(err))
	assert.Equal(t, 2, idx.Size())
}

// acceptAll 不做任何检查的校验器
type acceptAll struct{}

func (acceptAll) Validate(Transition, *TransitionIndex, Operation) ValidationResult { return Accept() }
func (acceptAll) FailurePolicy() FailurePolicy                                      { return PolicyThrow }

func TestIndex_CanonicalFinalOriginIgnoresPolicy(t *testing.T) {
	validators := map[string]Validator{
		"throw":   NewDefaultValidator(PolicyThrow),
		"proceed": NewDefaultValidator(PolicyProceed),
		"ignore":  NewDefaultValidator(PolicyIgnore),
		"custom":  acceptAll{},
	}
	for name, v := range validators {
		t.Run(name, func(t *testing.T) {
			idx := newTestIndex(WithIndexValidator(v))
			require.NoError(t, idx.Add(NewTransition(NewState("A"), NewMessage("1"), NewState("B", AsFinal()))))

			err := idx.Add(NewTransition(NewState("B"), NewMessage("1"), NewState("C")))
			assert.ErrorIs(t, err, ErrFinalOrigin)
			assert.Equal(t, 2, idx.Size())
			assert.Empty(t, idx.Transitions("B"))

			b, ok := idx.Find("B")
			require.True(t, ok)
			assert.True(t, b.IsFinal())
		})
	}
}

func TestIndex_AddKeepProtectsDisplacedTarget(t *testing.T) {
	idx := newTestIndex()
	a, b, c := NewState("A"), NewState("B"), NewState("C")
	require.NoError(t, idx.Add(NewTransition(a, NewMessage("1"), b)))

	require.NoError(t, idx.AddKeep(NewTransition(a, NewMessage("1"), c), "B"))
	assert.Equal(t, 3, idx.Size())
	_, ok := idx.Find("B")
	assert.True(t, ok)

	// 不在 keep 中时照常移除
	require.NoError(t, idx.AddKeep(NewTransition(a, NewMessage("1"), b), "A"))
	_, ok = idx.Find("C")
	assert.False(t, ok)
}

func TestIndex_TypedNilStates(t *testing.T) {
	idx := newTestIndex()
	var nilState *BasicState

	assert.ErrorIs(t, idx.Add(NewTransition(nilState, NewMessage("1"), NewState("B"))), ErrNilOrigin)
	assert.ErrorIs(t, idx.Add(NewTransition(NewState("A"), NewMessage("1"), nilState)), ErrNilTarget)
	assert.ErrorIs(t, idx.AddState(nilState), ErrNilState)
	assert.ErrorIs(t, idx.ReplaceState(nilState), ErrNilState)
	assert.ErrorIs(t, idx.Remove(NewTransition(nilState, NewMessage("1"), NewState("B"))), ErrNilOrigin)
	assert.False(t, idx.Contains(NewTransition(nilState, NewMessage("1"), NewState("B"))))
	assert.Equal(t, 0, idx.Size())
}

func TestIndex_StructuralErrorsIgnorePolicy(t *testing.T) {
	for _, policy := range []FailurePolicy{PolicyThrow, PolicyProceed, PolicyIgnore} {
		idx := newTestIndex(WithIndexValidator(NewDefaultValidator(policy)))
		err := idx.Add(NewTransition(NewState("A"), Message{}, NewState("B")))
		assert.ErrorIs(t, err, ErrNilMessage, policy.String())
		assert.Equal(t, 0, idx.Size())
	}
}

func TestIndex_LookupIsDirectOnly(t *testing.T) {
	idx := newTestIndex()
	require.NoError(t, idx.Add(NewTransition(NewState("A"), Any, NewState("C"))))

	_, ok := idx.Lookup("A", NewMessage("5"))
	assert.False(t, ok)
	target, ok := idx.Lookup("A", Any)
	require.True(t, ok)
	assert.Equal(t, "C", target.Name())

	_, ok = idx.Lookup("missing", Any)
	assert.False(t, ok)
}

func TestIndex_RemoveTransition(t *testing.T) {
	idx := newTestIndex()
	a, b := NewState("A"), NewState("B")
	t1 := NewTransition(a, NewMessage("1"), b)
	require.NoError(t, idx.Add(t1))
	require.True(t, idx.Contains(t1))

	// 目标不同的映射不存在
	err := idx.Remove(NewTransition(a, NewMessage("1"), NewState("C")))
	assert.ErrorIs(t, err, ErrTransitionNotFound)
	assert.True(t, IsNotFoundError(err))

	require.NoError(t, idx.Remove(t1))
	assert.False(t, idx.Contains(t1))
	// 顶点保留
	assert.Equal(t, 2, idx.Size())

	assert.ErrorIs(t, idx.Remove(t1), ErrTransitionNotFound)
	assert.ErrorIs(t, idx.Remove(Transition{}), ErrNilOrigin)
}

func TestIndex_RemoveNotFoundIgnoresPolicy(t *testing.T) {
	idx := newTestIndex(WithIndexValidator(NewDefaultValidator(PolicyIgnore)))
	err := idx.Remove(NewTransition(NewState("A"), NewMessage("1"), NewState("B")))
	assert.ErrorIs(t, err, ErrTransitionNotFound)

	idx = newTestIndex(WithIndexValidator(NewDefaultValidator(PolicyProceed)))
	err = idx.Remove(NewTransition(NewState("A"), NewMessage("1"), NewState("B")))
	assert.ErrorIs(t, err, ErrTransitionNotFound)
}

func TestIndex_RemoveStateCascades(t *testing.T) {
	idx := newTestIndex()
	a, b, c, s := NewState("A"), NewState("B"), NewState("C"), NewState("S")
	require.NoError(t, idx.AddAll(
		NewTransition(a, NewMessage("1"), s),
		NewTransition(a, NewMessage("2"), b),
		NewTransition(b, NewMessage("1"), s),
		NewTransition(s, NewMessage("1"), c),
		NewTransition(c, Any, s),
	))

	require.NoError(t, idx.RemoveState("S"))

	_, ok := idx.Find("S")
	assert.False(t, ok)
	assert.Equal(t, []string{"A", "B", "C"}, names(idx.States()))
	for _, tr := range idx.AllTransitions() {
		assert.NotEqual(t, "S", tr.Target.Name(), tr.String())
		assert.NotEqual(t, "S", tr.Origin.Name(), tr.String())
	}
	assert.Len(t, idx.Transitions("A"), 1)
	assert.Empty(t, idx.Transitions("B"))
	assert.Empty(t, idx.Transitions("C"))

	err := idx.RemoveState("S")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestIndex_PruneFixpoint(t *testing.T) {
	idx := newTestIndex()
	a, b, c, d := NewState("A"), NewState("B"), NewState("C"), NewState("D")
	loop := NewState("L")
	require.NoError(t, idx.AddAll(
		NewTransition(a, NewMessage("1"), b),
		NewTransition(c, NewMessage("1"), d),
		NewTransition(loop, Empty, loop),
	))
	require.NoError(t, idx.AddState(NewState("Isolated")))

	require.NoError(t, idx.Remove(NewTransition(c, NewMessage("1"), d)))

	removed := idx.Prune()
	assert.Equal(t, []string{"C", "D", "Isolated"}, names(removed))
	assert.Equal(t, []string{"A", "B", "L"}, names(idx.States()))

	assert.Empty(t, idx.Prune())
}

func TestIndex_PruneKeep(t *testing.T) {
	idx := newTestIndex()
	require.NoError(t, idx.AddState(NewState("A")))
	require.NoError(t, idx.AddState(NewState("B")))

	assert.Equal(t, []string{"B"}, names(idx.Prune("A")))
	assert.Equal(t, 1, idx.Size())
}

func TestIndex_AddStateMerges(t *testing.T) {
	idx := newTestIndex()
	a := NewState("A", WithProperty("x", "1"))
	require.NoError(t, idx.AddState(a))
	require.NoError(t, idx.AddState(NewState("A", AsFinal(), WithProperty("y", "2"))))

	assert.Equal(t, 1, idx.Size())
	found, _ := idx.Find("A")
	assert.Same(t, a, found)
	assert.True(t, found.IsFinal())
	assert.Equal(t, []string{"x", "y"}, found.Properties().Keys())

	assert.ErrorIs(t, idx.AddState(nil), ErrNilState)
}

func TestIndex_ReplaceState(t *testing.T) {
	idx := newTestIndex()
	require.NoError(t, idx.Add(NewTransition(NewState("A"), NewMessage("1"), NewState("B"))))

	b, _ := idx.Find("B")
	fb := NewFilteredState(b)
	require.NoError(t, idx.ReplaceState(fb))

	target, ok := idx.Lookup("A", NewMessage("1"))
	require.True(t, ok)
	assert.Same(t, fb, target)

	assert.ErrorIs(t, idx.ReplaceState(NewState("Z")), ErrStateNotFound)
	assert.ErrorIs(t, idx.ReplaceState(nil), ErrNilState)
}

func TestIndex_Adjacency(t *testing.T) {
	idx := newTestIndex()
	a, b := NewState("A"), NewState("B")
	require.NoError(t, idx.AddAll(
		NewTransition(a, NewMessage("2"), b),
		NewTransition(a, Any, a),
		NewTransition(a, NewMessage("1"), b),
	))

	adj := idx.Adjacency()
	require.Len(t, adj, 2)
	assert.Equal(t, "A", adj[0].State.Name())
	require.Len(t, adj[0].Edges, 3)
	assert.Equal(t, "2", adj[0].Edges[0].Message.String())
	assert.True(t, adj[0].Edges[1].Message.IsAny())
	assert.Equal(t, "1", adj[0].Edges[2].Message.String())
	assert.Empty(t, adj[1].Edges)

	assert.Len(t, idx.AllTransitions(), 3)
}

func TestIndex_AddAllStopsAtFirstError(t *testing.T) {
	idx := newTestIndex()
	err := idx.AddAll(
		NewTransition(NewState("A"), NewMessage("1"), NewState("B")),
		NewTransition(NewState("B"), NewMessage("1"), nil),
		NewTransition(NewState("B"), NewMessage("2"), NewState("C")),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "add transition[1]")
	assert.ErrorIs(t, err, ErrNilTarget)
	assert.Equal(t, 2, idx.Size())
}
