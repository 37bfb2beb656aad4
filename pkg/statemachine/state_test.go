package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperties_Order(t *testing.T) {
	p := NewProperties("b", "1", "a", "2")
	p.Set("c", "3")
	p.Set("b", "updated")

	assert.Equal(t, []string{"b", "a", "c"}, p.Keys())
	v, ok := p.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "updated", v)

	p.Delete("a")
	assert.Equal(t, []string{"b", "c"}, p.Keys())
	assert.Equal(t, 2, p.Len())

	c := p.Clone()
	c.Set("d", "4")
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, 3, c.Len())

	var nilProps *Properties
	assert.Equal(t, 0, nilProps.Len())
	_, ok = nilProps.Get("x")
	assert.False(t, ok)
	nilProps.Delete("x")
}

func TestState_Identity(t *testing.T) {
	a1 := NewState("A")
	a2 := NewState("A", AsFinal())

	assert.NotEqual(t, a1.ID(), a2.ID())
	assert.True(t, SameNode(a1, a2))
	assert.False(t, SameNode(a1, NewState("B")))
	assert.False(t, SameNode(a1, nil))
	assert.True(t, SameNode(nil, nil))
	assert.Equal(t, "A(final)", a2.String())
}

func TestState_Merge(t *testing.T) {
	s := NewState("A", WithProperty("owner", "ops"), WithProperty("sla", "1h"))
	other := NewState("A", AsFinal(), WithProperty("sla", "2h"), WithProperty("tier", "gold"))

	s.Merge(other)

	assert.True(t, s.IsFinal())
	assert.Equal(t, []string{"owner", "sla", "tier"}, s.Properties().Keys())
	sla, _ := s.Properties().Get("sla")
	assert.Equal(t, "2h", sla)

	// final 只能被置为 true
	s.Merge(NewState("A"))
	assert.True(t, s.IsFinal())

	s.Merge(nil)
	assert.Equal(t, 3, s.Properties().Len())
}

func TestTransition_Validate(t *testing.T) {
	a, b := NewState("A"), NewState("B")
	final := NewState("F", AsFinal())

	require.NoError(t, NewTransition(a, NewMessage("1"), b).Validate())

	assert.ErrorIs(t, NewTransition(nil, NewMessage("1"), b).Validate(), ErrNilOrigin)
	assert.ErrorIs(t, NewTransition(a, Message{}, b).Validate(), ErrNilMessage)
	assert.ErrorIs(t, NewTransition(a, NewMessage("1"), nil).Validate(), ErrNilTarget)
	assert.ErrorIs(t, NewTransition(final, NewMessage("1"), b).Validate(), ErrFinalOrigin)
	assert.True(t, IsStructuralError(NewTransition(final, NewMessage("1"), b).Validate()))

	var nilState *BasicState
	assert.ErrorIs(t, NewTransition(nilState, NewMessage("1"), b).Validate(), ErrNilOrigin)
	assert.ErrorIs(t, NewTransition(a, NewMessage("1"), nilState).Validate(), ErrNilTarget)
	var nilFiltered *FilteredState
	assert.ErrorIs(t, NewTransition(nilFiltered, NewMessage("1"), b).Validate(), ErrNilOrigin)
	assert.ErrorIs(t, NewTransition(NewFilteredState(nilState), NewMessage("1"), b).Validate(), ErrNilOrigin)
	assert.Equal(t, "<nil> --1--> B", NewTransition(nilState, NewMessage("1"), b).String())
	assert.True(t, SameNode(nilState, nil))

	assert.Equal(t, "A --1--> B", NewTransition(a, NewMessage("1"), b).String())
	assert.Equal(t, "<nil> --<nil>--> <nil>", Transition{}.String())

	assert.True(t, NewTransition(a, NewMessage("1"), b).Equal(NewTransition(NewState("A"), NewMessage("1"), NewState("B"))))
	assert.False(t, NewTransition(a, NewMessage("1"), b).Equal(NewTransition(a, Any, b)))
}
