package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidator_PolicyOnRejectedAdd(t *testing.T) {
	toD := func() Transition { return NewTransition(NewState("A"), NewMessage("1"), NewState("D")) }

	t.Run("throw", func(t *testing.T) {
		idx := newTestIndex(WithIndexValidator(NewRuleValidator(PolicyThrow, DenyTarget("D"))))
		err := idx.Add(toD())
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
		assert.Contains(t, err.Error(), `"D"`)
		assert.Equal(t, 0, idx.Size())
	})

	t.Run("proceed", func(t *testing.T) {
		idx := newTestIndex(WithIndexValidator(NewRuleValidator(PolicyProceed, DenyTarget("D"))))
		require.NoError(t, idx.Add(toD()))
		assert.True(t, idx.Contains(toD()))
		assert.Equal(t, 2, idx.Size())
	})

	t.Run("ignore", func(t *testing.T) {
		idx := newTestIndex(WithIndexValidator(NewRuleValidator(PolicyIgnore, DenyTarget("D"))))
		require.NoError(t, idx.Add(toD()))
		assert.False(t, idx.Contains(toD()))
		assert.Equal(t, 0, idx.Size())
	})
}

func TestValidator_RulesOnlyRunAfterDefaults(t *testing.T) {
	calls := 0
	rule := func(Transition, *TransitionIndex, Operation) error {
		calls++
		return nil
	}
	v := NewRuleValidator(PolicyThrow, rule)

	res := v.Validate(Transition{Message: NewMessage("1"), Target: NewState("B")}, nil, OpAdd)
	assert.False(t, res.Valid)
	assert.ErrorIs(t, res.Err, ErrNilOrigin)
	assert.Equal(t, 0, calls)

	res = v.Validate(NewTransition(NewState("A"), NewMessage("1"), NewState("B")), nil, OpAdd)
	assert.True(t, res.Valid)
	assert.Equal(t, 1, calls)
}

func TestValidator_DefaultRemoveRequiresMapping(t *testing.T) {
	idx := newTestIndex()
	tr := NewTransition(NewState("A"), NewMessage("1"), NewState("B"))

	v := NewDefaultValidator(PolicyThrow)
	res := v.Validate(tr, idx, OpRemove)
	assert.False(t, res.Valid)
	assert.ErrorIs(t, res.Err, ErrTransitionNotFound)

	require.NoError(t, idx.Add(tr))
	assert.True(t, v.Validate(tr, idx, OpRemove).Valid)
}

func TestValidator_CanonicalFinalVertex(t *testing.T) {
	idx := newTestIndex()
	require.NoError(t, idx.AddState(NewState("Done", AsFinal())))

	res := idx.Validator().Validate(NewTransition(NewState("Done"), Any, NewState("X")), idx, OpAdd)
	assert.False(t, res.Valid)
	assert.ErrorIs(t, res.Err, ErrFinalOrigin)

	// PROCEED 下结构错误仍然致命
	idx = newTestIndex(WithIndexValidator(NewDefaultValidator(PolicyProceed)))
	err := idx.Add(NewTransition(NewState("Done", AsFinal()), Any, NewState("X")))
	assert.ErrorIs(t, err, ErrFinalOrigin)
	assert.Equal(t, 0, idx.Size())
}

func TestValidator_RemoveRejectedByRule(t *testing.T) {
	locked := func(tr Transition, _ *TransitionIndex, op Operation) error {
		if op == OpRemove && tr.Origin.Name() == "A" {
			return assert.AnError
		}
		return nil
	}
	tr := NewTransition(NewState("A"), NewMessage("1"), NewState("B"))

	idx := newTestIndex(WithIndexValidator(NewRuleValidator(PolicyThrow, locked)))
	require.NoError(t, idx.Add(tr))
	err := idx.Remove(tr)
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, idx.Contains(tr))

	idx = newTestIndex(WithIndexValidator(NewRuleValidator(PolicyIgnore, locked)))
	require.NoError(t, idx.Add(tr))
	require.NoError(t, idx.Remove(tr))
	assert.True(t, idx.Contains(tr))

	idx = newTestIndex(WithIndexValidator(NewRuleValidator(PolicyProceed, locked)))
	require.NoError(t, idx.Add(tr))
	require.NoError(t, idx.Remove(tr))
	assert.False(t, idx.Contains(tr))
}

func TestParseFailurePolicy(t *testing.T) {
	cases := map[string]FailurePolicy{
		"":         PolicyThrow,
		"THROW":    PolicyThrow,
		" proceed": PolicyProceed,
		"Ignore":   PolicyIgnore,
	}
	for in, want := range cases {
		got, err := ParseFailurePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, want.String(), got.String())
	}

	_, err := ParseFailurePolicy("retry")
	assert.Error(t, err)
}
