package statemachine

import (
	"testing"

	"github.com/junbin-yang/go-fsmkit/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(opts ...Option) *Machine {
	return NewMachine(append([]Option{WithLogger(logger.Nop())}, opts...)...)
}

func currentName(t *testing.T, m Transitioner) string {
	t.Helper()
	cur, ok := m.Current()
	require.True(t, ok, "machine is not initialized")
	return cur.Name()
}

func TestMachine_InitAndReset(t *testing.T) {
	m := newTestMachine()
	assert.ErrorIs(t, m.Init(), ErrEmptyGraph)
	_, ok := m.Current()
	assert.False(t, ok)

	_, ok = m.GetNext(NewMessage("1"))
	assert.False(t, ok)
	assert.False(t, m.Can(NewMessage("1")))

	a, b := NewState("A"), NewState("B")
	require.NoError(t, m.Add(NewTransition(a, NewMessage("1"), b)))
	require.NoError(t, m.Init())
	assert.Equal(t, "A", currentName(t, m))

	m.Send(NewMessage("1"))
	assert.Equal(t, "B", currentName(t, m))

	require.NoError(t, m.Reset())
	assert.Equal(t, "A", currentName(t, m))

	require.NoError(t, m.SetCurrent("B"))
	assert.Equal(t, "B", currentName(t, m))
	assert.ErrorIs(t, m.SetCurrent("Z"), ErrStateNotFound)
	assert.Equal(t, "B", currentName(t, m))
}

func TestMachine_SendChainAndNext(t *testing.T) {
	m, err := NewBuilder(WithLogger(logger.Nop())).
		From(NewState("A")).OnKey("1").To(NewState("B")).
		From(NewState("B")).OnKey("2").To(NewState("C")).
		From(NewState("C")).OnEmpty().To(NewState("D", AsFinal())).
		Build()
	require.NoError(t, err)

	m.Send(NewMessage("1")).Send(NewMessage("2")).Next()
	cur, _ := m.Current()
	assert.Equal(t, "D", cur.Name())
	assert.True(t, cur.IsFinal())

	// 终止状态没有出边
	_, ok := m.GetNext(Empty)
	assert.False(t, ok)
	assert.Equal(t, "D", currentName(t, m))
}

func TestMachine_GetNextWithoutMapping(t *testing.T) {
	m := newTestMachine()
	require.NoError(t, m.Add(NewTransition(NewState("A"), NewMessage("1"), NewState("B"))))
	require.NoError(t, m.Init())

	state, ok := m.GetNext(NewMessage("2"))
	assert.False(t, ok)
	assert.Nil(t, state)
	assert.Equal(t, "A", currentName(t, m))

	_, ok = m.GetNext(Message{})
	assert.False(t, ok)

	state, ok = m.GetNext(NewMessage("1"))
	require.True(t, ok)
	assert.Equal(t, "B", state.Name())
}

func TestMachine_AnyFallback(t *testing.T) {
	m := newTestMachine()
	a, b, c := NewState("A"), NewState("B"), NewState("C")
	require.NoError(t, m.AddAll(
		NewTransition(a, Any, c),
		NewTransition(a, NewMessage("1"), b),
	))
	require.NoError(t, m.Init())

	assert.True(t, m.Can(NewMessage("1")))
	assert.True(t, m.Can(NewMessage("5")))

	state, ok := m.GetNext(NewMessage("1"))
	require.True(t, ok)
	assert.Equal(t, "B", state.Name())

	require.NoError(t, m.Reset())
	state, ok = m.GetNext(NewMessage("5"))
	require.True(t, ok)
	assert.Equal(t, "C", state.Name())

	// Empty 也会回退到 Any
	require.NoError(t, m.Reset())
	m.Next()
	assert.Equal(t, "C", currentName(t, m))
	assert.False(t, m.Can(NewMessage("1")))
}

func TestMachine_DepartureRedirect(t *testing.T) {
	build := func(withNine bool) *Machine {
		f := NewFilteredState(NewState("F")).
			OnDispatch(NewMessage("7"), func(FilterContext) Status { return Forward(NewMessage("9")) })
		m := newTestMachine()
		require.NoError(t, m.Add(NewTransition(f, NewMessage("7"), NewState("H"))))
		if withNine {
			require.NoError(t, m.Add(NewTransition(f, NewMessage("9"), NewState("G"))))
		}
		require.NoError(t, m.Init())
		return m
	}

	m := build(true)
	state, ok := m.GetNext(NewMessage("7"))
	require.True(t, ok)
	assert.Equal(t, "G", state.Name())

	m = build(false)
	_, ok = m.GetNext(NewMessage("7"))
	assert.False(t, ok)
	assert.Equal(t, "F", currentName(t, m))
}

func TestMachine_DepartureRedirectSkipsSecondDepartureCheck(t *testing.T) {
	calls := 0
	f := NewFilteredState(NewState("F")).
		OnDispatch(Any, func(ctx FilterContext) Status {
			calls++
			if ctx.Message.Equal(NewMessage("7")) {
				return Forward(NewMessage("9"))
			}
			return Abort
		})
	m := newTestMachine()
	require.NoError(t, m.AddAll(
		NewTransition(f, NewMessage("7"), NewState("H")),
		NewTransition(f, NewMessage("9"), NewState("G")),
	))
	require.NoError(t, m.Init())

	state, ok := m.GetNext(NewMessage("7"))
	require.True(t, ok)
	assert.Equal(t, "G", state.Name())
	assert.Equal(t, 1, calls)
}

func TestMachine_ArrivalRedirectChain(t *testing.T) {
	b := NewFilteredState(NewState("B")).
		OnReceive(NewMessage("1"), func(FilterContext) Status { return Forward(NewMessage("2")) })
	c := NewFilteredState(NewState("C")).
		OnReceive(NewMessage("2"), func(FilterContext) Status { return Forward(NewMessage("3")) })

	var events []TransitionEvent
	m := newTestMachine(WithObserver(func(ev TransitionEvent) { events = append(events, ev) }))
	require.NoError(t, m.AddAll(
		NewTransition(NewState("A"), NewMessage("1"), b),
		NewTransition(b, NewMessage("2"), c),
		NewTransition(c, NewMessage("3"), NewState("D")),
	))
	require.NoError(t, m.Init())

	state, ok := m.GetNext(NewMessage("1"))
	require.True(t, ok)
	assert.Equal(t, "D", state.Name())

	require.Len(t, events, 1)
	assert.True(t, events[0].Committed)
	assert.Equal(t, "A", events[0].From.Name())
	assert.Equal(t, "D", events[0].To.Name())
	assert.Equal(t, 2, events[0].Redirects)
	assert.Equal(t, "3", events[0].Message.String())
}

func TestMachine_ArrivalRedirectRunsDepartureOfIntermediate(t *testing.T) {
	b := NewFilteredState(NewState("B")).
		OnReceive(NewMessage("1"), func(FilterContext) Status { return Forward(NewMessage("2")) }).
		OnDispatch(NewMessage("2"), func(FilterContext) Status { return Abort })

	m := newTestMachine()
	require.NoError(t, m.AddAll(
		NewTransition(NewState("A"), NewMessage("1"), b),
		NewTransition(b, NewMessage("2"), NewState("C")),
	))
	require.NoError(t, m.Init())

	_, ok := m.GetNext(NewMessage("1"))
	assert.False(t, ok)
	assert.Equal(t, "A", currentName(t, m))
}

func TestMachine_ArrivalRedirectMissRollsBack(t *testing.T) {
	b := NewFilteredState(NewState("B")).
		OnReceive(NewMessage("1"), func(FilterContext) Status { return Forward(NewMessage("404")) })

	m := newTestMachine()
	require.NoError(t, m.Add(NewTransition(NewState("A"), NewMessage("1"), b)))
	require.NoError(t, m.Init())

	_, ok := m.GetNext(NewMessage("1"))
	assert.False(t, ok)
	assert.Equal(t, "A", currentName(t, m))
}

func TestMachine_ArrivalAbort(t *testing.T) {
	b := NewFilteredState(NewState("B")).
		OnReceive(NewMessage("1"), func(FilterContext) Status { return Abort })

	var events []TransitionEvent
	m := newTestMachine(WithObserver(func(ev TransitionEvent) { events = append(events, ev) }))
	require.NoError(t, m.AddAll(
		NewTransition(NewState("A"), NewMessage("1"), b),
		NewTransition(NewState("A"), NewMessage("2"), b),
	))
	require.NoError(t, m.Init())

	_, ok := m.GetNext(NewMessage("1"))
	assert.False(t, ok)
	assert.Equal(t, "A", currentName(t, m))

	state, ok := m.GetNext(NewMessage("2"))
	require.True(t, ok)
	assert.Equal(t, "B", state.Name())

	require.Len(t, events, 2)
	assert.False(t, events[0].Committed)
	assert.Nil(t, events[0].To)
	assert.True(t, events[1].Committed)
}

func TestMachine_DepartureAbort(t *testing.T) {
	a := NewBoundFilteredState(NewState("A")).
		OnDispatchFunc(Any, func(msg Message, node State) Status {
			if node.Name() == "A" && msg.Key() == "locked" {
				return Abort
			}
			return Proceed
		})

	m := newTestMachine()
	require.NoError(t, m.AddAll(
		NewTransition(a, NewMessage("locked"), NewState("B")),
		NewTransition(a, NewMessage("open"), NewState("C")),
	))
	require.NoError(t, m.Init())

	_, ok := m.GetNext(NewMessage("locked"))
	assert.False(t, ok)
	state, ok := m.GetNext(NewMessage("open"))
	require.True(t, ok)
	assert.Equal(t, "C", state.Name())
}

func TestMachine_RedirectLimit(t *testing.T) {
	b := NewFilteredState(NewState("B")).
		OnReceive(Any, func(FilterContext) Status { return Forward(NewMessage("1")) })

	var events []TransitionEvent
	m := newTestMachine(
		WithMaxRedirects(5),
		WithObserver(func(ev TransitionEvent) { events = append(events, ev) }),
	)
	require.NoError(t, m.AddAll(
		NewTransition(NewState("A"), NewMessage("1"), b),
		NewTransition(b, NewMessage("1"), b),
	))
	require.NoError(t, m.Init())

	_, ok := m.GetNext(NewMessage("1"))
	assert.False(t, ok)
	assert.Equal(t, "A", currentName(t, m))

	require.Len(t, events, 1)
	assert.False(t, events[0].Committed)
	assert.Equal(t, 6, events[0].Redirects)
}

func TestMachine_FilterSeesIndex(t *testing.T) {
	var seen FilterContext
	b := NewFilteredState(NewState("B")).
		OnReceive(Any, func(ctx FilterContext) Status {
			seen = ctx
			return Proceed
		})

	m := newTestMachine()
	require.NoError(t, m.Add(NewTransition(NewState("A"), NewMessage("1"), b)))
	require.NoError(t, m.Init())

	m.Send(NewMessage("1"))
	assert.Equal(t, EventArrival, seen.Event)
	assert.Equal(t, "A", seen.Source.Name())
	assert.Equal(t, "B", seen.Target.Name())
	assert.Same(t, m.Index(), seen.Index)
}

func TestMachine_CustomChecker(t *testing.T) {
	m := newTestMachine(WithChecker(rejectArrivalAt("B")))
	require.NoError(t, m.AddAll(
		NewTransition(NewState("A"), NewMessage("1"), NewState("B")),
		NewTransition(NewState("A"), NewMessage("2"), NewState("C")),
	))
	require.NoError(t, m.Init())

	_, ok := m.GetNext(NewMessage("1"))
	assert.False(t, ok)
	_, ok = m.GetNext(NewMessage("2"))
	assert.True(t, ok)
}

type rejectArrivalAt string

func (r rejectArrivalAt) ValidateDeparture(env Envelope) Status {
	return DefaultChecker{}.ValidateDeparture(env)
}

func (r rejectArrivalAt) ValidateArrival(env Envelope) Status {
	if env.Target.Name() == string(r) {
		return Abort
	}
	return DefaultChecker{}.ValidateArrival(env)
}

func TestMachine_PruneKeepsCurrent(t *testing.T) {
	m := newTestMachine()
	require.NoError(t, m.AddState(NewState("A")))
	require.NoError(t, m.AddState(NewState("B")))
	require.NoError(t, m.Init())

	removed := m.Prune()
	assert.Equal(t, []string{"B"}, names(removed))
	assert.Equal(t, "A", currentName(t, m))

	m = newTestMachine()
	require.NoError(t, m.AddState(NewState("A")))
	assert.Len(t, m.Prune(), 1)
}

func TestMachine_RemoveCurrentState(t *testing.T) {
	m := newTestMachine()
	require.NoError(t, m.Add(NewTransition(NewState("A"), NewMessage("1"), NewState("B"))))
	require.NoError(t, m.Init())

	require.NoError(t, m.RemoveState("B"))
	assert.Equal(t, "A", currentName(t, m))
	assert.False(t, m.Can(NewMessage("1")))

	require.NoError(t, m.RemoveState("A"))
	_, ok := m.Current()
	assert.False(t, ok)
	assert.ErrorIs(t, m.RemoveState("A"), ErrStateNotFound)
}

func TestMachine_OverrideKeepsCurrent(t *testing.T) {
	m := newTestMachine()
	require.NoError(t, m.Add(NewTransition(NewState("A"), NewMessage("1"), NewState("B"))))
	require.NoError(t, m.Init())
	m.Send(NewMessage("1"))
	require.Equal(t, "B", currentName(t, m))

	// B 失去唯一的入边，但它是当前状态
	require.NoError(t, m.Add(NewTransition(NewState("A"), NewMessage("1"), NewState("C"))))
	assert.Equal(t, "B", currentName(t, m))
	assert.Equal(t, 3, m.Index().Size())

	require.NoError(t, m.AddAll(
		NewTransition(NewState("B"), NewMessage("2"), NewState("D")),
		NewTransition(NewState("B"), NewMessage("2"), NewState("A")),
	))
	assert.Equal(t, "B", currentName(t, m))
	_, ok := m.Index().Find("D")
	assert.False(t, ok)

	// 离开后 B 不再受保护，可以被清理
	m.Send(NewMessage("2"))
	assert.Equal(t, "A", currentName(t, m))
	require.NoError(t, m.Remove(NewTransition(NewState("B"), NewMessage("2"), NewState("A"))))
	assert.Equal(t, []string{"B"}, names(m.Prune()))
}

func TestMachine_TypedNilOriginAborts(t *testing.T) {
	var nilState *BasicState
	assert.False(t, DefaultChecker{}.ValidateDeparture(Envelope{Origin: nilState, Target: NewState("B")}).Valid())
	assert.False(t, DefaultChecker{}.ValidateArrival(Envelope{Origin: NewState("A"), Target: nilState}).Valid())
}

func TestMachine_CurrentFollowsReplacedState(t *testing.T) {
	m := newTestMachine()
	require.NoError(t, m.Add(NewTransition(NewState("A"), NewMessage("1"), NewState("B"))))
	require.NoError(t, m.Init())

	a, _ := m.Index().Find("A")
	fa := NewFilteredState(a).OnDispatch(Any, func(FilterContext) Status { return Abort })
	require.NoError(t, m.Index().ReplaceState(fa))

	cur, _ := m.Current()
	assert.Same(t, fa, cur)
	_, ok := m.GetNext(NewMessage("1"))
	assert.False(t, ok)
}

func TestMachine_SharedIndex(t *testing.T) {
	idx := newTestIndex()
	require.NoError(t, idx.Add(NewTransition(NewState("A"), NewMessage("1"), NewState("B"))))

	m1 := newTestMachine(WithTransitionIndex(idx))
	m2 := newTestMachine(WithTransitionIndex(idx))
	require.NoError(t, m1.Init())
	require.NoError(t, m2.Init())

	m1.Send(NewMessage("1"))
	assert.Equal(t, "B", currentName(t, m1))
	assert.Equal(t, "A", currentName(t, m2))
}

func TestMachine_WithValidator(t *testing.T) {
	m := newTestMachine(WithValidator(NewRuleValidator(PolicyThrow, DenyTarget("X"))))
	err := m.Add(NewTransition(NewState("A"), NewMessage("1"), NewState("X")))
	assert.True(t, IsValidationError(err))
}
