package mediator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingQuery struct{ Msg string }

type pongResult struct{ Msg string }

func pong() HandlerFunc[pingQuery, pongResult] {
	return func(_ context.Context, q pingQuery) (pongResult, error) {
		return pongResult{Msg: "pong:" + q.Msg}, nil
	}
}

func TestSend(t *testing.T) {
	m := New()
	require.NoError(t, Register(m, pong()))

	res, err := Send[pingQuery, pongResult](context.Background(), m, pingQuery{Msg: "a"})
	require.NoError(t, err)
	assert.Equal(t, "pong:a", res.Msg)
}

func TestRegister_Duplicate(t *testing.T) {
	m := New()
	require.NoError(t, Register(m, pong()))

	err := Register(m, pong())
	assert.ErrorIs(t, err, ErrHandlerAlreadyRegistered)
	assert.Panics(t, func() { MustRegister(m, pong()) })
}

func TestSend_NotFound(t *testing.T) {
	_, err := Send[pingQuery, pongResult](context.Background(), New(), pingQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestSend_UnexpectedResponse(t *testing.T) {
	m := New()
	require.NoError(t, Register(m, pong()))

	_, err := Send[pingQuery, string](context.Background(), m, pingQuery{})
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestSend_HandlerError(t *testing.T) {
	m := New()
	boom := errors.New("boom")
	require.NoError(t, Register(m, HandlerFunc[pingQuery, *pongResult](func(context.Context, pingQuery) (*pongResult, error) {
		return nil, boom
	})))

	res, err := Send[pingQuery, *pongResult](context.Background(), m, pingQuery{})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)
}

func TestSend_BehaviorOrder(t *testing.T) {
	var trail []string
	trace := func(name string) Behavior {
		return BehaviorFunc(func(ctx context.Context, req any, next Next) (any, error) {
			trail = append(trail, name+">")
			res, err := next(ctx)
			trail = append(trail, "<"+name)
			return res, err
		})
	}

	m := New(trace("outer"), trace("inner"))
	require.NoError(t, Register(m, HandlerFunc[pingQuery, pongResult](func(_ context.Context, q pingQuery) (pongResult, error) {
		trail = append(trail, "handler")
		return pongResult{}, nil
	})))

	_, err := Send[pingQuery, pongResult](context.Background(), m, pingQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer>", "inner>", "handler", "<inner", "<outer"}, trail)
}

func TestSend_BehaviorShortCircuit(t *testing.T) {
	denied := errors.New("denied")
	m := New(BehaviorFunc(func(context.Context, any, Next) (any, error) { return nil, denied }))
	called := false
	require.NoError(t, Register(m, HandlerFunc[pingQuery, pongResult](func(context.Context, pingQuery) (pongResult, error) {
		called = true
		return pongResult{}, nil
	})))

	_, err := Send[pingQuery, pongResult](context.Background(), m, pingQuery{})
	assert.ErrorIs(t, err, denied)
	assert.False(t, called)
}

func TestRequestName(t *testing.T) {
	assert.Equal(t, "mediator.pingQuery", RequestName(pingQuery{}))
	assert.Equal(t, "mediator.pingQuery", RequestName(&pingQuery{}))
	assert.Equal(t, "<nil>", RequestName(nil))
}
