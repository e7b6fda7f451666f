package game

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	g := Game{ID: "g1", Status: StatusWaiting}

	g, err := g.Transition(StatusActive, now)
	require.NoError(t, err)
	require.NotNil(t, g.StartedAt)

	g, err = g.Transition(StatusPaused, now.Add(time.Minute))
	require.NoError(t, err)
	g, err = g.Transition(StatusActive, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, now, *g.StartedAt, "resume keeps the original start")

	g, err = g.Transition(StatusEnded, now.Add(3*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, g.EndedAt)

	for _, to := range []Status{StatusWaiting, StatusActive, StatusPaused, StatusEnded} {
		_, err = g.Transition(to, now)
		assert.True(t, errors.Is(err, ErrInvalidTransition), "ended -> %s", to)
	}

	_, err = Game{Status: StatusWaiting}.Transition(StatusPaused, now)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
}

func TestSources(t *testing.T) {
	assert.Equal(t, []Status{StatusWaiting, StatusActive, StatusPaused}, Sources(StatusEnded))
	assert.Equal(t, []Status{StatusWaiting, StatusPaused}, Sources(StatusActive))
	assert.Equal(t, []Status{StatusActive}, Sources(StatusPaused))
	assert.Empty(t, Sources(StatusWaiting))
}

func TestAppendNumber(t *testing.T) {
	g := Game{Status: StatusActive, NumbersCalled: []int{5}}

	next, err := g.AppendNumber(17)
	require.NoError(t, err)
	assert.Equal(t, []int{5, 17}, next.NumbersCalled)
	assert.Equal(t, 17, *next.CurrentNumber)
	assert.Equal(t, []int{5}, g.NumbersCalled, "original value is untouched")

	_, err = next.AppendNumber(17)
	assert.True(t, errors.Is(err, ErrNumberAlreadyCalled))
	_, err = next.AppendNumber(91)
	assert.True(t, errors.Is(err, ErrNumberOutOfRange))

	paused := next
	paused.Status = StatusPaused
	_, err = paused.AppendNumber(3)
	assert.True(t, errors.Is(err, ErrGameNotActive))
}

func TestNextNumber_DrawsEveryNumberOnce(t *testing.T) {
	rng := rand.New(rand.NewPCG(11, 12))
	g := Game{Status: StatusActive}
	for i := 0; i < 90; i++ {
		n, err := NextNumber(g, rng)
		require.NoError(t, err)
		g, err = g.AppendNumber(n)
		require.NoError(t, err)
	}
	assert.Len(t, g.NumbersCalled, 90)
	assert.Empty(t, g.Remaining())

	_, err := NextNumber(g, rng)
	assert.True(t, errors.Is(err, ErrAllNumbersCalled))
	_, err = g.AppendNumber(1)
	assert.Error(t, err)
}
