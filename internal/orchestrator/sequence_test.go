package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequencerDropsSuperseded(t *testing.T) {
	var s sequencer

	r1 := s.next(subHistory)
	r2 := s.next(subHistory)
	assert.True(t, s.pending(subHistory, r1))

	assert.True(t, s.accept(subHistory, r2))
	assert.False(t, s.accept(subHistory, r1), "older response after a newer one was applied")
	assert.False(t, s.accept(subHistory, r2), "a response is applied once")
	assert.False(t, s.pending(subHistory, r2))
}

func TestSequencerKeepsSubStatesApart(t *testing.T) {
	var s sequencer

	h := s.next(subHistory)
	s.next(subStats)
	st := s.next(subStats)
	assert.True(t, s.accept(subStats, st))
	assert.True(t, s.accept(subHistory, h))
}

func TestSequencerInvalidate(t *testing.T) {
	var s sequencer

	old := s.next(subFavorites)
	s.invalidate()
	assert.False(t, s.accept(subFavorites, old))

	fresh := s.next(subFavorites)
	assert.True(t, s.accept(subFavorites, fresh))
}
