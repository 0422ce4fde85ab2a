package orchestrator

// subState identifies an independently sequenced part of ViewState.
type subState int

const (
	subWeather subState = iota
	subFavorites
	subHistory
	subStats
	subChart
	numSubStates
)

func (k subState) String() string {
	switch k {
	case subWeather:
		return "weather"
	case subFavorites:
		return "favorites"
	case subHistory:
		return "history"
	case subStats:
		return "stats"
	case subChart:
		return "chart"
	default:
		return "unknown"
	}
}

// sequencer tags requests per sub-state and decides whether a response may
// still be applied. It is not safe for concurrent use.
type sequencer struct {
	issued  [numSubStates]uint64
	applied [numSubStates]uint64
}

// next returns the tag for a new request of k.
func (s *sequencer) next(k subState) uint64 {
	s.issued[k]++
	return s.issued[k]
}

// accept records seq as applied for k unless a later request of k was
// already applied.
func (s *sequencer) accept(k subState, seq uint64) bool {
	if seq <= s.applied[k] {
		return false
	}
	s.applied[k] = seq
	return true
}

// pending reports whether a request of k newer than seq was issued.
func (s *sequencer) pending(k subState, seq uint64) bool {
	return s.issued[k] > seq
}

// invalidate marks every issued request as applied, so no response that is
// still in flight will be accepted.
func (s *sequencer) invalidate() {
	s.applied = s.issued
}
