package blocktime

// Series is the rolling window of observed inter-block deltas in milliseconds.
// A limit of zero keeps every sample.
type Series struct {
	limit  int
	deltas []int64
	sum    int64
}

func NewSeries(limit int) *Series {
	if limit < 0 {
		limit = 0
	}
	return &Series{limit: limit}
}

// Append adds a positive delta, evicting the oldest sample once the window is full.
// Non-positive deltas are ignored and reported as not added.
func (s *Series) Append(delta int64) bool {
	if delta <= 0 {
		return false
	}
	if s.limit > 0 && len(s.deltas) == s.limit {
		s.sum -= s.deltas[0]
		s.deltas = s.deltas[1:]
	}
	s.deltas = append(s.deltas, delta)
	s.sum += delta
	return true
}

func (s *Series) Len() int { return len(s.deltas) }

func (s *Series) Values() []int64 {
	return append([]int64(nil), s.deltas...)
}

// Mean is the integer mean of the window, zero when empty.
func (s *Series) Mean() int64 {
	if len(s.deltas) == 0 {
		return 0
	}
	return s.sum / int64(len(s.deltas))
}
