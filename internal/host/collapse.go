package host

import "sync/atomic"

// CollapseSignal counts collapse-all requests; the UI collapses its tree whenever the
// count it last saw changes.
type CollapseSignal struct {
	n atomic.Uint64
}

// CollapseAll records a collapse-all request.
func (s *CollapseSignal) CollapseAll() {
	s.n.Add(1)
}

// Generation returns the number of collapse-all requests so far.
func (s *CollapseSignal) Generation() uint64 {
	return s.n.Load()
}
