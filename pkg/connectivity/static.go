package connectivity

import (
	"context"
	"sync/atomic"
)

// Static is a manually driven Checker/Subscriber, used for forced-offline runs and tests.
type Static struct {
	online atomic.Bool
	probes atomic.Int64
	subs   subscribers
}

func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

func (s *Static) IsConnected(context.Context) bool {
	s.probes.Add(1)
	return s.online.Load()
}

// Probes reports how many times IsConnected was called.
func (s *Static) Probes() int64 { return s.probes.Load() }

// Set changes the status and notifies subscribers on a transition.
func (s *Static) Set(online bool) {
	if s.online.Swap(online) == online {
		return
	}
	s.subs.notify(online)
}

func (s *Static) Subscribe(fn func(online bool)) func() {
	return s.subs.add(fn)
}
