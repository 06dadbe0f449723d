// Package connectivity reports network reachability of the remote marketplace API.
package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Checker answers whether the remote side is currently reachable.
type Checker interface {
	IsConnected(ctx context.Context) bool
}

// Subscriber delivers online/offline transitions. The returned func stops delivery.
type Subscriber interface {
	Subscribe(fn func(online bool)) (unsubscribe func())
}

// CheckerFunc adapts a plain function to Checker.
type CheckerFunc func(ctx context.Context) bool

func (f CheckerFunc) IsConnected(ctx context.Context) bool { return f(ctx) }

// HTTPProbe treats any HTTP response below 500 from the target as online.
type HTTPProbe struct {
	URL    string
	Client *http.Client
}

func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPProbe{URL: url, Client: &http.Client{Timeout: timeout}}
}

func (p *HTTPProbe) IsConnected(ctx context.Context) bool {
	if p == nil || p.URL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode < http.StatusInternalServerError
}

// subscribers is a registry of transition callbacks shared by Monitor and Static.
type subscribers struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(bool)
}

func (s *subscribers) add(fn func(bool)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = map[int]func(bool){}
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.fns, id)
			s.mu.Unlock()
		})
	}
}

func (s *subscribers) notify(online bool) {
	s.mu.Lock()
	fns := make([]func(bool), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(online)
	}
}
