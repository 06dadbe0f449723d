package cart

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-cart/pkg/connectivity"
	"github.com/angelmondragon/packfinderz-cart/pkg/devicestore"
)

var errRemoteDown = errors.New("remote down")

type stubRemote struct {
	mu     sync.Mutex
	lines  []RemoteLine
	prices map[int64]decimal.Decimal
	calls  map[string]int

	listErr     error
	addErr      error
	addFailFor  map[int64]bool
	addAnswer   *RemoteLine
	removeErr   error
	clearErr    error
	validateErr error
	validation  RemoteValidation

	checkoutReq CheckoutRequest
	session     CheckoutSession
	checkoutErr error
}

func newStubRemote(lines ...RemoteLine) *stubRemote {
	return &stubRemote{lines: lines, prices: map[int64]decimal.Decimal{}, calls: map[string]int{}}
}

func (s *stubRemote) record(name string) {
	s.calls[name]++
}

func (s *stubRemote) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

func (s *stubRemote) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

func (s *stubRemote) List(context.Context) ([]RemoteLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("list")
	if s.listErr != nil {
		return nil, s.listErr
	}
	return append([]RemoteLine(nil), s.lines...), nil
}

func (s *stubRemote) Add(_ context.Context, productID int64, quantity int) (RemoteLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("add")
	if s.addErr != nil || s.addFailFor[productID] {
		return RemoteLine{}, errRemoteDown
	}
	if s.addAnswer != nil {
		return *s.addAnswer, nil
	}
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines[i].Quantity += quantity
			return s.lines[i], nil
		}
	}
	price, ok := s.prices[productID]
	if !ok {
		price = decimal.NewFromInt(10)
	}
	line := RemoteLine{ProductID: productID, Quantity: quantity, UnitPrice: price, Available: true}
	s.lines = append(s.lines, line)
	return line, nil
}

func (s *stubRemote) Remove(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("remove")
	if s.removeErr != nil {
		return s.removeErr
	}
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			break
		}
	}
	return nil
}

func (s *stubRemote) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("clear")
	if s.clearErr != nil {
		return s.clearErr
	}
	s.lines = nil
	return nil
}

func (s *stubRemote) ValidateForCheckout(context.Context) (RemoteValidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("validate")
	if s.validateErr != nil {
		return RemoteValidation{}, s.validateErr
	}
	return s.validation, nil
}

func (s *stubRemote) CreateCheckout(_ context.Context, req CheckoutRequest) (CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("checkout")
	s.checkoutReq = req
	if s.checkoutErr != nil {
		return CheckoutSession{}, s.checkoutErr
	}
	return s.session, nil
}

func (s *stubRemote) remoteLine(productID int64) (RemoteLine, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return RemoteLine{}, false
}

// flakyStore wraps the memory backend and fails on demand.
type flakyStore struct {
	*devicestore.Memory
	setErr    error
	getErr    error
	removeErr error
}

func (f *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.Memory.Set(ctx, key, value)
}

func (f *flakyStore) Remove(ctx context.Context, key string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.Memory.Remove(ctx, key)
}

type testEnv struct {
	manager *Manager
	remote  *stubRemote
	store   *flakyStore
	conn    *connectivity.Static
	notices *NoticeBuffer
}

func newTestEnv(t *testing.T, online bool, opts Options, lines ...RemoteLine) *testEnv {
	t.Helper()

	env := &testEnv{
		remote:  newStubRemote(lines...),
		store:   &flakyStore{Memory: devicestore.NewMemory()},
		conn:    connectivity.NewStatic(online),
		notices: NewNoticeBuffer(16),
	}
	ids := 0
	mgr, err := NewManager(ManagerParams{
		Store:        env.store,
		Remote:       env.remote,
		Connectivity: env.conn,
		Notifier:     env.notices,
		Clock:        func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
		IDs: func() string {
			ids++
			return "id-" + strconv.Itoa(ids)
		},
		Options: opts,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	env.manager = mgr
	return env
}

func money(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertInvariants(t *testing.T, s Snapshot) {
	t.Helper()
	seen := map[int64]bool{}
	all := len(s.Lines) > 0
	for _, line := range s.Lines {
		if seen[line.ProductID] {
			t.Fatalf("duplicate line for product %d", line.ProductID)
		}
		seen[line.ProductID] = true
		if line.Quantity < 1 {
			t.Fatalf("line %d has quantity %d", line.ProductID, line.Quantity)
		}
		want := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		if !line.Subtotal.Equal(want) {
			t.Fatalf("line %d subtotal %s, want %s", line.ProductID, line.Subtotal, want)
		}
		if !line.Selected {
			all = false
		}
	}
	if s.SelectAll != all {
		t.Fatalf("selectAll=%v, want %v", s.SelectAll, all)
	}
}
