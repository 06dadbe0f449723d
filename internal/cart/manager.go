// Package cart holds the offline-tolerant cart state manager. It keeps a locally
// persisted snapshot of the cart and reconciles it with the remote cart API whenever
// connectivity allows.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/packfinderz-cart/pkg/connectivity"
	"github.com/angelmondragon/packfinderz-cart/pkg/devicestore"
	pkgerrors "github.com/angelmondragon/packfinderz-cart/pkg/errors"
	"github.com/angelmondragon/packfinderz-cart/pkg/logger"
	"github.com/angelmondragon/packfinderz-cart/pkg/metrics"
)

const (
	DefaultSnapshotKey       = "cart:snapshot"
	defaultMirrorConcurrency = 4
)

// DefaultShippingFee is applied when no fee is configured.
var DefaultShippingFee = decimal.RequireFromString("15.00")

// errUnchanged lets a mutation skip persistence when it had nothing to do.
var errUnchanged = errors.New("cart unchanged")

type Options struct {
	SnapshotKey   string
	ShippingFee   decimal.Decimal
	CheckoutScope CheckoutScope
	// AsyncMirror returns before remote mirror calls resolve. Close waits for them.
	AsyncMirror       bool
	MirrorConcurrency int
}

type ManagerParams struct {
	Store        devicestore.Store
	Remote       RemoteCart
	Checkout     RemoteCheckout
	Connectivity connectivity.Checker
	Notifier     Notifier
	Logger       *logger.Logger
	Metrics      *metrics.CartMetrics
	Clock        func() time.Time
	IDs          func() string
	Options      Options
}

// SyncReport describes one reconciliation pass.
type SyncReport struct {
	Pushed     int      `json:"pushed"`
	PushFailed int      `json:"pushFailed"`
	Pulled     int      `json:"pulled"`
	Confirmed  int      `json:"confirmed"`
	Offline    bool     `json:"offline"`
	Failed     bool     `json:"failed"`
	Snapshot   Snapshot `json:"snapshot"`
}

type Manager struct {
	store    devicestore.Store
	remote   RemoteCart
	checkout RemoteCheckout
	conn     connectivity.Checker
	notifier Notifier
	logg     *logger.Logger
	metrics  *metrics.CartMetrics
	now      func() time.Time
	newID    func() string
	opts     Options

	// mu guards snap and serializes every read-modify-write with its persistence write.
	mu   sync.Mutex
	snap Snapshot

	statusMu sync.RWMutex
	state    State
	online   bool
	lastErr  error

	mirrors sync.WaitGroup
}

func NewManager(p ManagerParams) (*Manager, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("cart manager requires a device store")
	}
	if p.Remote == nil {
		return nil, fmt.Errorf("cart manager requires a remote cart")
	}
	if p.Connectivity == nil {
		return nil, fmt.Errorf("cart manager requires a connectivity checker")
	}
	opts := p.Options
	if opts.SnapshotKey == "" {
		opts.SnapshotKey = DefaultSnapshotKey
	}
	if opts.ShippingFee.IsNegative() {
		return nil, fmt.Errorf("shipping fee must not be negative")
	}
	if opts.ShippingFee.IsZero() {
		opts.ShippingFee = DefaultShippingFee
	}
	if opts.CheckoutScope == "" {
		opts.CheckoutScope = CheckoutScopeServerCart
	}
	if !opts.CheckoutScope.valid() {
		return nil, fmt.Errorf("unknown checkout scope %q", opts.CheckoutScope)
	}
	if opts.MirrorConcurrency <= 0 {
		opts.MirrorConcurrency = defaultMirrorConcurrency
	}

	checkout := p.Checkout
	if checkout == nil {
		if rc, ok := p.Remote.(RemoteCheckout); ok {
			checkout = rc
		}
	}

	m := &Manager{
		store:    p.Store,
		remote:   p.Remote,
		checkout: checkout,
		conn:     p.Connectivity,
		notifier: p.Notifier,
		logg:     p.Logger,
		metrics:  p.Metrics,
		now:      p.Clock,
		newID:    p.IDs,
		opts:     opts,
		snap:     Snapshot{Lines: []Line{}},
		state:    StateIdle,
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.logg == nil {
		m.logg = logger.Nop()
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if m.newID == nil {
		m.newID = uuid.NewString
	}
	return m, nil
}

// CheckConnectivity asks the reachability checker and records the answer.
func (m *Manager) CheckConnectivity(ctx context.Context) bool {
	online := m.conn.IsConnected(ctx)
	m.statusMu.Lock()
	m.online = online
	if !online && m.state == StateReady {
		m.state = StateOfflineReady
	}
	m.statusMu.Unlock()
	return online
}

// Online returns the last recorded connectivity answer without probing.
func (m *Manager) Online() bool {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.online
}

func (m *Manager) State() State {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.state
}

// LastError returns the most recent local failure, cleared by a clean load.
func (m *Manager) LastError() error {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.lastErr
}

// Snapshot returns a deep copy of the current cart.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap.Clone()
}

func (m *Manager) ShippingFee() decimal.Decimal { return m.opts.ShippingFee }

func (m *Manager) CheckoutScope() CheckoutScope { return m.opts.CheckoutScope }

func (m *Manager) Summary() OrderSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return CalculateSummary(m.snap, m.opts.ShippingFee)
}

// Load prefers the remote cart and falls back to the persisted snapshot.
func (m *Manager) Load(ctx context.Context) Snapshot {
	return m.load(ctx, "load", StateLoading)
}

// Refresh reloads under the refreshing sub-state.
func (m *Manager) Refresh(ctx context.Context) Snapshot {
	return m.load(ctx, "refresh", StateRefreshing)
}

func (m *Manager) load(ctx context.Context, op string, busy State) Snapshot {
	ctx = m.logg.WithOperation(ctx, op)
	defer m.observe(op, time.Now())
	m.setState(busy)

	online := m.CheckConnectivity(ctx)
	if online {
		remote, err := m.remote.List(ctx)
		if err == nil {
			return m.adoptRemote(ctx, op, remote)
		}
		m.remoteFailed(ctx, op, err)
	}
	m.metrics.IncOfflineFallback(op)
	return m.loadLocal(ctx, op, false)
}

func (m *Manager) adoptRemote(ctx context.Context, op string, remote []RemoteLine) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := snapshotFromRemote(remote, m.now())
	if err := m.persistLocked(ctx, next); err != nil {
		// The server list stays authoritative in memory even if the cache write fails.
		m.snap = next
		m.localFailed(ctx, op, err, "Your cart could not be saved on this device.")
		m.finish(StateError)
		return m.snap.Clone()
	}
	m.clearLastErr()
	m.finish(StateReady)
	return m.snap.Clone()
}

func (m *Manager) loadLocal(ctx context.Context, op string, online bool) Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx = m.logg.WithCartKey(ctx, m.opts.SnapshotKey)
	raw, ok, err := m.store.Get(ctx, m.opts.SnapshotKey)
	if err == nil && !ok {
		m.snap = Snapshot{Lines: []Line{}, UpdatedAt: m.now()}
		m.clearLastErr()
		m.finish(settledState(online))
		return m.snap.Clone()
	}
	var snap Snapshot
	if err == nil {
		snap, err = decodeSnapshot(raw)
	}
	if err != nil {
		m.snap = Snapshot{Lines: []Line{}, UpdatedAt: m.now()}
		m.localFailed(ctx, op, err, "Your saved cart could not be read.")
		m.finish(StateError)
		return m.snap.Clone()
	}
	m.snap = snap
	m.metrics.SetLines(len(snap.Lines))
	m.clearLastErr()
	m.finish(settledState(online))
	return m.snap.Clone()
}

// AddItem adds quantity of productID. A zero quantity means one.
func (m *Manager) AddItem(ctx context.Context, productID int64, quantity int) (Line, error) {
	const op = "add_item"
	ctx = m.logg.WithProductID(m.logg.WithOperation(ctx, op), productID)
	defer m.observe(op, time.Now())

	if productID <= 0 {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}
	if quantity < 0 {
		return Line{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}
	if quantity == 0 {
		quantity = 1
	}

	m.setState(StateMutating)
	online := m.CheckConnectivity(ctx)

	var (
		server    RemoteLine
		confirmed bool
	)
	if online {
		line, err := m.remote.Add(ctx, productID, quantity)
		if err == nil && line.ProductID != 0 && line.ProductID != productID {
			err = pkgerrors.New(pkgerrors.CodeDependency,
				fmt.Sprintf("remote add returned product %d for product %d", line.ProductID, productID))
		}
		if err != nil {
			m.remoteFailed(ctx, op, err)
		} else {
			server, confirmed = line, true
		}
	}
	if !confirmed {
		m.metrics.IncOfflineFallback(op)
	}

	var result Line
	_, err := m.mutate(ctx, op, func(s *Snapshot) error {
		if i := s.indexOf(productID); i >= 0 {
			line := &s.Lines[i]
			line.Quantity += quantity
			if confirmed {
				line.UnitPrice = server.UnitPrice
				line.Available = server.Available
				line.Local = false
				if server.ProductName != "" {
					line.ProductName = server.ProductName
				}
				if server.ImageURL != "" {
					line.ImageURL = server.ImageURL
				}
			}
			line.normalize()
			result = *line
			return nil
		}
		var line Line
		if confirmed {
			if server.ProductID == 0 {
				server.ProductID = productID
			}
			if server.Quantity < 1 {
				server.Quantity = quantity
			}
			line = server.toLine()
		} else {
			line = Line{
				ID:        "local-" + m.newID(),
				ProductID: productID,
				Quantity:  quantity,
				UnitPrice: decimal.Zero,
				Available: true,
				Selected:  true,
				Local:     true,
			}
			line.normalize()
		}
		s.Lines = append(s.Lines, line)
		result = line
		return nil
	})
	m.finishOnline(online && confirmed, err)
	if err != nil {
		return Line{}, err
	}
	return result, nil
}

// UpdateQuantity sets the quantity of productID. Quantities below one are rejected.
func (m *Manager) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	const op = "update_quantity"
	ctx = m.logg.WithProductID(m.logg.WithOperation(ctx, op), productID)
	defer m.observe(op, time.Now())

	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	m.setState(StateMutating)
	_, err := m.mutate(ctx, op, func(s *Snapshot) error {
		i := s.indexOf(productID)
		if i < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		s.Lines[i].Quantity = quantity
		return nil
	})
	online := err == nil && m.CheckConnectivity(ctx)
	if online {
		m.mirror(ctx, op, func(ctx context.Context) error {
			if err := m.remote.Remove(ctx, productID); err != nil {
				return err
			}
			_, err := m.remote.Add(ctx, productID, quantity)
			return err
		})
	}
	m.finishOnline(online || m.Online(), err)
	return err
}

// RemoveItem removes productID locally and, when online, remotely. Missing ids are a no-op.
func (m *Manager) RemoveItem(ctx context.Context, productID int64) error {
	const op = "remove_item"
	ctx = m.logg.WithProductID(m.logg.WithOperation(ctx, op), productID)
	defer m.observe(op, time.Now())

	m.setState(StateMutating)
	_, err := m.mutate(ctx, op, func(s *Snapshot) error {
		i := s.indexOf(productID)
		if i < 0 {
			return errUnchanged
		}
		s.Lines = append(s.Lines[:i], s.Lines[i+1:]...)
		return nil
	})
	online := err == nil && m.CheckConnectivity(ctx)
	if online {
		m.mirror(ctx, op, func(ctx context.Context) error {
			return m.remote.Remove(ctx, productID)
		})
	}
	m.finishOnline(online || m.Online(), err)
	return err
}

// RemoveSelected drops every selected line and reports how many were removed.
func (m *Manager) RemoveSelected(ctx context.Context) (int, error) {
	const op = "remove_selected"
	ctx = m.logg.WithOperation(ctx, op)
	defer m.observe(op, time.Now())

	m.setState(StateMutating)
	var removed []int64
	_, err := m.mutate(ctx, op, func(s *Snapshot) error {
		kept := s.Lines[:0]
		for _, line := range s.Lines {
			if line.Selected {
				removed = append(removed, line.ProductID)
				continue
			}
			kept = append(kept, line)
		}
		if len(removed) == 0 {
			return errUnchanged
		}
		s.Lines = kept
		return nil
	})
	if err != nil {
		m.finishOnline(m.Online(), err)
		return 0, err
	}

	online := len(removed) > 0 && m.CheckConnectivity(ctx)
	if online {
		ids := removed
		m.mirror(ctx, op, func(ctx context.Context) error {
			return m.removeRemote(ctx, ids)
		})
	}
	m.finishOnline(online || m.Online(), nil)
	return len(removed), nil
}

// removeRemote issues every removal without stopping at the first failure.
func (m *Manager) removeRemote(ctx context.Context, ids []int64) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	g.SetLimit(m.opts.MirrorConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := m.remote.Remove(ctx, id); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("remove product %d: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// ToggleSelection flips the selected flag of productID. It never touches the network.
func (m *Manager) ToggleSelection(ctx context.Context, productID int64) error {
	const op = "toggle_selection"
	ctx = m.logg.WithProductID(m.logg.WithOperation(ctx, op), productID)
	defer m.observe(op, time.Now())

	_, err := m.mutate(ctx, op, func(s *Snapshot) error {
		i := s.indexOf(productID)
		if i < 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
		}
		s.Lines[i].Selected = !s.Lines[i].Selected
		return nil
	})
	return err
}

// ToggleSelectAll selects every line unless all are already selected, in which case it
// clears the selection. Empty carts are left alone.
func (m *Manager) ToggleSelectAll(ctx context.Context) error {
	const op = "toggle_select_all"
	ctx = m.logg.WithOperation(ctx, op)
	defer m.observe(op, time.Now())

	_, err := m.mutate(ctx, op, func(s *Snapshot) error {
		if len(s.Lines) == 0 {
			return errUnchanged
		}
		target := !s.SelectAll
		for i := range s.Lines {
			s.Lines[i].Selected = target
		}
		return nil
	})
	return err
}

// ValidateForCheckout never fails; problems yield an invalid verdict.
func (m *Manager) ValidateForCheckout(ctx context.Context) (v Validation) {
	const op = "validate_for_checkout"
	ctx = m.logg.WithOperation(ctx, op)
	defer m.observe(op, time.Now())
	defer func() {
		if r := recover(); r != nil {
			m.logg.Error(ctx, "checkout validation panicked", fmt.Errorf("%v", r))
			v = invalidValidation()
		}
	}()

	if ctx.Err() != nil {
		return invalidValidation()
	}
	if m.CheckConnectivity(ctx) {
		remote, err := m.remote.ValidateForCheckout(ctx)
		if err == nil {
			out := Validation{
				Valid:            remote.Valid,
				UnavailableItems: make([]Line, 0, len(remote.Unavailable)),
				Message:          remote.Message,
				Source:           "remote",
			}
			for _, r := range remote.Unavailable {
				out.UnavailableItems = append(out.UnavailableItems, r.toLine())
			}
			return out
		}
		m.remoteFailed(ctx, op, err)
	}
	m.metrics.IncOfflineFallback(op)
	return ValidateLocal(m.Snapshot())
}

// ValidateLocal is the offline checkout verdict: valid iff non-empty and all lines available.
func ValidateLocal(s Snapshot) Validation {
	out := Validation{UnavailableItems: []Line{}, Source: "local"}
	if len(s.Lines) == 0 {
		out.Message = "cart is empty"
		return out
	}
	for _, line := range s.Lines {
		if !line.Available {
			out.UnavailableItems = append(out.UnavailableItems, line)
		}
	}
	if n := len(out.UnavailableItems); n > 0 {
		out.Message = fmt.Sprintf("%d item(s) unavailable", n)
		return out
	}
	out.Valid = true
	return out
}

func invalidValidation() Validation {
	return Validation{
		UnavailableItems: []Line{},
		Message:          "cart could not be validated, please try again",
		Source:           "local",
	}
}

// Synchronize reconciles the local and remote carts by product id.
func (m *Manager) Synchronize(ctx context.Context) SyncReport {
	const op = "synchronize"
	ctx = m.logg.WithOperation(ctx, op)
	defer m.observe(op, time.Now())

	if !m.CheckConnectivity(ctx) {
		m.notify(ctx, NoticeWarning, "Offline", "Connect to the internet to synchronize your cart.")
		m.settle()
		return SyncReport{Offline: true, Snapshot: m.Snapshot()}
	}

	m.setState(StateSyncing)
	before := m.Snapshot()
	report, err := m.reconcile(ctx, before)
	if err != nil {
		m.logg.Warn(m.logg.WithField(ctx, "error", err.Error()), "cart synchronization failed")
		m.notify(ctx, NoticeError, "Sync failed", "Your cart could not be synchronized. Please try again.")
		m.settle()
		return SyncReport{Failed: true, Snapshot: m.Snapshot()}
	}

	m.metrics.AddSynced("push", report.Pushed)
	m.metrics.AddSynced("pull", report.Pulled)
	m.notify(ctx, NoticeInfo, "Cart synchronized", fmt.Sprintf("%d item(s) sent to the server.", report.Pushed))
	m.settle()
	return report
}

func (m *Manager) reconcile(ctx context.Context, local Snapshot) (SyncReport, error) {
	remote, err := m.remote.List(ctx)
	if err != nil {
		m.metrics.IncRemoteFailure("synchronize")
		return SyncReport{}, fmt.Errorf("list remote cart: %w", err)
	}
	plan := planReconcile(local.Lines, remote)

	accepted := make(map[int64]struct{}, len(plan.confirmed)+len(plan.toPush))
	for _, line := range plan.confirmed {
		accepted[line.ProductID] = struct{}{}
	}
	var pushErrs error
	report := SyncReport{Confirmed: len(plan.confirmed)}
	for _, line := range plan.toPush {
		if _, err := m.remote.Add(ctx, line.ProductID, line.Quantity); err != nil {
			pushErrs = multierr.Append(pushErrs, fmt.Errorf("push product %d: %w", line.ProductID, err))
			report.PushFailed++
			continue
		}
		accepted[line.ProductID] = struct{}{}
		report.Pushed++
	}
	if pushErrs != nil {
		m.metrics.IncRemoteFailure("synchronize")
		m.logg.Warn(m.logg.WithField(ctx, "error", pushErrs.Error()), "some cart lines could not be pushed")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	merged, pulled := mergeReconciled(m.snap.Clone(), accepted, plan.toPull)
	if err := m.persistLocked(ctx, merged); err != nil {
		m.setLastErr(err)
		return SyncReport{}, fmt.Errorf("persist merged cart: %w", err)
	}
	report.Pulled = pulled
	report.Snapshot = m.snap.Clone()
	return report, nil
}

// InitiateCheckout creates a hosted payment session. Unlike every other operation it
// does not degrade offline, and remote failures are returned to the caller.
func (m *Manager) InitiateCheckout(ctx context.Context, successURL, cancelURL string) (CheckoutSession, error) {
	const op = "initiate_checkout"
	ctx = m.logg.WithOperation(ctx, op)
	defer m.observe(op, time.Now())

	if successURL == "" || cancelURL == "" {
		return CheckoutSession{}, pkgerrors.New(pkgerrors.CodeValidation, "success and cancel urls are required")
	}
	if m.checkout == nil {
		return CheckoutSession{}, pkgerrors.New(pkgerrors.CodeInternal, "checkout is not configured")
	}
	if !m.CheckConnectivity(ctx) {
		m.notify(ctx, NoticeWarning, "Offline", "Connect to the internet to complete checkout.")
		return CheckoutSession{}, pkgerrors.New(pkgerrors.CodeOffline, "checkout requires connectivity")
	}

	req := CheckoutRequest{SuccessURL: successURL, CancelURL: cancelURL}
	if m.opts.CheckoutScope == CheckoutScopeSelected {
		for _, line := range m.Snapshot().Lines {
			if line.Selected {
				req.ProductIDs = append(req.ProductIDs, line.ProductID)
			}
		}
		if len(req.ProductIDs) == 0 {
			return CheckoutSession{}, pkgerrors.New(pkgerrors.CodeValidation, "no items selected")
		}
	}
	ctx = m.logg.WithField(ctx, "checkout_scope", string(m.opts.CheckoutScope))

	session, err := m.checkout.CreateCheckout(ctx, req)
	if err != nil {
		m.metrics.IncRemoteFailure(op)
		m.logg.WarnErr(ctx, "checkout session creation failed", err)
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
		}
		return CheckoutSession{}, err
	}
	session.Scope = m.opts.CheckoutScope
	m.logg.Info(ctx, "checkout session created")
	return session, nil
}

// Clear empties the cart and deletes the persisted snapshot.
func (m *Manager) Clear(ctx context.Context) error {
	const op = "clear"
	ctx = m.logg.WithOperation(ctx, op)
	defer m.observe(op, time.Now())

	m.setState(StateMutating)
	m.mu.Lock()
	m.snap = Snapshot{Lines: []Line{}, UpdatedAt: m.now()}
	m.metrics.SetLines(0)
	err := m.store.Remove(ctx, m.opts.SnapshotKey)
	m.mu.Unlock()
	if err != nil {
		m.localFailed(ctx, op, err, "Your saved cart could not be removed from this device.")
		err = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart snapshot")
	}

	online := m.CheckConnectivity(ctx)
	if online {
		m.mirror(ctx, op, m.remote.Clear)
	}
	m.finishOnline(online, err)
	return err
}

// Watch reacts to connectivity transitions until ctx is done or stop is called.
func (m *Manager) Watch(ctx context.Context, sub connectivity.Subscriber) (stop func()) {
	unsubscribe := sub.Subscribe(func(online bool) {
		if ctx.Err() != nil {
			return
		}
		if !online {
			m.statusMu.Lock()
			m.online = false
			if m.state != StateError {
				m.state = StateOfflineReady
			}
			m.statusMu.Unlock()
			m.notify(ctx, NoticeWarning, "Offline", "You are offline. Changes are saved on this device.")
			return
		}
		m.reconnect(ctx)
	})
	var once sync.Once
	return func() { once.Do(unsubscribe) }
}

// Foreground is the app-resume hook: it pushes pending offline lines, then reloads.
func (m *Manager) Foreground(ctx context.Context) Snapshot {
	return m.reconnect(ctx)
}

func (m *Manager) reconnect(ctx context.Context) Snapshot {
	if m.hasLocalLines() && m.CheckConnectivity(ctx) {
		m.Synchronize(ctx)
	}
	return m.Load(ctx)
}

func (m *Manager) hasLocalLines() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, line := range m.snap.Lines {
		if line.Local {
			return true
		}
	}
	return false
}

// Close waits for in-flight remote mirrors.
func (m *Manager) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.mirrors.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// mutate applies fn to a copy of the snapshot and commits it once it is persisted.
func (m *Manager) mutate(ctx context.Context, op string, fn func(*Snapshot) error) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.snap.Clone()
	if err := fn(&next); err != nil {
		if errors.Is(err, errUnchanged) {
			return m.snap.Clone(), nil
		}
		return m.snap.Clone(), err
	}
	next.recompute()
	if err := m.persistLocked(ctx, next); err != nil {
		m.localFailed(ctx, op, err, "Your cart could not be saved on this device.")
		return m.snap.Clone(), pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist cart snapshot")
	}
	return m.snap.Clone(), nil
}

// persistLocked writes next to the device store and makes it current. Callers hold mu.
func (m *Manager) persistLocked(ctx context.Context, next Snapshot) error {
	next.UpdatedAt = m.now()
	raw, err := encodeSnapshot(next)
	if err != nil {
		return err
	}
	if err := m.store.Set(ctx, m.opts.SnapshotKey, raw); err != nil {
		return fmt.Errorf("store cart snapshot: %w", err)
	}
	m.snap = next
	m.metrics.SetLines(len(next.Lines))
	return nil
}

// mirror runs a remote call whose failure is logged and never rolls back local state.
func (m *Manager) mirror(ctx context.Context, op string, call func(context.Context) error) {
	run := func(ctx context.Context) {
		if err := call(ctx); err != nil {
			m.remoteFailed(ctx, op, err)
		}
	}
	if !m.opts.AsyncMirror {
		run(ctx)
		return
	}
	m.mirrors.Add(1)
	go func() {
		defer m.mirrors.Done()
		run(context.WithoutCancel(ctx))
	}()
}

func (m *Manager) remoteFailed(ctx context.Context, op string, err error) {
	m.metrics.IncRemoteFailure(op)
	m.logg.WarnErr(ctx, "remote cart call failed, continuing locally", err)
}

func (m *Manager) localFailed(ctx context.Context, op string, err error, message string) {
	m.setLastErr(err)
	m.logg.Error(m.logg.WithCartKey(ctx, m.opts.SnapshotKey), op+": device store failure", err)
	m.notify(ctx, NoticeError, "Something went wrong", message)
}

func (m *Manager) notify(ctx context.Context, level NoticeLevel, title, message string) {
	m.notifier.Notify(ctx, Notice{Level: level, Title: title, Message: message, At: m.now()})
}

func (m *Manager) observe(op string, started time.Time) {
	m.metrics.ObserveDuration(op, time.Since(started))
}

func (m *Manager) setState(s State) {
	m.statusMu.Lock()
	m.state = s
	m.statusMu.Unlock()
}

// finish sets a terminal state for the current operation.
func (m *Manager) finish(s State) { m.setState(s) }

// settle returns to the resting state implied by the recorded connectivity.
func (m *Manager) settle() {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	if m.state == StateError && m.lastErr != nil {
		return
	}
	m.state = settledState(m.online)
}

func (m *Manager) finishOnline(online bool, err error) {
	if err != nil && pkgerrors.IsCode(err, pkgerrors.CodeInternal) {
		m.setState(StateError)
		return
	}
	m.setState(settledState(online))
}

func (m *Manager) setLastErr(err error) {
	m.statusMu.Lock()
	m.lastErr = err
	m.statusMu.Unlock()
}

func (m *Manager) clearLastErr() { m.setLastErr(nil) }
