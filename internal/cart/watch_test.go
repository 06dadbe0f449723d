package cart

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/packfinderz-cart/pkg/connectivity"
	"github.com/angelmondragon/packfinderz-cart/pkg/devicestore"
)

func TestMutationDoesNotRunReconnectInline(t *testing.T) {
	t.Parallel()

	var online atomic.Bool
	mon := connectivity.NewMonitor(connectivity.CheckerFunc(func(context.Context) bool {
		return online.Load()
	}), time.Hour, nil)
	remote := newStubRemote()
	mgr, err := NewManager(ManagerParams{
		Store:        devicestore.NewMemory(),
		Remote:       remote,
		Connectivity: mon,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr.Load(ctx)
	var reconnects atomic.Int32
	stopWatch := mgr.Watch(ctx, mon)
	defer stopWatch()
	stopCount := mon.Subscribe(func(v bool) {
		if v {
			reconnects.Add(1)
		}
	})
	defer stopCount()

	online.Store(true)
	if _, err := mgr.AddItem(ctx, 3, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if reconnects.Load() != 0 || remote.Calls("list") != 0 {
		t.Fatalf("reconnect ran inside AddItem: reconnects=%d lists=%d", reconnects.Load(), remote.Calls("list"))
	}
	if remote.Calls("add") != 1 {
		t.Fatalf("expected the add to reach the server, got %d", remote.Calls("add"))
	}
	if got := mgr.State(); got != StateReady {
		t.Fatalf("expected ready after online add, got %s", got)
	}

	go mon.Run(ctx)
	deadline := time.Now().Add(2 * time.Second)
	for remote.Calls("list") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("queued reconnect was never delivered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
