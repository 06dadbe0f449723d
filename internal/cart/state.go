package cart

// State is the manager's lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateLoading      State = "loading"
	StateRefreshing   State = "refreshing"
	StateReady        State = "ready"
	StateMutating     State = "mutating"
	StateSyncing      State = "syncing"
	StateOfflineReady State = "offline_ready"
	StateError        State = "error"
)

// Busy reports whether an operation is in flight.
func (s State) Busy() bool {
	switch s {
	case StateLoading, StateRefreshing, StateMutating, StateSyncing:
		return true
	default:
		return false
	}
}

func settledState(online bool) State {
	if online {
		return StateReady
	}
	return StateOfflineReady
}
