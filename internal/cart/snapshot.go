package cart

import (
	"encoding/json"
	"fmt"
	"time"

	clone "github.com/huandu/go-clone"
)

// Snapshot is the ordered set of lines plus the derived select-all flag.
type Snapshot struct {
	Lines     []Line    `json:"lines"`
	SelectAll bool      `json:"selectAll"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// recompute restores every derived field: line subtotals and SelectAll.
func (s *Snapshot) recompute() {
	all := len(s.Lines) > 0
	for i := range s.Lines {
		s.Lines[i].normalize()
		if !s.Lines[i].Selected {
			all = false
		}
	}
	s.SelectAll = all
}

func (s Snapshot) indexOf(productID int64) int {
	for i := range s.Lines {
		if s.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Find returns the line for productID.
func (s Snapshot) Find(productID int64) (Line, bool) {
	if i := s.indexOf(productID); i >= 0 {
		return s.Lines[i], true
	}
	return Line{}, false
}

// Len reports the number of lines.
func (s Snapshot) Len() int { return len(s.Lines) }

// Clone returns a deep copy that shares nothing with s.
func (s Snapshot) Clone() Snapshot {
	out := clone.Clone(s).(Snapshot)
	if out.Lines == nil {
		out.Lines = []Line{}
	}
	return out
}

// snapshotFromRemote builds a snapshot from the server list, merging duplicate product ids.
func snapshotFromRemote(remote []RemoteLine, now time.Time) Snapshot {
	snap := Snapshot{Lines: make([]Line, 0, len(remote)), UpdatedAt: now}
	for _, r := range remote {
		if i := snap.indexOf(r.ProductID); i >= 0 {
			snap.Lines[i].Quantity += r.Quantity
			continue
		}
		snap.Lines = append(snap.Lines, r.toLine())
	}
	snap.recompute()
	return snap
}

func encodeSnapshot(s Snapshot) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("encode cart snapshot: %w", err)
	}
	return string(raw), nil
}

// decodeSnapshot parses a persisted snapshot and re-establishes its invariants, so a
// hand-edited or older payload can never yield duplicate or zero-quantity lines.
func decodeSnapshot(raw string) (Snapshot, error) {
	var stored Snapshot
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return Snapshot{}, fmt.Errorf("decode cart snapshot: %w", err)
	}
	snap := Snapshot{Lines: make([]Line, 0, len(stored.Lines)), UpdatedAt: stored.UpdatedAt}
	for _, line := range stored.Lines {
		if line.Quantity < 1 || line.ProductID <= 0 {
			continue
		}
		if i := snap.indexOf(line.ProductID); i >= 0 {
			snap.Lines[i].Quantity += line.Quantity
			continue
		}
		snap.Lines = append(snap.Lines, line)
	}
	snap.recompute()
	return snap, nil
}
