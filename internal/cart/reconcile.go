package cart

// reconcilePlan is the productId-keyed diff between local lines L and remote lines R.
type reconcilePlan struct {
	toPush    []Line       // L \ R
	toPull    []RemoteLine // R \ L
	confirmed []Line       // L ∩ R, local form
}

func planReconcile(local []Line, remote []RemoteLine) reconcilePlan {
	remoteByID := make(map[int64]struct{}, len(remote))
	for _, r := range remote {
		remoteByID[r.ProductID] = struct{}{}
	}
	localByID := make(map[int64]struct{}, len(local))
	for _, l := range local {
		localByID[l.ProductID] = struct{}{}
	}

	var plan reconcilePlan
	for _, l := range local {
		if _, ok := remoteByID[l.ProductID]; ok {
			plan.confirmed = append(plan.confirmed, l)
		} else {
			plan.toPush = append(plan.toPush, l)
		}
	}
	pulled := map[int64]struct{}{}
	for _, r := range remote {
		if _, ok := localByID[r.ProductID]; ok {
			continue
		}
		if _, dup := pulled[r.ProductID]; dup {
			continue
		}
		pulled[r.ProductID] = struct{}{}
		plan.toPull = append(plan.toPull, r)
	}
	return plan
}

// mergeReconciled keeps every current line in its local form (confirmed and pushed lines
// alike), clears Local on lines the server accepted, and appends pulled lines not present.
func mergeReconciled(current Snapshot, pushedOK map[int64]struct{}, pulled []RemoteLine) (Snapshot, int) {
	merged := Snapshot{Lines: make([]Line, 0, len(current.Lines)+len(pulled)), UpdatedAt: current.UpdatedAt}
	for _, line := range current.Lines {
		if _, ok := pushedOK[line.ProductID]; ok {
			line.Local = false
		}
		merged.Lines = append(merged.Lines, line)
	}
	added := 0
	for _, r := range pulled {
		if merged.indexOf(r.ProductID) >= 0 {
			continue
		}
		merged.Lines = append(merged.Lines, r.toLine())
		added++
	}
	merged.recompute()
	return merged, added
}
