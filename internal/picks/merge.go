// Package picks implements the pure group-order engine: merging a viewer's
// unsaved dish selections into the saved group state, aggregating per-dish
// totals across members, and computing deadline countdowns.
//
// Nothing in this package performs I/O or holds state. Inputs are treated as
// immutable snapshots and outputs never alias them, so callers can hand
// results straight to a rendering layer while canonical state keeps moving.
package picks

// Merge combines saved selections for a whole group with one viewer's local,
// unsaved edits and returns the result as a fresh structure.
//
// saved maps member ID -> dish ID -> quantity and is deep-copied, never
// mutated. When isMember is false the local edits are ignored entirely: a
// non-member's picks are preview-only and must not leak into group totals.
// For a member, a local quantity > 0 overwrites the saved one and a local
// quantity <= 0 removes the dish, which lets a local "set to zero" suppress a
// previously saved selection without a round trip.
func Merge(saved map[string]map[string]int, local map[string]int, viewerID string, isMember bool) map[string]map[string]int {
	merged := make(map[string]map[string]int, len(saved))
	for userID, byDish := range saved {
		inner := make(map[string]int, len(byDish))
		for dishID, qty := range byDish {
			inner[dishID] = qty
		}
		merged[userID] = inner
	}

	if !isMember {
		return merged
	}

	for dishID, qty := range local {
		if qty > 0 {
			if merged[viewerID] == nil {
				merged[viewerID] = make(map[string]int)
			}
			merged[viewerID][dishID] = qty
		} else {
			delete(merged[viewerID], dishID)
		}
	}
	return merged
}
