package models

// MemberDetail is a display-name snapshot for one group member.
// Names are captured at join time so the group stays renderable even if
// the user directory is unavailable.
type MemberDetail struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Group represents one time-boxed collective order tied to a single restaurant.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string `json:"id"`

	// Name is the display name of the group (e.g., "Friday Lunch").
	Name string `json:"name"`

	// RestaurantID references the restaurant this group orders from.
	// Fixed at creation; there is no change-restaurant operation.
	RestaurantID string `json:"restaurantId"`

	// OwnerID is the member who created the group. The owner is the only
	// principal allowed to submit or delete the group.
	OwnerID string `json:"ownerId"`

	// Members lists member user IDs in join order. The owner is always
	// the first entry.
	Members []string `json:"members"`

	// MemberDetails holds exactly one name snapshot per entry in Members.
	MemberDetails []MemberDetail `json:"memberDetails"`

	// Dishes maps member ID -> dish ID -> quantity. Quantities are always
	// positive; a zero or negative result removes the key instead.
	Dishes map[string]map[string]int `json:"dishes"`

	// DeadlineAt is the Unix millisecond timestamp after which the group
	// no longer accepts edits.
	DeadlineAt int64 `json:"deadlineAt"`

	// SubmittedAt is the Unix millisecond timestamp of submission, or 0
	// if the order has not been submitted yet.
	SubmittedAt int64 `json:"submittedAt,omitempty"`

	// CreatedAt is the Unix millisecond timestamp when the group was created.
	CreatedAt int64 `json:"createdAt"`
}

// IsMember reports whether userID appears in the member list.
func (g *Group) IsMember(userID string) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// Quantity returns the saved quantity for (userID, dishID), zero if absent.
func (g *Group) Quantity(userID, dishID string) int {
	return g.Dishes[userID][dishID]
}

// Clone returns a deep copy of the group. Mutating the copy never affects
// the original; canonical state handed out by the store is always cloned.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := *g
	out.Members = append([]string(nil), g.Members...)
	out.MemberDetails = append([]MemberDetail(nil), g.MemberDetails...)
	out.Dishes = make(map[string]map[string]int, len(g.Dishes))
	for userID, byDish := range g.Dishes {
		inner := make(map[string]int, len(byDish))
		for dishID, qty := range byDish {
			inner[dishID] = qty
		}
		out.Dishes[userID] = inner
	}
	return &out
}
