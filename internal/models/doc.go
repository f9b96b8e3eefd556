// Package models defines the core domain models for lunchpool.
//
// # Models
//
//   - Group: one time-boxed collective order, owned by its creator
//   - Restaurant / Dish: read-only reference data (a restaurant and its menu)
//   - User: a registered account, also the user directory for name resolution
//   - MemberDetail: per-group display-name snapshot for a member
//   - Member: derived {id, name, initial} view, computed on demand
//
// # Design Principles
//
//  1. **IDs over pointers**: relationships are ID strings (RestaurantID,
//     OwnerID, member IDs) to avoid circular references and keep models
//     trivially serializable.
//  2. **Positive quantities only**: Group.Dishes never stores a zero or
//     negative quantity; the key is removed instead. Absence of a member's
//     entry means zero selections.
//  3. **Millisecond timestamps**: DeadlineAt and SubmittedAt are Unix
//     milliseconds so sub-minute countdowns stay exact on the wire.
//  4. **Clone at the boundary**: canonical state is handed out only as deep
//     copies (Group.Clone); derived views never alias store-owned maps.
package models
