package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sokha/lunchpool/internal/models"
	"github.com/sokha/lunchpool/internal/storage"
)

// Config holds the group store's policy knobs.
type Config struct {
	// MinDeadlineLead is how far in the future a new group's deadline must
	// lie. Defaults to 5 minutes.
	MinDeadlineLead time.Duration

	// LockAfterSubmit rejects join and dish mutations on a submitted group
	// with ErrGroupClosed. Off by default: a submitted group stays
	// mechanically writable and only the UI disables controls.
	LockAfterSubmit bool

	// PruneDishesOnLeave removes a member's saved selections when they
	// leave. Off by default: the selections keep counting toward the
	// group totals.
	PruneDishesOnLeave bool
}

// GroupService is the group store: the sole writer of canonical group state.
// It keeps an in-memory snapshot of all groups plus restaurant reference
// data and the user directory, loaded by Bootstrap and patched in place as
// mutations round-trip through the persistence gateway.
//
// Every accessor returns deep copies; callers never observe a mutation in a
// value they were previously handed.
type GroupService struct {
	store storage.Store
	clock clockwork.Clock
	cfg   Config

	mu          sync.RWMutex
	groups      []*models.Group
	restaurants []*models.Restaurant
	users       map[string]*models.User
}

// NewGroupService creates a group store over the given gateway and clock.
func NewGroupService(store storage.Store, clock clockwork.Clock, cfg Config) *GroupService {
	if cfg.MinDeadlineLead == 0 {
		cfg.MinDeadlineLead = 5 * time.Minute
	}
	return &GroupService{
		store: store,
		clock: clock,
		cfg:   cfg,
		users: make(map[string]*models.User),
	}
}

// Bootstrap loads all groups, restaurant reference data and the user
// directory, repairing member name snapshots first. On failure the previous
// snapshot is retained untouched.
func (s *GroupService) Bootstrap(ctx context.Context) error {
	repaired, err := s.store.RepairMemberDetails(ctx)
	if err != nil {
		slog.Error("Bootstrap repair failed", "error", err)
		return wrapStoreErr("repair member details", err)
	}
	if repaired > 0 {
		slog.Info("Member details repaired", "groups", repaired)
	}

	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		slog.Error("Bootstrap failed", "error", err)
		return wrapStoreErr("list groups", err)
	}
	restaurants, err := s.store.ListRestaurantsWithMenus(ctx)
	if err != nil {
		slog.Error("Bootstrap failed", "error", err)
		return wrapStoreErr("list restaurants", err)
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		slog.Error("Bootstrap failed", "error", err)
		return wrapStoreErr("list users", err)
	}

	s.mu.Lock()
	s.groups = groups
	s.restaurants = restaurants
	s.users = make(map[string]*models.User, len(users))
	for _, u := range users {
		s.users[u.ID] = u
	}
	s.mu.Unlock()

	slog.Info("Bootstrap complete",
		"groups", len(groups),
		"restaurants", len(restaurants),
		"users", len(users),
	)
	return nil
}

// Groups returns the current snapshot, newest first.
func (s *GroupService) Groups() []*models.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Group, len(s.groups))
	for i, g := range s.groups {
		out[i] = g.Clone()
	}
	return out
}

// Group returns one group from the snapshot.
func (s *GroupService) Group(groupID string) (*models.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(groupID)
}

// Restaurants returns all restaurant reference data.
func (s *GroupService) Restaurants() []*models.Restaurant {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Restaurant, len(s.restaurants))
	for i, r := range s.restaurants {
		cp := *r
		cp.Menu = append([]models.Dish(nil), r.Menu...)
		out[i] = &cp
	}
	return out
}

// Menu returns the dish catalog for one restaurant, nil if unknown.
func (s *GroupService) Menu(restaurantID string) []models.Dish {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.restaurants {
		if r.ID == restaurantID {
			return append([]models.Dish(nil), r.Menu...)
		}
	}
	return nil
}

// CreateGroupInput is the payload for CreateGroup.
type CreateGroupInput struct {
	Name         string `json:"name"`
	RestaurantID string `json:"restaurantId"`
	OwnerID      string `json:"ownerId"`
	OwnerName    string `json:"ownerName,omitempty"`
	DeadlineAt   int64  `json:"deadlineAt"`
}

// CreateGroup allocates a new group with the owner as its only member and
// prepends it to the snapshot.
func (s *GroupService) CreateGroup(ctx context.Context, in CreateGroupInput) (*models.Group, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("group name required: %w", ErrValidation)
	}
	if in.RestaurantID == "" {
		return nil, fmt.Errorf("restaurant required: %w", ErrValidation)
	}
	if in.OwnerID == "" {
		return nil, fmt.Errorf("owner required: %w", ErrValidation)
	}
	now := s.clock.Now()
	if time.UnixMilli(in.DeadlineAt).Before(now.Add(s.cfg.MinDeadlineLead)) {
		return nil, fmt.Errorf("deadline must be at least %s away: %w", s.cfg.MinDeadlineLead, ErrValidation)
	}

	ownerName := in.OwnerName
	if ownerName == "" {
		ownerName = s.directoryName(in.OwnerID)
	}

	group := &models.Group{
		Name:          strings.TrimSpace(in.Name),
		RestaurantID:  in.RestaurantID,
		OwnerID:       in.OwnerID,
		Members:       []string{in.OwnerID},
		MemberDetails: []models.MemberDetail{{ID: in.OwnerID, Name: ownerName}},
		Dishes:        map[string]map[string]int{},
		DeadlineAt:    in.DeadlineAt,
		CreatedAt:     now.UnixMilli(),
	}

	if err := s.store.CreateGroup(ctx, group); err != nil {
		slog.Error("CreateGroup failed", "error", err)
		return nil, wrapStoreErr("create group", err)
	}

	s.mu.Lock()
	s.groups = append([]*models.Group{group}, s.groups...)
	s.mu.Unlock()

	groupOpsTotal.WithLabelValues("create").Inc()
	slog.Info("Group created", "group_id", group.ID, "owner_id", group.OwnerID)
	return group.Clone(), nil
}

// JoinGroup adds userID to the group's member list. Joining an already
// joined group is a no-op apart from filling a blank name snapshot.
func (s *GroupService) JoinGroup(ctx context.Context, groupID, userID, username string) (*models.Group, error) {
	if err := s.checkOpen(groupID); err != nil {
		return nil, err
	}
	if username == "" {
		username = s.directoryName(userID)
	}

	group, err := s.store.JoinGroup(ctx, groupID, userID, username)
	if err != nil {
		slog.Error("JoinGroup failed", "group_id", groupID, "user_id", userID, "error", err)
		return nil, wrapStoreErr("join group", err)
	}

	s.replace(group)
	groupOpsTotal.WithLabelValues("join").Inc()
	slog.Info("Member joined", "group_id", groupID, "user_id", userID)
	return group.Clone(), nil
}

// LeaveGroup removes userID from the group. The owner cannot leave their
// own group. Whether the member's saved dishes are pruned is controlled by
// Config.PruneDishesOnLeave.
func (s *GroupService) LeaveGroup(ctx context.Context, groupID, userID string) (*models.Group, error) {
	current, err := s.Group(groupID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID == userID {
		return nil, fmt.Errorf("owner cannot leave their own group: %w", ErrPermissionDenied)
	}

	group, err := s.store.LeaveGroup(ctx, groupID, userID, s.cfg.PruneDishesOnLeave)
	if err != nil {
		slog.Error("LeaveGroup failed", "group_id", groupID, "user_id", userID, "error", err)
		return nil, wrapStoreErr("leave group", err)
	}

	s.replace(group)
	groupOpsTotal.WithLabelValues("leave").Inc()
	slog.Info("Member left", "group_id", groupID, "user_id", userID, "pruned", s.cfg.PruneDishesOnLeave)
	return group.Clone(), nil
}

// AddDishInput is the payload for AddDish. Qty is a signed delta computed by
// the caller as desired minus last-known-saved, never an absolute value.
type AddDishInput struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
	DishID  string `json:"dishId"`
	Qty     int    `json:"qty"`
}

// AddDish applies a dish-quantity delta for one member. Deltas are additive,
// so concurrent saves from different members compose without overwriting
// each other's entries. A resulting quantity of zero or less removes the
// dish.
func (s *GroupService) AddDish(ctx context.Context, in AddDishInput) (*models.Group, error) {
	if in.DishID == "" {
		return nil, fmt.Errorf("dish required: %w", ErrValidation)
	}
	if in.Qty == 0 {
		return nil, fmt.Errorf("zero delta: %w", ErrValidation)
	}
	if err := s.checkOpen(in.GroupID); err != nil {
		return nil, err
	}

	group, err := s.store.ApplyDishDelta(ctx, in.GroupID, in.UserID, in.DishID, in.Qty)
	if err != nil {
		slog.Error("AddDish failed", "group_id", in.GroupID, "user_id", in.UserID, "error", err)
		return nil, wrapStoreErr("apply dish delta", err)
	}

	s.replace(group)
	groupOpsTotal.WithLabelValues("add_dish").Inc()
	slog.Info("Dish delta applied",
		"group_id", in.GroupID,
		"user_id", in.UserID,
		"dish_id", in.DishID,
		"delta", in.Qty,
	)
	return group.Clone(), nil
}

// Submit marks the group's order submitted. Only the owner may submit.
func (s *GroupService) Submit(ctx context.Context, groupID, userID string) (*models.Group, error) {
	current, err := s.Group(groupID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID != userID {
		return nil, fmt.Errorf("only the owner can submit: %w", ErrPermissionDenied)
	}

	group, err := s.store.SubmitGroup(ctx, groupID, s.clock.Now().UnixMilli())
	if err != nil {
		slog.Error("Submit failed", "group_id", groupID, "error", err)
		return nil, wrapStoreErr("submit group", err)
	}

	s.replace(group)
	groupOpsTotal.WithLabelValues("submit").Inc()
	slog.Info("Order submitted", "group_id", groupID, "submitted_at", group.SubmittedAt)
	return group.Clone(), nil
}

// DeleteGroup removes the group permanently. Ownership is enforced by the
// caller, not here; the transport layer checks before invoking.
func (s *GroupService) DeleteGroup(ctx context.Context, groupID string) error {
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		slog.Error("DeleteGroup failed", "group_id", groupID, "error", err)
		return wrapStoreErr("delete group", err)
	}

	s.mu.Lock()
	kept := s.groups[:0]
	for _, g := range s.groups {
		if g.ID != groupID {
			kept = append(kept, g)
		}
	}
	s.groups = kept
	s.mu.Unlock()

	groupOpsTotal.WithLabelValues("delete").Inc()
	slog.Info("Group deleted", "group_id", groupID)
	return nil
}

// checkOpen fails with ErrGroupClosed when the group is already submitted
// and LockAfterSubmit is set; it also verifies the group exists.
func (s *GroupService) checkOpen(groupID string) error {
	group, err := s.Group(groupID)
	if err != nil {
		return err
	}
	if s.cfg.LockAfterSubmit && group.SubmittedAt != 0 {
		return fmt.Errorf("group %s: %w", groupID, ErrGroupClosed)
	}
	return nil
}

// replace swaps the canonical copy of group in the snapshot.
func (s *GroupService) replace(group *models.Group) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, g := range s.groups {
		if g.ID == group.ID {
			s.groups[i] = group
			return
		}
	}
	// Not in the snapshot yet (mutation before bootstrap); keep it.
	s.groups = append([]*models.Group{group}, s.groups...)
}

func (s *GroupService) findLocked(groupID string) (*models.Group, error) {
	for _, g := range s.groups {
		if g.ID == groupID {
			return g.Clone(), nil
		}
	}
	return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
}

// directoryName resolves a user ID through the directory, empty if unknown.
func (s *GroupService) directoryName(userID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users[userID]; ok {
		return u.Username
	}
	return ""
}

// RegisterUser records a freshly registered user in the directory so name
// resolution picks it up without a full re-bootstrap.
func (s *GroupService) RegisterUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}
