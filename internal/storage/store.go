// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/sokha/lunchpool/internal/models"
)

// ErrNotFound is returned when a group or user reference does not resolve.
// Implementations wrap it so callers can test with errors.Is.
var ErrNotFound = errors.New("not found")

// Store is the persistence gateway for groups, users and restaurant
// reference data. This abstraction allows swapping storage backends
// (SQLite, PostgreSQL, a remote API, ...) without changing the service
// layer.
//
// Every group mutator returns the post-operation canonical Group. A failed
// call leaves stored state untouched; no partial writes are ever visible.
type Store interface {
	// ListGroups returns all groups, newest first.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// GetGroup retrieves a group by ID.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// CreateGroup persists a new group. The group's ID and CreatedAt are
	// assigned by the store when unset.
	CreateGroup(ctx context.Context, group *models.Group) error

	// JoinGroup adds userID to the group's member list if absent and
	// upserts its display-name snapshot. Joining twice is a no-op apart
	// from filling a previously blank name.
	JoinGroup(ctx context.Context, groupID, userID, username string) (*models.Group, error)

	// LeaveGroup removes userID from the member list and its name
	// snapshot. When pruneDishes is set the member's saved selections are
	// removed in the same transaction; otherwise they are kept.
	LeaveGroup(ctx context.Context, groupID, userID string, pruneDishes bool) (*models.Group, error)

	// ApplyDishDelta adds delta to the saved quantity for (userID,
	// dishID). A resulting quantity of zero or less removes the key.
	ApplyDishDelta(ctx context.Context, groupID, userID, dishID string, delta int) (*models.Group, error)

	// SubmitGroup marks the group submitted at the given Unix millisecond
	// timestamp.
	SubmitGroup(ctx context.Context, groupID string, submittedAt int64) (*models.Group, error)

	// DeleteGroup removes the group permanently.
	DeleteGroup(ctx context.Context, groupID string) error

	// RepairMemberDetails backfills missing or inconsistent member name
	// snapshots from the user directory for every stored group. It returns
	// the number of groups repaired.
	RepairMemberDetails(ctx context.Context) (int, error)

	// ListRestaurantsWithMenus returns all restaurant reference data with
	// menus attached.
	ListRestaurantsWithMenus(ctx context.Context) ([]*models.Restaurant, error)

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername retrieves a user by their unique username.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// ListUsers returns the whole user directory.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
