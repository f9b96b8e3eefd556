package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sokha/lunchpool/internal/models"
	"github.com/sokha/lunchpool/internal/storage"
)

// querier is satisfied by both *sql.DB and *sql.Tx so group loading works
// inside and outside transactions.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ListGroups returns all groups, newest first.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM groups ORDER BY created_at DESC, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan group id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	groups := make([]*models.Group, 0, len(ids))
	for _, id := range ids {
		g, err := loadGroup(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// GetGroup retrieves a group by ID, including members and saved dishes.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return loadGroup(ctx, s.db, groupID)
}

// CreateGroup persists a new group with its owner as the first member.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().UnixMilli()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, restaurant_id, owner_id, deadline_at, submitted_at, created_at) VALUES (?, ?, ?, ?, ?, 0, ?)",
		group.ID, group.Name, group.RestaurantID, group.OwnerID, group.DeadlineAt, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	for i, memberID := range group.Members {
		name := ""
		for _, md := range group.MemberDetails {
			if md.ID == memberID {
				name = md.Name
				break
			}
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, name, position) VALUES (?, ?, ?, ?)",
			group.ID, memberID, name, i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// JoinGroup adds userID to the group if absent and upserts the member's
// display-name snapshot.
func (s *SQLiteStore) JoinGroup(ctx context.Context, groupID, userID, username string) (*models.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, groupID); err != nil {
		return nil, err
	}

	var existingName string
	err = tx.QueryRowContext(ctx,
		"SELECT name FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&existingName)
	switch {
	case err == sql.ErrNoRows:
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_members (group_id, user_id, name, position) VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), -1) + 1 FROM group_members WHERE group_id = ?))",
			groupID, userID, username, groupID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert member: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to query member: %w", err)
	case existingName == "" && username != "":
		// Already a member, but the snapshot is missing a name we now know.
		_, err = tx.ExecContext(ctx,
			"UPDATE group_members SET name = ? WHERE group_id = ? AND user_id = ?",
			username, groupID, userID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update member name: %w", err)
		}
	}

	group, err := loadGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return group, nil
}

// LeaveGroup removes userID from the member list. The member's saved dishes
// are removed only when pruneDishes is set.
func (s *SQLiteStore) LeaveGroup(ctx context.Context, groupID, userID string, pruneDishes bool) (*models.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, groupID); err != nil {
		return nil, err
	}

	res, err := tx.ExecContext(ctx,
		"DELETE FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to delete member: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("member %s not in group %s: %w", userID, groupID, storage.ErrNotFound)
	}

	if pruneDishes {
		_, err = tx.ExecContext(ctx,
			"DELETE FROM group_dishes WHERE group_id = ? AND member_id = ?",
			groupID, userID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to prune dishes: %w", err)
		}
	}

	group, err := loadGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return group, nil
}

// ApplyDishDelta adds delta to the saved quantity for (userID, dishID).
// A resulting quantity of zero or less removes the row; negative quantities
// are never stored.
func (s *SQLiteStore) ApplyDishDelta(ctx context.Context, groupID, userID, dishID string, delta int) (*models.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := groupExists(ctx, tx, groupID); err != nil {
		return nil, err
	}

	var current int
	err = tx.QueryRowContext(ctx,
		"SELECT qty FROM group_dishes WHERE group_id = ? AND member_id = ? AND dish_id = ?",
		groupID, userID, dishID,
	).Scan(&current)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query quantity: %w", err)
	}

	next := current + delta
	if next <= 0 {
		_, err = tx.ExecContext(ctx,
			"DELETE FROM group_dishes WHERE group_id = ? AND member_id = ? AND dish_id = ?",
			groupID, userID, dishID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to delete quantity: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO group_dishes (group_id, member_id, dish_id, qty) VALUES (?, ?, ?, ?) ON CONFLICT(group_id, member_id, dish_id) DO UPDATE SET qty = excluded.qty",
			groupID, userID, dishID, next,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to upsert quantity: %w", err)
		}
	}

	group, err := loadGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return group, nil
}

// SubmitGroup marks the group submitted at the given timestamp.
func (s *SQLiteStore) SubmitGroup(ctx context.Context, groupID string, submittedAt int64) (*models.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE groups SET submitted_at = ? WHERE id = ?",
		submittedAt, groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to submit group: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}

	group, err := loadGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return group, nil
}

// DeleteGroup removes the group permanently. Members and dishes cascade.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	return nil
}

// groupExists fails with storage.ErrNotFound when groupID is unknown.
func groupExists(ctx context.Context, q querier, groupID string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to query group: %w", err)
	}
	return nil
}

// loadGroup reads one group with its members and dishes.
func loadGroup(ctx context.Context, q querier, groupID string) (*models.Group, error) {
	group := &models.Group{Dishes: make(map[string]map[string]int)}
	err := q.QueryRowContext(ctx,
		"SELECT id, name, restaurant_id, owner_id, deadline_at, submitted_at, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.RestaurantID, &group.OwnerID, &group.DeadlineAt, &group.SubmittedAt, &group.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		"SELECT user_id, name FROM group_members WHERE group_id = ? ORDER BY position",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var md models.MemberDetail
		if err := rows.Scan(&md.ID, &md.Name); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		group.Members = append(group.Members, md.ID)
		group.MemberDetails = append(group.MemberDetails, md)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	dishRows, err := q.QueryContext(ctx,
		"SELECT member_id, dish_id, qty FROM group_dishes WHERE group_id = ?",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get dishes: %w", err)
	}
	defer dishRows.Close()

	for dishRows.Next() {
		var memberID, dishID string
		var qty int
		if err := dishRows.Scan(&memberID, &dishID, &qty); err != nil {
			return nil, fmt.Errorf("failed to scan dish: %w", err)
		}
		if group.Dishes[memberID] == nil {
			group.Dishes[memberID] = make(map[string]int)
		}
		group.Dishes[memberID][dishID] = qty
	}
	if err := dishRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dishes: %w", err)
	}

	return group, nil
}
