package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// RepairMemberDetails backfills blank member name snapshots from the user
// directory, falling back to a deterministic placeholder derived from the
// member ID. Historically this happened implicitly on every read; it is an
// explicit migration step here, invoked once during bootstrap.
//
// Returns the number of groups that needed repair.
func (s *SQLiteStore) RepairMemberDetails(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		"SELECT group_id, user_id FROM group_members WHERE name = ''",
	)
	if err != nil {
		return 0, fmt.Errorf("failed to query blank members: %w", err)
	}

	type blank struct{ groupID, userID string }
	var blanks []blank
	for rows.Next() {
		var b blank
		if err := rows.Scan(&b.groupID, &b.userID); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan blank member: %w", err)
		}
		blanks = append(blanks, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate blank members: %w", err)
	}

	repaired := make(map[string]bool)
	for _, b := range blanks {
		name := placeholderName(b.userID)
		var username string
		err := tx.QueryRowContext(ctx,
			"SELECT username FROM users WHERE id = ?", b.userID,
		).Scan(&username)
		switch {
		case err == sql.ErrNoRows:
			// Not in the directory; keep the placeholder.
		case err != nil:
			return 0, fmt.Errorf("failed to query username: %w", err)
		case username != "":
			name = username
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE group_members SET name = ? WHERE group_id = ? AND user_id = ?",
			name, b.groupID, b.userID,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to repair member name: %w", err)
		}
		repaired[b.groupID] = true
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(repaired), nil
}

// placeholderName derives a stable display name from a user ID.
func placeholderName(userID string) string {
	tail := userID
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return "User " + tail
}
