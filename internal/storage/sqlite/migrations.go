package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS restaurants (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    address TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS dishes (
    id TEXT PRIMARY KEY,
    restaurant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    price REAL NOT NULL,
    FOREIGN KEY (restaurant_id) REFERENCES restaurants(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    restaurant_id TEXT NOT NULL,
    owner_id TEXT NOT NULL,
    deadline_at INTEGER NOT NULL,
    submitted_at INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL,
    PRIMARY KEY (group_id, user_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS group_dishes (
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    dish_id TEXT NOT NULL,
    qty INTEGER NOT NULL,
    PRIMARY KEY (group_id, member_id, dish_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_dishes_restaurant_id ON dishes(restaurant_id);
CREATE INDEX IF NOT EXISTS idx_group_members_group_id ON group_members(group_id);
CREATE INDEX IF NOT EXISTS idx_group_dishes_group_id ON group_dishes(group_id);
`

// seed inserts the built-in restaurant reference data. INSERT OR IGNORE keeps
// it idempotent across restarts and harmless once real data management exists.
const seed = `
INSERT OR IGNORE INTO restaurants (id, name, address) VALUES
    ('kh01', 'Song Saa Khmer', 'Riverside Phnom Penh'),
    ('kh02', 'Bai Sach Chrouk House', 'Toul Tom Poung'),
    ('kh03', 'Num Banh Chok Corner', 'BKK1');

INSERT OR IGNORE INTO dishes (id, restaurant_id, name, price) VALUES
    ('d101', 'kh01', 'Fish Amok', 5.5),
    ('d102', 'kh01', 'Beef Lok Lak', 6.0),
    ('d103', 'kh01', 'Prahok Ktis', 4.5),
    ('d201', 'kh02', 'Bai Sach Chrouk', 2.2),
    ('d202', 'kh02', 'Samlor Korko', 3.8),
    ('d301', 'kh03', 'Num Banh Chok', 2.5),
    ('d302', 'kh03', 'Cha Kroeung', 4.2);
`

// runMigrations executes the schema setup and seeds reference data.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	_, err := db.Exec(seed)
	return err
}
