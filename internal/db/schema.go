package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema. JSON-valued columns hold arrays or
// objects encoded as text.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'user')),
    status        TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'deactivated')),
    last_login_at DATETIME,
    created_at    DATETIME NOT NULL,
    updated_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS folders (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL REFERENCES users(id),
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    color       TEXT NOT NULL DEFAULT '',
    parent_id   TEXT REFERENCES folders(id) ON DELETE SET NULL,
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_folders_user ON folders(user_id, name);

CREATE TABLE IF NOT EXISTS items (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL REFERENCES users(id),
    name            TEXT NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    quantity        INTEGER NOT NULL DEFAULT 0,
    price           REAL NOT NULL DEFAULT 0,
    min_level       INTEGER NOT NULL DEFAULT 0,
    unit            TEXT NOT NULL DEFAULT '',
    tags            TEXT NOT NULL DEFAULT '[]',
    folder_id       TEXT REFERENCES folders(id) ON DELETE SET NULL,
    images          TEXT NOT NULL DEFAULT '[]',
    barcode         TEXT NOT NULL DEFAULT '',
    barcode_format  TEXT NOT NULL DEFAULT '',
    barcode_history TEXT NOT NULL DEFAULT '[]',
    version         INTEGER NOT NULL DEFAULT 1,
    created_at      DATETIME NOT NULL,
    updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_user ON items(user_id, name);
CREATE INDEX IF NOT EXISTS idx_items_folder ON items(folder_id);
CREATE INDEX IF NOT EXISTS idx_items_barcode ON items(user_id, barcode);

CREATE TABLE IF NOT EXISTS tags (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL REFERENCES users(id),
    name        TEXT NOT NULL,
    color       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL,
    updated_at  DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tags_user_name ON tags(user_id, name);

CREATE TABLE IF NOT EXISTS activities (
    id            TEXT PRIMARY KEY,
    user_id       TEXT NOT NULL,
    resource_type TEXT NOT NULL,
    resource_id   TEXT NOT NULL DEFAULT '',
    action        TEXT NOT NULL,
    details       TEXT NOT NULL DEFAULT '{}',
    ip            TEXT NOT NULL DEFAULT '',
    user_agent    TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activities_user ON activities(user_id, created_at);
CREATE INDEX IF NOT EXISTS idx_activities_resource ON activities(resource_type, resource_id, created_at);

CREATE TABLE IF NOT EXISTS alerts (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    kind         TEXT NOT NULL CHECK (kind IN ('low_quantity', 'item_activity', 'folder_activity', 'bulk_operation', 'system')),
    status       TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'read', 'resolved', 'dismissed')),
    priority     TEXT NOT NULL DEFAULT 'medium' CHECK (priority IN ('low', 'medium', 'high')),
    title        TEXT NOT NULL,
    message      TEXT NOT NULL DEFAULT '',
    item_id      TEXT,
    folder_id    TEXT,
    details      TEXT NOT NULL DEFAULT '{}',
    created_at   DATETIME NOT NULL,
    updated_at   DATETIME NOT NULL,
    read_at      DATETIME,
    resolved_at  DATETIME,
    dismissed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_alerts_user_status ON alerts(user_id, status, created_at);
CREATE INDEX IF NOT EXISTS idx_alerts_item ON alerts(item_id);

CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_open_low_quantity
    ON alerts(item_id) WHERE kind = 'low_quantity' AND status IN ('active', 'read');

CREATE TABLE IF NOT EXISTS user_settings (
    user_id    TEXT PRIMARY KEY REFERENCES users(id),
    data       TEXT NOT NULL DEFAULT '{}',
    updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id              TEXT PRIMARY KEY,
    email           TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL DEFAULT 'subscribed' CHECK (status IN ('subscribed', 'unsubscribed')),
    token           TEXT NOT NULL UNIQUE,
    source          TEXT NOT NULL DEFAULT '',
    subscribed_at   DATETIME NOT NULL,
    unsubscribed_at DATETIME
);

CREATE TABLE IF NOT EXISTS app_settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: expiry index for the revoked token purge.
	`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expiry ON revoked_tokens(expires_at)`,
	// Migration 2: retention sweep scans alerts by age.
	`CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at)`,
}

// Migrate creates the schema and applies migrations.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
