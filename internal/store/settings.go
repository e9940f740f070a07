package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/umerali06/primarily-backend-sub001/internal/model"
)

// GetJWTSecret retrieves the JWT signing secret from the database.
// If no secret exists, it generates one, stores it, and returns it.
// Uses INSERT OR IGNORE + re-SELECT to avoid TOCTOU race on concurrent startup.
func GetJWTSecret(ctx context.Context, db sqlx.ExtContext) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}
	candidate := hex.EncodeToString(buf)

	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO app_settings (key, value) VALUES ('jwt_secret', ?)`,
		candidate,
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	var secret string
	if err := sqlx.GetContext(ctx, db, &secret, `SELECT value FROM app_settings WHERE key = 'jwt_secret'`); err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}
	return secret, nil
}

// GetUserSettings returns the settings a user has stored. Users who never
// saved settings get an empty document.
func GetUserSettings(ctx context.Context, db sqlx.QueryerContext, userID string) (model.JSONMap, error) {
	var doc model.JSONMap
	err := sqlx.GetContext(ctx, db, &doc, `SELECT data FROM user_settings WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.JSONMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user settings: %w", err)
	}
	return doc, nil
}

// PutUserSettings replaces a user's stored settings document.
func PutUserSettings(ctx context.Context, db sqlx.ExecerContext, userID string, doc model.JSONMap) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO user_settings (user_id, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		userID, doc, now())
	if err != nil {
		return fmt.Errorf("saving user settings: %w", err)
	}
	return nil
}

// DeleteUserSettings drops a user's stored settings, reverting them to the
// defaults.
func DeleteUserSettings(ctx context.Context, db sqlx.ExecerContext, userID string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("deleting user settings: %w", err)
	}
	return nil
}
