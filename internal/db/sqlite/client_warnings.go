package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iamwavecut/guardbot/internal/db"
)

// IncrementWarnings is a single-statement read-increment-write, the database
// linearizes concurrent increments for the same (chat, user) key.
func (c *sqliteClient) IncrementWarnings(ctx context.Context, chatID, userID int64) (int, error) {
	var count int
	query := `
		INSERT INTO warnings (chat_id, user_id, count, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(chat_id, user_id) DO UPDATE SET
		count = count + 1,
		updated_at = CURRENT_TIMESTAMP
		RETURNING count
	`
	if err := c.db.GetContext(ctx, &count, query, chatID, userID); err != nil {
		return 0, fmt.Errorf("failed to increment warnings for chat %d user %d: %w", chatID, userID, err)
	}
	return count, nil
}

func (c *sqliteClient) ResetWarnings(ctx context.Context, chatID, userID int64) error {
	_, err := c.db.ExecContext(ctx, "DELETE FROM warnings WHERE chat_id = ? AND user_id = ?", chatID, userID)
	if err != nil {
		return fmt.Errorf("failed to reset warnings for chat %d user %d: %w", chatID, userID, err)
	}
	return nil
}

func (c *sqliteClient) GetWarnings(ctx context.Context, chatID, userID int64) (int, error) {
	rec := &db.WarnRecord{}
	err := c.db.GetContext(ctx, rec, "SELECT chat_id, user_id, count, updated_at FROM warnings WHERE chat_id = ? AND user_id = ?", chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get warnings for chat %d user %d: %w", chatID, userID, err)
	}
	return rec.Count, nil
}
