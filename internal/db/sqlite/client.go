package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"

	"github.com/iamwavecut/tool"

	"github.com/iamwavecut/guardbot/internal/db"
	"github.com/iamwavecut/guardbot/internal/infra"
	"github.com/iamwavecut/guardbot/resources"

	"github.com/jmoiron/sqlx"
	migrate "github.com/rubenv/sql-migrate"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteClient struct {
	db *sqlx.DB
}

func NewSQLiteClient(dbPath string) *sqliteClient {
	dbx, err := sqlx.Open("sqlite", filepath.Join(infra.GetWorkDir(), dbPath))
	if err != nil {
		log.WithError(err).Fatalln("cant open db")
	}
	dbx.SetMaxOpenConns(42)

	migrationsSource := &migrate.EmbedFileSystemMigrationSource{
		FileSystem: resources.FS,
		Root:       "migrations",
	}
	n, err := migrate.Exec(dbx.DB, "sqlite3", migrationsSource, migrate.Up)
	if err != nil {
		log.WithError(err).Fatalln("migrate up failed")
	}
	if n > 0 {
		log.Infof("applied %d migrations!", n)
	}

	return &sqliteClient{db: dbx}
}

func (c *sqliteClient) Close() error {
	return c.db.Close()
}

func (c *sqliteClient) GetSettings(ctx context.Context, chatID int64) (*db.Settings, error) {
	res := &db.Settings{}
	err := c.db.GetContext(ctx, res, "SELECT id, enabled, language, welcome_message FROM chats WHERE id=?", chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func (c *sqliteClient) SetSettings(ctx context.Context, settings *db.Settings) error {
	query := `
		INSERT INTO chats (id, enabled, language, welcome_message)
		VALUES (:id, :enabled, :language, :welcome_message)
		ON CONFLICT(id) DO UPDATE SET
		enabled=excluded.enabled,
		language=excluded.language,
		welcome_message=excluded.welcome_message;
	`
	return tool.Err(c.db.NamedExecContext(ctx, query, settings))
}
