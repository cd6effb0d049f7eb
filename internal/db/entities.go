package db

import "time"

type (
	Settings struct {
		ID             int64  `db:"id"`
		Enabled        bool   `db:"enabled"`
		Language       string `db:"language"`
		WelcomeMessage string `db:"welcome_message"`
	}

	WarnRecord struct {
		ChatID    int64     `db:"chat_id"`
		UserID    int64     `db:"user_id"`
		Count     int       `db:"count"`
		UpdatedAt time.Time `db:"updated_at"`
	}
)
