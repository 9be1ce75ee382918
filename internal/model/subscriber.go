package model

import "time"

// Subscriber links a billing account to a Telegram chat. Rows are written by
// the bot when a user connects their personal account; dispatch only reads
// them as the registered-identity index.
type Subscriber struct {
	ChatID    int64     `db:"chat_id"`
	AccountID int64     `db:"account_id"`
	FirstName string    `db:"first_name"`
	Username  string    `db:"username"`
	Phone     string    `db:"phone"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
