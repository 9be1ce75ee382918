package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vharuk/notify-gateway/internal/model"
)

// SubscribersRepository is the registered-identity index for the Telegram
// channel: which billing accounts have a linked chat.
type SubscribersRepository interface {
	MapByAccountIDs(ctx context.Context, accountIDs []int64) (map[int64]int64, error)
	Upsert(ctx context.Context, s model.Subscriber) error
}

type SubscribersRepositoryImpl struct {
	db *sqlx.DB
}

func NewSubscribersRepository(db *sqlx.DB) *SubscribersRepositoryImpl {
	return &SubscribersRepositoryImpl{db: db}
}

var _ SubscribersRepository = (*SubscribersRepositoryImpl)(nil)

// MapByAccountIDs returns accountID -> chatID for the accounts that have a
// linked Telegram chat. Accounts without one are simply absent.
func (r *SubscribersRepositoryImpl) MapByAccountIDs(ctx context.Context, accountIDs []int64) (map[int64]int64, error) {
	if len(accountIDs) == 0 {
		return map[int64]int64{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT account_id, chat_id
		  FROM telegram_subscribers
		 WHERE account_id IN (?)
	`, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("subscribers query: %w", err)
	}

	var rows []struct {
		AccountID int64 `db:"account_id"`
		ChatID    int64 `db:"chat_id"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("subscribers select: %w", err)
	}

	out := make(map[int64]int64, len(rows))
	for _, row := range rows {
		out[row.AccountID] = row.ChatID
	}
	return out, nil
}

// Upsert links a chat to a billing account (written by the bot side).
func (r *SubscribersRepositoryImpl) Upsert(ctx context.Context, s model.Subscriber) error {
	const q = `
		INSERT INTO telegram_subscribers
		    (chat_id, account_id, first_name, username, phone, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    account_id = VALUES(account_id),
		    first_name = VALUES(first_name),
		    username   = VALUES(username),
		    phone      = VALUES(phone),
		    updated_at = VALUES(updated_at)
	`
	_, err := r.db.ExecContext(ctx, q, s.ChatID, s.AccountID, s.FirstName, s.Username, s.Phone)
	return err
}
