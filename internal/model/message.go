package model

import "time"

type MessageStatus string

const (
	StatusSent             MessageStatus = "sent"
	StatusInvalidAddress   MessageStatus = "invalid_address"
	StatusDuplicateAddress MessageStatus = "duplicate_address"
	StatusUnexpectedError  MessageStatus = "unexpected_error"
	StatusNotSubscribed    MessageStatus = "not_subscribed"
)

func (s MessageStatus) String() string {
	return string(s)
}

func (s MessageStatus) Valid() bool {
	switch s {
	case StatusSent, StatusInvalidAddress, StatusDuplicateAddress,
		StatusUnexpectedError, StatusNotSubscribed:
		return true
	}
	return false
}

// MessageRecord is one per-recipient ledger row. Status is decided at
// creation time and never revised; the ledger is append-only.
type MessageRecord struct {
	ID         string        `db:"id"` // ULID
	CampaignID string        `db:"campaign_id"`
	AccountID  int64         `db:"account_id"`
	Address    string        `db:"address"` // normalized phone or chat id
	Status     MessageStatus `db:"status"`
	CreatedAt  time.Time     `db:"created_at"`
}
