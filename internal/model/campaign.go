package model

import (
	"strings"
	"time"
)

type ChannelKind string

const (
	ChannelSMS      ChannelKind = "sms"
	ChannelTelegram ChannelKind = "telegram"
)

func (c ChannelKind) String() string { return string(c) }

func (c ChannelKind) Valid() bool {
	return c == ChannelSMS || c == ChannelTelegram
}

// ParseChannelKind normalizes input; returns (value, true) if valid.
func ParseChannelKind(s string) (ChannelKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sms":
		return ChannelSMS, true
	case "telegram":
		return ChannelTelegram, true
	default:
		return "", false
	}
}

// Campaign is one act of sending a message to an audience. Immutable once
// persisted; corrections are issued as new campaigns.
type Campaign struct {
	ID        string      `db:"id"` // ULID
	Message   string      `db:"message"`
	Channel   ChannelKind `db:"channel"`
	Initiator string      `db:"initiator"` // staff username
	CreatedAt time.Time   `db:"created_at"`
}
