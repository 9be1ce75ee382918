package model

// Envelope is the outbox payload published when a campaign commits
// (via Debezium outbox SMT). The mirror worker uses it to copy the
// campaign's ledger rows into ClickHouse.
type Envelope struct {
	CampaignID string      `json:"campaign_id"`
	Channel    ChannelKind `json:"channel"`
	Initiator  string      `json:"initiator"`
	Rows       int         `json:"rows"`
}
