package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vharuk/notify-gateway/internal/model"
)

// CHMessagesRepository is the ClickHouse read model for reporting. Rows are
// copied from the MySQL ledger by the mirror worker after a campaign
// commits; the exporter reads them without touching the dispatch path.
type CHMessagesRepository interface {
	ListByCampaign(ctx context.Context, campaignID string, status model.MessageStatus, limit, offset int) ([]model.MessageRecord, error)
	InsertBatch(ctx context.Context, msgs []model.MessageRecord) error
}

type chMessagesRepository struct {
	ch *sqlx.DB // ClickHouse connection
}

func NewCHMessagesRepository(ch *sqlx.DB) CHMessagesRepository {
	return &chMessagesRepository{ch: ch}
}

func (r *chMessagesRepository) ListByCampaign(ctx context.Context, campaignID string, status model.MessageStatus, limit, offset int) ([]model.MessageRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, campaign_id, account_id, address, status, created_at
		FROM notify.campaign_messages
		WHERE campaign_id = ?
	`
	args := []any{campaignID}

	if status != "" {
		q += " AND status = ?"
		args = append(args, status.String())
	}

	q += " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.MessageRecord
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertBatch appends mirrored ledger rows. ClickHouse dedupes on the
// ReplacingMergeTree key, so replays from the at-least-once consumer are
// harmless.
func (r *chMessagesRepository) InsertBatch(ctx context.Context, msgs []model.MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(msgs)*6)

	sb.WriteString(`INSERT INTO notify.campaign_messages (id, campaign_id, account_id, address, status, created_at) VALUES `)
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, ?)")
		args = append(args, m.ID, m.CampaignID, m.AccountID, m.Address, m.Status.String(), m.CreatedAt)
	}

	_, err := r.ch.ExecContext(ctx, sb.String(), args...)
	return err
}
