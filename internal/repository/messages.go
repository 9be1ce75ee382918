package repository

import (
	"context"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vharuk/notify-gateway/internal/model"
)

// DefaultChunkSize bounds the payload of one bulk INSERT. Chunking is
// invisible to callers: every chunk runs inside the caller's transaction,
// so the rows are all present or all absent regardless of chunk count.
const DefaultChunkSize = 100

// MessagesRepository persists the per-recipient ledger. Rows are append-only;
// there is no update path.
type MessagesRepository interface {
	BulkInsert(ctx context.Context, tx *sqlx.Tx, msgs []model.MessageRecord) error
	ListByCampaign(ctx context.Context, campaignID string) ([]model.MessageRecord, error)
}

type MessagesRepositoryImpl struct {
	db        *sqlx.DB
	chunkSize int
}

func NewMessagesRepository(db *sqlx.DB, chunkSize int) *MessagesRepositoryImpl {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &MessagesRepositoryImpl{db: db, chunkSize: chunkSize}
}

var _ MessagesRepository = (*MessagesRepositoryImpl)(nil)

// chunks splits [0, n) into half-open index ranges of at most size.
func chunks(n, size int) [][2]int {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}

// BulkInsert writes all rows within the given transaction, issuing one
// multi-row INSERT per chunk.
func (r *MessagesRepositoryImpl) BulkInsert(ctx context.Context, tx *sqlx.Tx, msgs []model.MessageRecord) error {
	for _, c := range chunks(len(msgs), r.chunkSize) {
		if err := insertChunk(ctx, tx, msgs[c[0]:c[1]]); err != nil {
			return err
		}
	}
	return nil
}

func insertChunk(ctx context.Context, tx *sqlx.Tx, msgs []model.MessageRecord) error {
	if len(msgs) == 0 {
		return nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(msgs)*5)

	sb.WriteString(`INSERT INTO campaign_messages (id, campaign_id, account_id, address, status, created_at) VALUES `)
	for i, m := range msgs {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("(?, ?, ?, ?, ?, NOW())")
		args = append(args, m.ID, m.CampaignID, m.AccountID, m.Address, m.Status.String())
	}

	_, err := tx.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *MessagesRepositoryImpl) ListByCampaign(ctx context.Context, campaignID string) ([]model.MessageRecord, error) {
	var rows []model.MessageRecord
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, campaign_id, account_id, address, status, created_at
		  FROM campaign_messages
		 WHERE campaign_id = ?
		 ORDER BY id ASC
	`, campaignID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
