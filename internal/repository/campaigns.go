package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vharuk/notify-gateway/internal/model"
)

// CampaignsRepository persists campaigns. A campaign row is written exactly
// once per dispatch attempt, inside the dispatch transaction, and is never
// updated afterwards.
type CampaignsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context, initiator string, limit, offset int) ([]model.Campaign, int, error)
}

type CampaignsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCampaignsRepository(db *sqlx.DB) *CampaignsRepositoryImpl {
	return &CampaignsRepositoryImpl{db: db}
}

var _ CampaignsRepository = (*CampaignsRepositoryImpl)(nil)

func (r *CampaignsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error {
	const q = `
		INSERT INTO campaigns (id, message, channel, initiator, created_at)
		VALUES (?, ?, ?, ?, NOW())
	`
	_, err := tx.ExecContext(ctx, q, c.ID, c.Message, c.Channel.String(), c.Initiator)
	return err
}

func (r *CampaignsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := r.db.GetContext(ctx, &c, `
		SELECT id, message, channel, initiator, created_at
		  FROM campaigns
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns one page of campaigns, newest first, plus the total count.
// Empty initiator means all campaigns.
func (r *CampaignsRepositoryImpl) List(ctx context.Context, initiator string, limit, offset int) ([]model.Campaign, int, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	countQ := `SELECT COUNT(*) FROM campaigns`
	listQ := `SELECT id, message, channel, initiator, created_at FROM campaigns`
	var args []any
	if initiator != "" {
		countQ += ` WHERE initiator = ?`
		listQ += ` WHERE initiator = ?`
		args = append(args, initiator)
	}
	listQ += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`

	var total int
	if err := r.db.GetContext(ctx, &total, countQ, args...); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	var rows []model.Campaign
	if err := r.db.SelectContext(ctx, &rows, listQ, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	return rows, total, nil
}
