package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/vharuk/notify-gateway/internal/model"
)

type StaffRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Staff, error)
}

type StaffRepositoryImpl struct {
	db *sqlx.DB
}

func NewStaffRepository(db *sqlx.DB) *StaffRepositoryImpl {
	return &StaffRepositoryImpl{db: db}
}

var _ StaffRepository = (*StaffRepositoryImpl)(nil)

func (r *StaffRepositoryImpl) GetByAPIKey(ctx context.Context, apiKey string) (*model.Staff, error) {
	var s model.Staff
	err := r.db.GetContext(ctx, &s, `
		SELECT id, name, api_key, status, rate_limit_rps, created_at, updated_at
		  FROM staff
		 WHERE api_key = ? LIMIT 1
	`, apiKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
