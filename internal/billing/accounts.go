package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/vharuk/notify-gateway/internal/model"
)

// Engine executes filtered, paginated audience queries against the billing
// store. Reads only; the billing schema is owned by the ISP panel.
type Engine struct {
	db *sqlx.DB
}

func NewEngine(db *sqlx.DB) *Engine {
	return &Engine{db: db}
}

// buildAudienceQuery assembles the account/plan/group joins plus the three
// latest-revision joins. Rows are always ordered by account id so that
// limit/offset pages are disjoint and contiguous regardless of concurrent
// billing writes.
func buildAudienceQuery(f Filter, selectCols string, limit, offset int, paginate bool) (string, []any, error) {
	phoneSQL, phoneArgs := latestRevisionSQL(model.AttrPhone, nil)
	serialSQL, serialArgs := latestRevisionSQL(model.AttrSerial, f.SerialDelivered)
	macSQL, macArgs := latestRevisionSQL(model.AttrMAC, f.MACDelivered)
	whereSQL, whereArgs := f.where()

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectCols)
	sb.WriteString(`
FROM users_trf t
INNER JOIN users u ON t.uid = u.id
INNER JOIN plans2 p ON t.packet = p.id
INNER JOIN user_grp g ON u.grp = g.grp_id
INNER JOIN (`)
	sb.WriteString(phoneSQL)
	sb.WriteString(`
) ph ON ph.parent_id = u.id
INNER JOIN (`)
	sb.WriteString(serialSQL)
	sb.WriteString(`
) sn ON sn.parent_id = u.id
INNER JOIN (`)
	sb.WriteString(macSQL)
	sb.WriteString(`
) mc ON mc.parent_id = u.id
`)
	sb.WriteString(whereSQL)

	args := make([]any, 0, len(phoneArgs)+len(serialArgs)+len(macArgs)+len(whereArgs)+2)
	args = append(args, phoneArgs...)
	args = append(args, serialArgs...)
	args = append(args, macArgs...)
	args = append(args, whereArgs...)

	if paginate {
		sb.WriteString("\nORDER BY u.id ASC\nLIMIT ? OFFSET ?")
		args = append(args, limit, offset)
	}

	query, expanded, err := sqlx.In(sb.String(), args...)
	if err != nil {
		return "", nil, fmt.Errorf("build audience query: %w", err)
	}
	return query, expanded, nil
}

const accountViewCols = `u.id AS id,
       u.ip AS ip,
       u.fio AS name,
       t.submoney AS fee,
       (u.balance - t.submoney) AS balance,
       p.id AS plan_id,
       p.name AS plan_name,
       g.grp_id AS group_id,
       g.grp_name AS group_name,
       u.comment AS comment,
       ph.value AS phone,
       ph.recorded_at AS phone_updated_at,
       sn.value AS serial,
       sn.recorded_at AS serial_updated_at,
       mc.value AS mac,
       mc.recorded_at AS mac_updated_at`

// Count returns the number of accounts matching the filter.
func (e *Engine) Count(ctx context.Context, f Filter) (int, error) {
	query, args, err := buildAudienceQuery(f, "COUNT(*) AS cnt", 0, 0, false)
	if err != nil {
		return 0, err
	}

	var n int
	if err := e.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("audience count: %w", err)
	}
	return n, nil
}

// List returns one page of matching accounts ordered by id.
func (e *Engine) List(ctx context.Context, f Filter, limit, offset int) ([]model.AccountView, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query, args, err := buildAudienceQuery(f, accountViewCols, limit, offset, true)
	if err != nil {
		return nil, err
	}

	var rows []model.AccountView
	if err := e.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("audience list: %w", err)
	}
	return rows, nil
}

// Groups returns the group filter catalog.
func (e *Engine) Groups(ctx context.Context) ([]model.BillingGroup, error) {
	var rows []model.BillingGroup
	if err := e.db.SelectContext(ctx, &rows, `SELECT grp_id, grp_name FROM user_grp ORDER BY grp_id`); err != nil {
		return nil, fmt.Errorf("billing groups: %w", err)
	}
	return rows, nil
}

// Plans returns the plan filter catalog.
func (e *Engine) Plans(ctx context.Context) ([]model.BillingPlan, error) {
	var rows []model.BillingPlan
	if err := e.db.SelectContext(ctx, &rows, `SELECT id, name FROM plans2 ORDER BY id`); err != nil {
		return nil, fmt.Errorf("billing plans: %w", err)
	}
	return rows, nil
}
