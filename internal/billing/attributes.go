package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vharuk/notify-gateway/internal/model"
)

// Resolver reconstructs the current value of a timestamped attribute per
// account from the append-only dopvalues revision table.
//
// The current value as of T is the revision with the greatest recorded_at
// not after T. Two revisions can share a timestamp (the billing panel
// writes whole seconds); the one with the greatest id wins, which keeps
// every resolution deterministic.
type Resolver struct {
	db *sqlx.DB
}

func NewResolver(db *sqlx.DB) *Resolver {
	return &Resolver{db: db}
}

// tieBreak pins the join-back to a single row per (account, timestamp).
const tieBreak = `d.id = (
			SELECT MAX(d2.id) FROM dopvalues d2
			WHERE d2.dopfield_id = d.dopfield_id
			  AND d2.parent_id = d.parent_id
			  AND d2.time = d.time
		)`

// resolveQuery builds the as-of lookup: the newest revision per account with
// time not after asOf, ties broken by revision id. Both the group-by and the
// join-back carry the cutoff so a revision newer than asOf can never leak in.
func resolveQuery(kind model.AttributeKind, asOf time.Time) (string, []any) {
	q := `
		SELECT d.parent_id AS account_id,
		       d.field_value AS value,
		       d.time AS recorded_at
		FROM dopvalues d
		INNER JOIN (
			SELECT parent_id, MAX(time) AS max_time
			FROM dopvalues
			WHERE dopfield_id = ? AND time <= ?
			GROUP BY parent_id
		) latest ON latest.parent_id = d.parent_id AND latest.max_time = d.time
		WHERE d.dopfield_id = ? AND d.time <= ?
		  AND ` + tieBreak

	ts := asOf.Unix()
	return q, []any{int(kind), ts, int(kind), ts}
}

// Resolve returns accountID -> latest value for the given kind as of asOf.
// Accounts without any revision for the kind are absent from the result.
func (r *Resolver) Resolve(ctx context.Context, kind model.AttributeKind, asOf time.Time) (map[int64]model.AttributeValue, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("resolve: unknown attribute kind %d", kind)
	}

	q, args := resolveQuery(kind, asOf)
	var rows []model.AttributeValue
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", kind, err)
	}

	out := make(map[int64]model.AttributeValue, len(rows))
	for _, row := range rows {
		out[row.AccountID] = row
	}
	return out, nil
}

// latestRevisionSQL returns a derived table (parent_id, value, recorded_at)
// holding the newest revision of one attribute kind per account, for
// embedding into audience queries. delivered narrows on the emptiness of
// the latest value: the billing panel blanks the field when equipment is
// handed back, so "delivered" means the latest value is the empty string.
func latestRevisionSQL(kind model.AttributeKind, delivered *bool) (string, []any) {
	q := `
		SELECT d.parent_id, d.field_value AS value, d.time AS recorded_at
		FROM dopvalues d
		INNER JOIN (
			SELECT parent_id, MAX(time) AS max_time
			FROM dopvalues
			WHERE dopfield_id = ?
			GROUP BY parent_id
		) latest ON latest.parent_id = d.parent_id AND latest.max_time = d.time
		WHERE d.dopfield_id = ?
		  AND ` + tieBreak

	args := []any{int(kind), int(kind)}
	if delivered != nil {
		if *delivered {
			q += `
		  AND d.field_value = ''`
		} else {
			q += `
		  AND d.field_value <> ''`
		}
	}
	return q, args
}
