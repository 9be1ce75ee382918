package billing

import "strings"

// Filter is the closed set of audience predicates. Every set field is
// combined with AND; the zero value matches all accounts that have at least
// one revision for each attribute kind (the audience query inner-joins on
// phone, serial and MAC).
type Filter struct {
	IDs        []int64
	NamePrefix string
	GroupIDs   []int64
	PlanIDs    []int64

	// Thresholds apply to the remaining balance (balance minus the
	// outstanding monthly fee).
	BalanceGTE *float64
	BalanceLTE *float64

	// FeeOverBalance selects accounts whose fee meets or exceeds balance.
	FeeOverBalance bool

	// Active selects by plan: the billing convention marks switched-off
	// accounts with the "[1000]0." plan.
	Active *bool

	// Online selects by session state: billing keeps auth='on' while the
	// account has an active session.
	Online *bool

	// Equipment-delivered flags keyed on latest-revision emptiness.
	SerialDelivered *bool
	MACDelivered    *bool
}

const inactivePlanName = "[1000]0."

// where builds the conjunction for the set predicates. The empty filter
// yields an empty clause, which is a valid (unrestricted) conjunction.
// Slice-valued args are left for sqlx.In to expand.
func (f Filter) where() (string, []any) {
	var conds []string
	var args []any

	if len(f.IDs) > 0 {
		conds = append(conds, "u.id IN (?)")
		args = append(args, f.IDs)
	}
	if f.NamePrefix != "" {
		conds = append(conds, "u.fio LIKE ?")
		args = append(args, f.NamePrefix+"%")
	}
	if len(f.GroupIDs) > 0 {
		conds = append(conds, "g.grp_id IN (?)")
		args = append(args, f.GroupIDs)
	}
	if len(f.PlanIDs) > 0 {
		conds = append(conds, "p.id IN (?)")
		args = append(args, f.PlanIDs)
	}
	if f.BalanceGTE != nil {
		conds = append(conds, "(u.balance - t.submoney) >= ?")
		args = append(args, *f.BalanceGTE)
	}
	if f.BalanceLTE != nil {
		conds = append(conds, "(u.balance - t.submoney) <= ?")
		args = append(args, *f.BalanceLTE)
	}
	if f.FeeOverBalance {
		conds = append(conds, "t.submoney >= u.balance")
	}
	if f.Active != nil {
		if *f.Active {
			conds = append(conds, "p.name <> ?")
		} else {
			conds = append(conds, "p.name = ?")
		}
		args = append(args, inactivePlanName)
	}
	if f.Online != nil {
		conds = append(conds, "u.auth = ?")
		if *f.Online {
			args = append(args, "on")
		} else {
			args = append(args, "no")
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, "\n  AND "), args
}
