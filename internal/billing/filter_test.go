package billing

import (
	"strings"
	"testing"
)

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }

func TestFilterWhere_Empty(t *testing.T) {
	t.Parallel()

	clause, args := Filter{}.where()
	if clause != "" {
		t.Errorf("empty filter clause = %q, want empty", clause)
	}
	if len(args) != 0 {
		t.Errorf("empty filter args = %v, want none", args)
	}
}

func TestFilterWhere_AllPredicates(t *testing.T) {
	t.Parallel()

	f := Filter{
		IDs:            []int64{1, 2, 3},
		NamePrefix:     "Іван",
		GroupIDs:       []int64{10},
		PlanIDs:        []int64{5, 6},
		BalanceGTE:     fptr(0),
		BalanceLTE:     fptr(100),
		FeeOverBalance: true,
		Active:         bptr(true),
		Online:         bptr(true),
	}
	clause, args := f.where()

	for _, want := range []string{
		"u.id IN (?)",
		"u.fio LIKE ?",
		"g.grp_id IN (?)",
		"p.id IN (?)",
		"(u.balance - t.submoney) >= ?",
		"(u.balance - t.submoney) <= ?",
		"t.submoney >= u.balance",
		"p.name <> ?",
		"u.auth = ?",
	} {
		if !strings.Contains(clause, want) {
			t.Errorf("clause missing %q:\n%s", want, clause)
		}
	}
	if !strings.HasPrefix(clause, "WHERE ") {
		t.Errorf("clause should start with WHERE, got %q", clause)
	}
	// ids, prefix, groups, plans, gte, lte, plan name, auth
	if len(args) != 8 {
		t.Errorf("args count = %d, want 8", len(args))
	}
	if args[1] != "Іван%" {
		t.Errorf("name prefix arg = %v, want Іван%%", args[1])
	}
}

func TestFilterWhere_Online(t *testing.T) {
	t.Parallel()

	clause, args := Filter{Online: bptr(false)}.where()
	if !strings.Contains(clause, "u.auth = ?") {
		t.Errorf("offline filter should test the session flag, got %q", clause)
	}
	if len(args) != 1 || args[0] != "no" {
		t.Errorf("args = %v, want [no]", args)
	}
}

func TestFilterWhere_InactivePlan(t *testing.T) {
	t.Parallel()

	clause, args := Filter{Active: bptr(false)}.where()
	if !strings.Contains(clause, "p.name = ?") {
		t.Errorf("inactive filter should match the switched-off plan, got %q", clause)
	}
	if len(args) != 1 || args[0] != inactivePlanName {
		t.Errorf("args = %v, want [%q]", args, inactivePlanName)
	}
}

func TestBuildAudienceQuery_StableOrdering(t *testing.T) {
	t.Parallel()

	query, args, err := buildAudienceQuery(Filter{IDs: []int64{7, 8}}, accountViewCols, 10, 20, true)
	if err != nil {
		t.Fatalf("buildAudienceQuery: %v", err)
	}

	if !strings.Contains(query, "ORDER BY u.id ASC") {
		t.Error("paginated query must order by account id")
	}
	if !strings.Contains(query, "LIMIT ? OFFSET ?") {
		t.Error("paginated query must carry limit/offset placeholders")
	}
	// sqlx.In must have expanded the id list into two placeholders.
	if !strings.Contains(query, "u.id IN (?, ?)") {
		t.Errorf("IN clause not expanded:\n%s", query)
	}
	if got, want := args[len(args)-2], 10; got != want {
		t.Errorf("limit arg = %v, want %v", got, want)
	}
	if got, want := args[len(args)-1], 20; got != want {
		t.Errorf("offset arg = %v, want %v", got, want)
	}
}

func TestBuildAudienceQuery_InnerJoinsAllAttributeKinds(t *testing.T) {
	t.Parallel()

	query, _, err := buildAudienceQuery(Filter{}, "COUNT(*) AS cnt", 0, 0, false)
	if err != nil {
		t.Fatalf("buildAudienceQuery: %v", err)
	}

	// Inner joins mean an account with no revision for a kind never appears.
	for _, alias := range []string{") ph ON ph.parent_id = u.id", ") sn ON sn.parent_id = u.id", ") mc ON mc.parent_id = u.id"} {
		if !strings.Contains(query, alias) {
			t.Errorf("query missing inner join %q", alias)
		}
	}
	if strings.Contains(query, "LEFT JOIN") {
		t.Error("audience query must not null-fill missing attributes")
	}
	if strings.Contains(query, "ORDER BY") {
		t.Error("count query should not order")
	}
}

func TestBuildAudienceQuery_EquipmentDelivered(t *testing.T) {
	t.Parallel()

	query, _, err := buildAudienceQuery(Filter{
		SerialDelivered: bptr(true),
		MACDelivered:    bptr(false),
	}, "COUNT(*) AS cnt", 0, 0, false)
	if err != nil {
		t.Fatalf("buildAudienceQuery: %v", err)
	}

	if !strings.Contains(query, "d.field_value = ''") {
		t.Error("delivered=true must test latest value for emptiness")
	}
	if !strings.Contains(query, "d.field_value <> ''") {
		t.Error("delivered=false must test latest value for non-emptiness")
	}
}
