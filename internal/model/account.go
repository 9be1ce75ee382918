package model

// AttributeKind identifies one tracked per-account field in the billing
// store's append-only dopvalues table. The numeric value is the dopfield_id
// the billing panel writes.
type AttributeKind int

const (
	AttrPhone  AttributeKind = 8
	AttrMAC    AttributeKind = 13
	AttrSerial AttributeKind = 33
)

func (k AttributeKind) String() string {
	switch k {
	case AttrPhone:
		return "phone"
	case AttrMAC:
		return "mac"
	case AttrSerial:
		return "serial"
	default:
		return "unknown"
	}
}

func (k AttributeKind) Valid() bool {
	return k == AttrPhone || k == AttrMAC || k == AttrSerial
}

// ParseAttributeKind maps the API name onto the billing field id.
func ParseAttributeKind(s string) (AttributeKind, bool) {
	switch s {
	case "phone":
		return AttrPhone, true
	case "mac":
		return AttrMAC, true
	case "serial":
		return AttrSerial, true
	default:
		return 0, false
	}
}

// AttributeValue is the resolved current value of one attribute for one
// account: the revision with the greatest recorded_at not after the query
// time.
type AttributeValue struct {
	AccountID  int64  `db:"account_id" json:"account_id"`
	Value      string `db:"value" json:"value"`
	RecordedAt int64  `db:"recorded_at" json:"recorded_at"` // unix seconds, as stored by billing
}

// AccountView merges the base account row with the resolved attribute
// revisions. Balance is already net of the outstanding fee.
type AccountView struct {
	ID       int64   `db:"id" json:"id"`
	IP       string  `db:"ip" json:"ip"`
	Name     string  `db:"name" json:"name"`
	Fee      float64 `db:"fee" json:"fee"`
	Balance  float64 `db:"balance" json:"balance"`
	PlanID   int64   `db:"plan_id" json:"plan_id"`
	PlanName string  `db:"plan_name" json:"plan_name"`
	GroupID  int64   `db:"group_id" json:"group_id"`
	Group    string  `db:"group_name" json:"group_name"`
	Comment  string  `db:"comment" json:"comment"`

	Phone           string `db:"phone" json:"phone"`
	PhoneUpdatedAt  int64  `db:"phone_updated_at" json:"phone_updated_at"`
	Serial          string `db:"serial" json:"serial"`
	SerialUpdatedAt int64  `db:"serial_updated_at" json:"serial_updated_at"`
	MAC             string `db:"mac" json:"mac"`
	MACUpdatedAt    int64  `db:"mac_updated_at" json:"mac_updated_at"`
}

// Delinquent reports whether the monthly fee meets or exceeds the remaining
// balance.
func (a AccountView) Delinquent() bool { return a.Fee >= a.Balance }

// BillingGroup and BillingPlan are the filter catalogs exposed to the UI.
type BillingGroup struct {
	ID   int64  `db:"grp_id" json:"id"`
	Name string `db:"grp_name" json:"name"`
}

type BillingPlan struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}
