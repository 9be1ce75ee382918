package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/vharuk/notify-gateway/internal/billing"
	"github.com/vharuk/notify-gateway/internal/model"
)

// parseAudienceFilter maps query params onto the closed predicate set. An
// unparseable value is treated as absent rather than rejected; the UI sends
// well-formed params and curl typos should not 500.
func parseAudienceFilter(c echo.Context) billing.Filter {
	var f billing.Filter

	f.IDs = int64List(c.QueryParam("ids"))
	f.NamePrefix = strings.TrimSpace(c.QueryParam("name_prefix"))
	f.GroupIDs = int64List(c.QueryParam("group_ids"))
	f.PlanIDs = int64List(c.QueryParam("plan_ids"))

	if v, err := strconv.ParseFloat(c.QueryParam("balance_gte"), 64); err == nil {
		f.BalanceGTE = &v
	}
	if v, err := strconv.ParseFloat(c.QueryParam("balance_lte"), 64); err == nil {
		f.BalanceLTE = &v
	}
	if v, err := strconv.ParseBool(c.QueryParam("fee_over_balance")); err == nil {
		f.FeeOverBalance = v
	}
	if v, err := strconv.ParseBool(c.QueryParam("active")); err == nil {
		f.Active = &v
	}
	if v, err := strconv.ParseBool(c.QueryParam("online")); err == nil {
		f.Online = &v
	}
	if v, err := strconv.ParseBool(c.QueryParam("serial_delivered")); err == nil {
		f.SerialDelivered = &v
	}
	if v, err := strconv.ParseBool(c.QueryParam("mac_delivered")); err == nil {
		f.MACDelivered = &v
	}

	return f
}

func int64List(raw string) []int64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		if n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func pageParams(c echo.Context) (limit, offset int) {
	limit = 50
	offset = 0
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// audienceRow is the serialized account view, with the fee-vs-balance
// verdict computed for the UI.
type audienceRow struct {
	model.AccountView
	Delinquent bool `json:"delinquent"`
}

func audienceRows(views []model.AccountView) []audienceRow {
	rows := make([]audienceRow, len(views))
	for i, v := range views {
		rows[i] = audienceRow{AccountView: v, Delinquent: v.Delinquent()}
	}
	return rows
}

func listAudienceHandler(engine *billing.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		f := parseAudienceFilter(c)
		limit, offset := pageParams(c)

		views, err := engine.List(c.Request().Context(), f, limit, offset)
		if err != nil {
			c.Logger().Errorf("audience list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(views),
			"results": audienceRows(views),
		})
	}
}

// listAttributesHandler exposes the raw as-of attribute resolution: the
// value each account had for one attribute kind at a point in time.
func listAttributesHandler(resolver *billing.Resolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, ok := model.ParseAttributeKind(strings.TrimSpace(c.QueryParam("kind")))
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid kind"})
		}

		asOf := time.Now()
		if raw := strings.TrimSpace(c.QueryParam("as_of")); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid as_of"})
			}
			asOf = t
		}

		values, err := resolver.Resolve(c.Request().Context(), kind, asOf)
		if err != nil {
			c.Logger().Errorf("attribute resolve failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"kind":    kind.String(),
			"as_of":   asOf.UTC().Format(time.RFC3339),
			"count":   len(values),
			"results": values,
		})
	}
}

func countAudienceHandler(engine *billing.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		n, err := engine.Count(c.Request().Context(), parseAudienceFilter(c))
		if err != nil {
			c.Logger().Errorf("audience count failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]int{"total": n})
	}
}

func listGroupsHandler(engine *billing.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := engine.Groups(c.Request().Context())
		if err != nil {
			c.Logger().Errorf("groups list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{"results": rows})
	}
}

func listPlansHandler(engine *billing.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := engine.Plans(c.Request().Context())
		if err != nil {
			c.Logger().Errorf("plans list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{"results": rows})
	}
}
