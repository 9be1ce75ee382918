package middleware

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/vharuk/notify-gateway/internal/repository"
)

// StaffFromCtx extracts the authenticated operator set by APIKeyMiddleware.
func StaffFromCtx(c echo.Context) (id int64, name string, ok bool) {
	id, okID := c.Get("staff_id").(int64)
	name, okName := c.Get("staff_name").(string)
	return id, name, okID && okName
}

// APIKeyMiddleware authenticates requests using X-API-Key header.
// On success it stores the staff identity in context and blocks suspended
// operators.
func APIKeyMiddleware(staff repository.StaffRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			st, err := staff.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if st == nil || st.Status != "active" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set("staff_id", st.ID)
			c.Set("staff_name", st.Name)
			if st.RateLimitRPS != nil {
				c.Set("staff_rps", *st.RateLimitRPS)
			}
			return next(c)
		}
	}
}
