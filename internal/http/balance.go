package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/vharuk/notify-gateway/internal/channel"
	"github.com/vharuk/notify-gateway/internal/metrics"
)

// balanceHandler asks the SMS gateway for the remaining credits on demand.
// A periodic job refreshes the same gauge; this endpoint is for the UI's
// "check now" button.
func balanceHandler(gw *channel.Gateway) echo.HandlerFunc {
	return func(c echo.Context) error {
		bal, err := gw.Balance(c.Request().Context())
		if err != nil {
			c.Logger().Errorf("gateway balance failed: %v", err)

			return c.JSON(http.StatusBadGateway, map[string]string{"error": "gateway unavailable"})
		}

		metrics.GatewayBalance.Set(bal)

		return c.JSON(http.StatusOK, map[string]float64{"balance": bal})
	}
}
