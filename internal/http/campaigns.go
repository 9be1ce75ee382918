package http

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v4"

	"github.com/vharuk/notify-gateway/internal/repository"
)

func listCampaignsHandler(campaigns repository.CampaignsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit, offset := pageParams(c)

		rows, total, err := campaigns.List(c.Request().Context(), c.QueryParam("initiator"), limit, offset)
		if err != nil {
			c.Logger().Errorf("campaigns list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"total":   total,
			"results": rows,
		})
	}
}

func getCampaignHandler(campaigns repository.CampaignsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		row, err := campaigns.GetByID(c.Request().Context(), c.Param("id"))
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}
		if err != nil {
			c.Logger().Errorf("campaign get failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, row)
	}
}

// listCampaignMessagesHandler serves the authoritative MySQL ledger for one
// campaign; the ClickHouse report endpoint serves the mirrored copy.
func listCampaignMessagesHandler(messages repository.MessagesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		rows, err := messages.ListByCampaign(c.Request().Context(), c.Param("id"))
		if err != nil {
			c.Logger().Errorf("campaign messages failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"count":   len(rows),
			"results": rows,
		})
	}
}
