package http

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/vharuk/notify-gateway/internal/model"
	"github.com/vharuk/notify-gateway/internal/repository"
)

func listMessagesReportHandler(chRepo repository.CHMessagesRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		campaignID := strings.TrimSpace(c.QueryParam("campaign_id"))
		if campaignID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "campaign_id required"})
		}

		limit, offset := pageParams(c)

		var st model.MessageStatus
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			tmp := model.MessageStatus(raw)
			if tmp.Valid() {
				st = tmp
			}
		}

		msgs, err := chRepo.ListByCampaign(c.Request().Context(), campaignID, st, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(msgs),
			"results": msgs,
		})
	}
}
