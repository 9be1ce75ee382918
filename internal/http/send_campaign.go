package http

import (
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/vharuk/notify-gateway/internal/dispatch"
	"github.com/vharuk/notify-gateway/internal/http/middleware"
	"github.com/vharuk/notify-gateway/internal/model"
)

type sendCampaignReq struct {
	Message string         `json:"message"`
	Channel string         `json:"channel"` // "sms" | "telegram"
	Rows    []dispatch.Row `json:"rows"`
}

func sendCampaignHandler(coord *dispatch.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req sendCampaignReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" || len(req.Rows) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}
		if utf8.RuneCountInString(req.Message) > 1000 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "message too long"})
		}

		ch, ok := model.ParseChannelKind(req.Channel)
		if !ok {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid channel"})
		}

		// auth (set by APIKeyMiddleware)
		_, name, ok := middleware.StaffFromCtx(c)
		if !ok || name == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		res, err := coord.Dispatch(c.Request().Context(), dispatch.Request{
			Initiator: name,
			Text:      req.Message,
			Channel:   ch,
			Rows:      req.Rows,
		})
		if err != nil {
			if errors.Is(err, dispatch.ErrChannelSend) {
				// Rolled back whole; the operator can retry the batch as-is.
				return c.JSON(http.StatusBadGateway, map[string]string{
					"error":       "channel_send_failed",
					"description": "the channel refused the batch; nothing was persisted",
				})
			}

			log.Errorf("dispatch failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusCreated, res)
	}
}
