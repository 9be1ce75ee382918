package http

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vharuk/notify-gateway/internal/billing"
	"github.com/vharuk/notify-gateway/internal/channel"
	"github.com/vharuk/notify-gateway/internal/config"
	"github.com/vharuk/notify-gateway/internal/dispatch"
	"github.com/vharuk/notify-gateway/internal/http/middleware"
	"github.com/vharuk/notify-gateway/internal/metrics"
	"github.com/vharuk/notify-gateway/internal/repository"
)

type Server struct{ e *echo.Echo }

func NewServer(
	cfg config.Config,
	billingDB, notifyDB, clickhouseDB *sqlx.DB,
	rds *redis.Client,
	channels []channel.Channel,
	gateway *channel.Gateway,
	log *zap.Logger,
) *Server {
	// repos (notify MySQL)
	staffRepo := repository.NewStaffRepository(notifyDB)
	campaignsRepo := repository.NewCampaignsRepository(notifyDB)
	messagesRepo := repository.NewMessagesRepository(notifyDB, cfg.Dispatch.ChunkSize)
	subscribersRepo := repository.NewSubscribersRepository(notifyDB)
	outboxRepo := repository.NewOutboxRepository(notifyDB)

	// repos (ClickHouse)
	chMessagesRepo := repository.NewCHMessagesRepository(clickhouseDB)

	// billing read model
	engine := billing.NewEngine(billingDB)
	resolver := billing.NewResolver(billingDB)

	// dispatch pipeline
	coord := dispatch.NewCoordinator(
		notifyDB,
		campaignsRepo,
		messagesRepo,
		subscribersRepo,
		outboxRepo,
		channels,
		cfg.Kafka.Topic,
		log,
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(staffRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:staff:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)

	v1.GET("/audience", listAudienceHandler(engine))
	v1.GET("/audience/count", countAudienceHandler(engine))
	v1.GET("/audience/groups", listGroupsHandler(engine))
	v1.GET("/audience/plans", listPlansHandler(engine))
	v1.GET("/audience/attributes", listAttributesHandler(resolver))

	v1.POST("/campaigns/send", sendCampaignHandler(coord))
	v1.GET("/campaigns", listCampaignsHandler(campaignsRepo))
	v1.GET("/campaigns/:id", getCampaignHandler(campaignsRepo))
	v1.GET("/campaigns/:id/messages", listCampaignMessagesHandler(messagesRepo))

	v1.GET("/reports/messages", listMessagesReportHandler(chMessagesRepo))
	v1.GET("/sms/balance", balanceHandler(gateway))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
