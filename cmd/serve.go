package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vharuk/notify-gateway/internal/channel"
	"github.com/vharuk/notify-gateway/internal/config"
	"github.com/vharuk/notify-gateway/internal/db"
	httpSrv "github.com/vharuk/notify-gateway/internal/http"
	"github.com/vharuk/notify-gateway/internal/logger"
	"github.com/vharuk/notify-gateway/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		log := logger.Log

		billingDB, err := db.NewMySQLConnection(cfg.BillingDB.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.BillingDB.MaxOpenConns,
			MaxIdleConns:    cfg.BillingDB.MaxIdleConns,
			ConnMaxLifetime: cfg.BillingDB.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.BillingDB.ConnMaxIdleTime,
			PingTimeout:     cfg.BillingDB.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("billing mysql connect: %w", err)
		}
		defer billingDB.Close()

		notifyDB, err := db.NewMySQLConnection(cfg.NotifyDB.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.NotifyDB.MaxOpenConns,
			MaxIdleConns:    cfg.NotifyDB.MaxIdleConns,
			ConnMaxLifetime: cfg.NotifyDB.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.NotifyDB.ConnMaxIdleTime,
			PingTimeout:     cfg.NotifyDB.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("notify mysql connect: %w", err)
		}
		defer notifyDB.Close()

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
			DSN:             cfg.ClickHouse.DSN,
			MaxOpenConns:    cfg.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.ClickHouse.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.ClickHouse.ConnMaxIdleTime,
			PingTimeout:     cfg.ClickHouse.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		defer func() { _ = chDB.Close() }()

		gateway := channel.NewGateway(channel.GatewayOpts{
			BaseURL:  cfg.Gateway.BaseURL,
			Login:    cfg.Gateway.Login,
			Password: cfg.Gateway.Password,
			Sender:   cfg.Gateway.Sender,
			Live:     cfg.Gateway.Live,
			Timeout:  time.Duration(cfg.Gateway.TimeoutMs) * time.Millisecond,
		}, log)

		telegram, err := channel.NewTelegram(channel.TelegramOpts{
			Token:       cfg.Telegram.Token,
			SendRPS:     cfg.Telegram.SendRPS,
			Concurrency: cfg.Telegram.Concurrency,
			Live:        cfg.Telegram.Live,
		}, log)
		if err != nil {
			return fmt.Errorf("telegram bot: %w", err)
		}

		server := httpSrv.NewServer(
			cfg,
			billingDB, notifyDB, chDB,
			redisClient,
			[]channel.Channel{gateway, telegram},
			gateway,
			log,
		)

		// Periodic balance poll keeps the gauge fresh between UI checks.
		cr := cron.New()
		_, err = cr.AddFunc("@every 5m", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			bal, err := gateway.Balance(ctx)
			if err != nil {
				log.Warn("balance poll failed", zap.Error(err))
				return
			}
			metrics.GatewayBalance.Set(bal)
		})
		if err != nil {
			return fmt.Errorf("schedule balance poll: %w", err)
		}
		cr.Start()
		defer cr.Stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("starting http", zap.String("addr", cfg.HTTP.Addr))
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			log.Info("signal received, shutting down", zap.String("signal", sig.String()))
		case err := <-errCh:
			if err != nil {
				log.Error("http server exited", zap.Error(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)

		return nil
	},
}
