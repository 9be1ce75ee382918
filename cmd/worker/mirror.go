package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vharuk/notify-gateway/internal/config"
	"github.com/vharuk/notify-gateway/internal/db"
	"github.com/vharuk/notify-gateway/internal/kafka"
	"github.com/vharuk/notify-gateway/internal/logger"
	"github.com/vharuk/notify-gateway/internal/repository"
	"github.com/vharuk/notify-gateway/internal/worker"
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror committed campaign ledgers into ClickHouse",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		log := logger.Log

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

		groupID := cfg.Kafka.GroupID
		if groupID == "" {
			groupID = "notify-mirror"
		}

		consumer := kafka.NewConsumerFromConfig(kafka.Config{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.Topic,
			GroupID:        groupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		})
		defer consumer.Close()

		w := worker.NewMirror(
			consumer,
			repository.NewMessagesRepository(notifyDB, cfg.Dispatch.ChunkSize),
			repository.NewCHMessagesRepository(chDB),
			log,
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Info("mirror worker started",
			zap.String("topic", cfg.Kafka.Topic),
			zap.String("group", groupID))

		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	},
}
