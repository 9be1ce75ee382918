package worker

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/vharuk/notify-gateway/internal/kafka"
	"github.com/vharuk/notify-gateway/internal/model"
	"github.com/vharuk/notify-gateway/internal/repository"
)

// Mirror consumes campaign envelopes from Kafka (published via the outbox)
// and copies each committed campaign's ledger rows from MySQL into the
// ClickHouse read model. Delivery is at-least-once; the ClickHouse table
// dedupes on its key, so a replayed envelope is harmless.
type Mirror struct {
	Consumer *kafka.Consumer
	Messages repository.MessagesRepository
	Mirror   repository.CHMessagesRepository
	Log      *zap.Logger
}

func NewMirror(consumer *kafka.Consumer, messages repository.MessagesRepository, ch repository.CHMessagesRepository, log *zap.Logger) *Mirror {
	return &Mirror{Consumer: consumer, Messages: messages, Mirror: ch, Log: log}
}

// Run blocks until ctx is cancelled.
func (w *Mirror) Run(ctx context.Context) error {
	for {
		m, err := w.Consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.Log.Warn("kafka fetch failed", zap.Error(err))
			time.Sleep(200 * time.Millisecond)
			continue
		}
		w.processOne(ctx, m)
	}
}

func (w *Mirror) processOne(ctx context.Context, m kafka.Message) {
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.CampaignID == "" {
		// Poison message: commit and skip, it will never parse better.
		if err != nil {
			w.Log.Warn("bad envelope json", zap.Error(err))
		} else {
			w.Log.Warn("envelope missing campaign id")
		}
		_ = w.Consumer.Commit(ctx, m)
		return
	}

	rows, err := w.Messages.ListByCampaign(ctx, env.CampaignID)
	if err != nil {
		// Transient: leave uncommitted so the fetch retries the offset.
		w.Log.Error("read ledger for mirror", zap.String("campaign_id", env.CampaignID), zap.Error(err))
		return
	}

	if err := w.Mirror.InsertBatch(ctx, rows); err != nil {
		w.Log.Error("mirror insert", zap.String("campaign_id", env.CampaignID), zap.Error(err))
		return
	}

	if err := w.Consumer.Commit(ctx, m); err != nil {
		w.Log.Warn("kafka commit failed", zap.Error(err))
		return
	}

	w.Log.Info("campaign mirrored",
		zap.String("campaign_id", env.CampaignID),
		zap.Int("rows", len(rows)))
}
