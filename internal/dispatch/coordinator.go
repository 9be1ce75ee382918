package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/vharuk/notify-gateway/internal/channel"
	"github.com/vharuk/notify-gateway/internal/metrics"
	"github.com/vharuk/notify-gateway/internal/model"
	"github.com/vharuk/notify-gateway/internal/repository"
	"github.com/vharuk/notify-gateway/internal/util"
)

var (
	ErrEmptyMessage   = errors.New("dispatch: empty message text")
	ErrEmptyBatch     = errors.New("dispatch: empty recipient batch")
	ErrUnknownChannel = errors.New("dispatch: unknown channel")

	// ErrChannelSend means the channel refused the batch; the whole dispatch
	// was rolled back and no campaign exists.
	ErrChannelSend = errors.New("dispatch: channel send failed")
)

// Row is one uploaded recipient: the billing account and the raw address
// the operator's export carried for it.
type Row struct {
	AccountID int64  `json:"account_id"`
	Address   string `json:"address"`
}

// Request is one dispatch attempt as it arrives from the HTTP layer.
type Request struct {
	Initiator string
	Text      string
	Channel   model.ChannelKind
	Rows      []Row
}

// Result summarizes a committed dispatch.
type Result struct {
	CampaignID string                      `json:"campaign_id"`
	Total      int                         `json:"total"`
	Counts     map[model.MessageStatus]int `json:"counts"`
}

// Coordinator runs the dispatch pipeline: classify every row, persist the
// campaign plus its full ledger in one transaction, hand the eligible
// destinations to the channel, and commit only if the channel accepts the
// batch. A refused batch rolls the whole campaign back; retrying produces a
// fresh campaign id.
type Coordinator struct {
	db          *sqlx.DB
	campaigns   repository.CampaignsRepository
	messages    repository.MessagesRepository
	subscribers repository.SubscribersRepository
	outbox      repository.OutboxRepository
	channels    map[model.ChannelKind]channel.Channel
	topic       string
	log         *zap.Logger
}

func NewCoordinator(
	db *sqlx.DB,
	campaigns repository.CampaignsRepository,
	messages repository.MessagesRepository,
	subscribers repository.SubscribersRepository,
	outbox repository.OutboxRepository,
	channels []channel.Channel,
	topic string,
	log *zap.Logger,
) *Coordinator {
	byKind := make(map[model.ChannelKind]channel.Channel, len(channels))
	for _, ch := range channels {
		byKind[ch.Kind()] = ch
	}
	return &Coordinator{
		db:          db,
		campaigns:   campaigns,
		messages:    messages,
		subscribers: subscribers,
		outbox:      outbox,
		channels:    byKind,
		topic:       topic,
		log:         log,
	}
}

// Dispatch runs one campaign end to end.
func (c *Coordinator) Dispatch(ctx context.Context, req Request) (*Result, error) {
	if req.Text == "" {
		return nil, ErrEmptyMessage
	}
	if len(req.Rows) == 0 {
		return nil, ErrEmptyBatch
	}
	ch, ok := c.channels[req.Channel]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, req.Channel)
	}

	// The identity index is only consulted for channels that deliver to a
	// registered identity rather than to the address itself.
	var chats map[int64]int64
	if req.Channel == model.ChannelTelegram {
		var err error
		chats, err = c.subscribers.MapByAccountIDs(ctx, accountIDs(req.Rows))
		if err != nil {
			return nil, fmt.Errorf("resolve subscribers: %w", err)
		}
	}

	campaignID := util.New()
	records, destinations := classify(ch, chats, campaignID, req.Rows)

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin dispatch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	campaign := model.Campaign{
		ID:        campaignID,
		Message:   req.Text,
		Channel:   req.Channel,
		Initiator: req.Initiator,
	}
	if err := c.campaigns.Insert(ctx, tx, campaign); err != nil {
		return nil, fmt.Errorf("insert campaign: %w", err)
	}
	if err := c.messages.BulkInsert(ctx, tx, records); err != nil {
		return nil, fmt.Errorf("insert messages: %w", err)
	}

	payload, err := json.Marshal(model.Envelope{
		CampaignID: campaignID,
		Channel:    req.Channel,
		Initiator:  req.Initiator,
		Rows:       len(records),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	if err := c.outbox.Insert(ctx, tx, "campaign", campaignID, c.topic, payload); err != nil {
		return nil, fmt.Errorf("insert outbox event: %w", err)
	}

	// The send happens inside the transaction window on purpose: if the
	// channel refuses the batch the rollback erases the campaign and its
	// ledger, so a failed attempt leaves no trace and can be retried whole.
	// A batch with nothing eligible still commits; its ledger documents why
	// nobody was reachable.
	if len(destinations) > 0 {
		if !ch.Send(ctx, destinations, req.Text) {
			metrics.CampaignsTotal.WithLabelValues(req.Channel.String(), "send_failed").Inc()
			return nil, ErrChannelSend
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dispatch tx: %w", err)
	}

	counts := make(map[model.MessageStatus]int, 4)
	for _, m := range records {
		counts[m.Status]++
		metrics.MessagesTotal.WithLabelValues(m.Status.String(), req.Channel.String()).Inc()
	}
	metrics.CampaignsTotal.WithLabelValues(req.Channel.String(), "committed").Inc()

	c.log.Info("campaign dispatched",
		zap.String("campaign_id", campaignID),
		zap.String("channel", req.Channel.String()),
		zap.String("initiator", req.Initiator),
		zap.Int("rows", len(records)),
		zap.Int("eligible", len(destinations)))

	return &Result{CampaignID: campaignID, Total: len(records), Counts: counts}, nil
}

func accountIDs(rows []Row) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.AccountID)
	}
	return ids
}

// classify walks the batch in upload order and assigns every row its final
// ledger status. Rules, in order:
//
//   - address fails the channel's grammar      -> invalid_address
//   - normalized address already seen          -> duplicate_address
//   - no linked chat (identity channels only)  -> not_subscribed
//   - otherwise                                -> sent
//
// Only grammar-valid addresses enter the seen set, so a malformed repeat is
// still reported as invalid rather than duplicate. The returned destinations
// preserve upload order.
func classify(ch channel.Channel, chats map[int64]int64, campaignID string, rows []Row) ([]model.MessageRecord, []string) {
	records := make([]model.MessageRecord, 0, len(rows))
	destinations := make([]string, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		rec := model.MessageRecord{
			ID:         util.New(),
			CampaignID: campaignID,
			AccountID:  row.AccountID,
			Address:    row.Address,
		}

		addr, ok := ch.Normalize(row.Address)
		switch {
		case !ok:
			rec.Status = model.StatusInvalidAddress
		default:
			rec.Address = addr
			if _, dup := seen[addr]; dup {
				rec.Status = model.StatusDuplicateAddress
				break
			}
			seen[addr] = struct{}{}

			if chats != nil {
				chatID, linked := chats[row.AccountID]
				if !linked {
					rec.Status = model.StatusNotSubscribed
					break
				}
				rec.Address = strconv.FormatInt(chatID, 10)
				rec.Status = model.StatusSent
				destinations = append(destinations, rec.Address)
				break
			}

			rec.Status = model.StatusSent
			destinations = append(destinations, addr)
		}

		records = append(records, rec)
	}

	return records, destinations
}
