package dispatch

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/vharuk/notify-gateway/internal/channel"
	"github.com/vharuk/notify-gateway/internal/model"
	"github.com/vharuk/notify-gateway/internal/repository"
)

// stubChannel accepts any address starting with "+" and canonicalizes by
// trimming spaces. Sends are recorded and answered with sendOK.
type stubChannel struct {
	kind   model.ChannelKind
	sendOK bool
	sent   [][]string
}

func (s *stubChannel) Kind() model.ChannelKind { return s.kind }

func (s *stubChannel) Normalize(raw string) (string, bool) {
	addr := strings.TrimSpace(raw)
	return addr, strings.HasPrefix(addr, "+")
}

func (s *stubChannel) Send(ctx context.Context, destinations []string, text string) bool {
	s.sent = append(s.sent, destinations)
	return s.sendOK
}

func statuses(records []model.MessageRecord) []model.MessageStatus {
	out := make([]model.MessageStatus, len(records))
	for i, r := range records {
		out[i] = r.Status
	}
	return out
}

func TestClassifyDedupKeepsFirst(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{AccountID: 1, Address: "+380501112233"},
		{AccountID: 2, Address: " +380501112233 "}, // same after normalization
		{AccountID: 3, Address: "+380671112233"},
	}

	records, dests := classify(&stubChannel{kind: model.ChannelSMS}, nil, "c1", rows)

	want := []model.MessageStatus{model.StatusSent, model.StatusDuplicateAddress, model.StatusSent}
	got := statuses(records)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("row %d status = %s, want %s", i, got[i], want[i])
		}
	}
	if len(dests) != 2 || dests[0] != "+380501112233" || dests[1] != "+380671112233" {
		t.Fatalf("destinations = %v, want first occurrence of each address in order", dests)
	}
}

func TestClassifyInvalidNotCountedAsDuplicate(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{AccountID: 1, Address: "garbage"},
		{AccountID: 2, Address: "garbage"}, // repeat of a malformed address
		{AccountID: 3, Address: "+380501112233"},
	}

	records, dests := classify(&stubChannel{kind: model.ChannelSMS}, nil, "c1", rows)

	want := []model.MessageStatus{
		model.StatusInvalidAddress,
		model.StatusInvalidAddress,
		model.StatusSent,
	}
	for i, s := range statuses(records) {
		if s != want[i] {
			t.Fatalf("row %d status = %s, want %s", i, s, want[i])
		}
	}
	if len(dests) != 1 {
		t.Fatalf("destinations = %v, want exactly the one valid address", dests)
	}
	// Invalid rows keep the raw input in the ledger for the operator to see.
	if records[0].Address != "garbage" {
		t.Fatalf("invalid row address = %q, want raw input", records[0].Address)
	}
}

func TestClassifyTelegramSubscription(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{AccountID: 1, Address: "+380501112233"},
		{AccountID: 2, Address: "+380671112233"}, // no linked chat
		{AccountID: 3, Address: "+380931112233"},
	}
	chats := map[int64]int64{1: 111, 3: 333}

	records, dests := classify(&stubChannel{kind: model.ChannelTelegram}, chats, "c1", rows)

	want := []model.MessageStatus{model.StatusSent, model.StatusNotSubscribed, model.StatusSent}
	for i, s := range statuses(records) {
		if s != want[i] {
			t.Fatalf("row %d status = %s, want %s", i, s, want[i])
		}
	}
	if len(dests) != 2 || dests[0] != "111" || dests[1] != "333" {
		t.Fatalf("destinations = %v, want linked chat ids in upload order", dests)
	}
	// Sent rows record the chat actually targeted, not the phone.
	if records[0].Address != "111" {
		t.Fatalf("sent row address = %q, want chat id", records[0].Address)
	}
	if records[1].Address != "+380671112233" {
		t.Fatalf("not_subscribed row address = %q, want normalized phone", records[1].Address)
	}
}

func TestClassifyDuplicateBeforeSubscriptionCheck(t *testing.T) {
	t.Parallel()

	// The second row duplicates the first; even though account 2 has no
	// chat, the duplicate verdict wins because the address was seen first.
	rows := []Row{
		{AccountID: 1, Address: "+380501112233"},
		{AccountID: 2, Address: "+380501112233"},
	}
	chats := map[int64]int64{1: 111}

	records, _ := classify(&stubChannel{kind: model.ChannelTelegram}, chats, "c1", rows)

	if records[1].Status != model.StatusDuplicateAddress {
		t.Fatalf("row 1 status = %s, want duplicate_address", records[1].Status)
	}
}

func TestClassifyAssignsUniqueIDs(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{AccountID: 1, Address: "+380501112233"},
		{AccountID: 2, Address: "+380671112233"},
	}

	records, _ := classify(&stubChannel{kind: model.ChannelSMS}, nil, "c7", rows)

	ids := map[string]struct{}{}
	for _, r := range records {
		if r.CampaignID != "c7" {
			t.Fatalf("record campaign id = %q, want c7", r.CampaignID)
		}
		if r.ID == "" {
			t.Fatal("record id is empty")
		}
		ids[r.ID] = struct{}{}
	}
	if len(ids) != len(records) {
		t.Fatalf("got %d distinct ids for %d records", len(ids), len(records))
	}
}

// fakeConn is a minimal database/sql driver supporting only transactions;
// statements never reach it because the repositories below are fakes too.
type fakeConn struct {
	commits   int
	rollbacks int
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("statements not supported")
}
func (c *fakeConn) Close() error              { return nil }
func (c *fakeConn) Begin() (driver.Tx, error) { return fakeTx{c}, nil }

type fakeTx struct{ c *fakeConn }

func (t fakeTx) Commit() error   { t.c.commits++; return nil }
func (t fakeTx) Rollback() error { t.c.rollbacks++; return nil }

type fakeConnector struct{ conn *fakeConn }

func (f fakeConnector) Connect(context.Context) (driver.Conn, error) { return f.conn, nil }
func (f fakeConnector) Driver() driver.Driver                        { return fakeDriver{} }

type fakeDriver struct{}

func (fakeDriver) Open(string) (driver.Conn, error) { return nil, errors.New("open via connector") }

type fakeCampaigns struct{ inserted []model.Campaign }

func (f *fakeCampaigns) Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error {
	f.inserted = append(f.inserted, c)
	return nil
}

func (f *fakeCampaigns) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeCampaigns) List(ctx context.Context, initiator string, limit, offset int) ([]model.Campaign, int, error) {
	return nil, 0, nil
}

type fakeMessages struct{ inserted []model.MessageRecord }

func (f *fakeMessages) BulkInsert(ctx context.Context, tx *sqlx.Tx, msgs []model.MessageRecord) error {
	f.inserted = append(f.inserted, msgs...)
	return nil
}

func (f *fakeMessages) ListByCampaign(ctx context.Context, campaignID string) ([]model.MessageRecord, error) {
	return f.inserted, nil
}

type fakeOutbox struct{ topics []string }

func (f *fakeOutbox) Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, topic string, payload []byte) error {
	f.topics = append(f.topics, topic)
	return nil
}

type dispatchHarness struct {
	conn      *fakeConn
	campaigns *fakeCampaigns
	messages  *fakeMessages
	outbox    *fakeOutbox
	ch        *stubChannel
	coord     *Coordinator
}

func newDispatchHarness(ch *stubChannel) *dispatchHarness {
	h := &dispatchHarness{
		conn:      &fakeConn{},
		campaigns: &fakeCampaigns{},
		messages:  &fakeMessages{},
		outbox:    &fakeOutbox{},
		ch:        ch,
	}
	db := sqlx.NewDb(sql.OpenDB(fakeConnector{conn: h.conn}), "mysql")
	h.coord = NewCoordinator(
		db,
		h.campaigns,
		h.messages,
		nil,
		h.outbox,
		[]channel.Channel{ch},
		"campaigns.dispatched",
		zap.NewNop(),
	)
	return h
}

func TestDispatchZeroEligibleCommits(t *testing.T) {
	t.Parallel()

	h := newDispatchHarness(&stubChannel{kind: model.ChannelSMS, sendOK: true})

	res, err := h.coord.Dispatch(context.Background(), Request{
		Initiator: "admin",
		Text:      "hello",
		Channel:   model.ChannelSMS,
		Rows: []Row{
			{AccountID: 1, Address: "garbage"},
			{AccountID: 2, Address: "also-garbage"},
		},
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v, want commit despite zero eligible rows", err)
	}

	if len(h.ch.sent) != 0 {
		t.Error("channel must not be invoked when no row is eligible")
	}
	if h.conn.commits != 1 {
		t.Errorf("commits = %d, want 1", h.conn.commits)
	}
	if len(h.campaigns.inserted) != 1 || len(h.messages.inserted) != 2 {
		t.Errorf("persisted campaigns=%d messages=%d, want 1 and 2",
			len(h.campaigns.inserted), len(h.messages.inserted))
	}
	if len(h.outbox.topics) != 1 || h.outbox.topics[0] != "campaigns.dispatched" {
		t.Errorf("outbox topics = %v", h.outbox.topics)
	}
	if res.Total != 2 || res.Counts[model.StatusInvalidAddress] != 2 || res.Counts[model.StatusSent] != 0 {
		t.Errorf("result = %+v, want every row rejected and recorded", res)
	}
}

func TestDispatchSendFailureRollsBack(t *testing.T) {
	t.Parallel()

	h := newDispatchHarness(&stubChannel{kind: model.ChannelSMS, sendOK: false})

	_, err := h.coord.Dispatch(context.Background(), Request{
		Initiator: "admin",
		Text:      "hello",
		Channel:   model.ChannelSMS,
		Rows: []Row{
			{AccountID: 1, Address: "+380501112233"},
			{AccountID: 2, Address: "+380671112233"},
		},
	})
	if !errors.Is(err, ErrChannelSend) {
		t.Fatalf("Dispatch() error = %v, want ErrChannelSend", err)
	}

	if len(h.ch.sent) != 1 {
		t.Errorf("send attempts = %d, want 1", len(h.ch.sent))
	}
	if h.conn.commits != 0 {
		t.Errorf("commits = %d, want 0 after refused batch", h.conn.commits)
	}
	if h.conn.rollbacks == 0 {
		t.Error("refused batch must roll the transaction back")
	}
}

func TestDispatchLargeBatch(t *testing.T) {
	t.Parallel()

	h := newDispatchHarness(&stubChannel{kind: model.ChannelSMS, sendOK: true})

	rows := make([]Row, 250)
	for i := range rows {
		rows[i] = Row{AccountID: int64(i + 1), Address: fmt.Sprintf("+38050%07d", i+1)}
	}

	res, err := h.coord.Dispatch(context.Background(), Request{
		Initiator: "admin",
		Text:      "hello",
		Channel:   model.ChannelSMS,
		Rows:      rows,
	})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if res.Total != 250 || res.Counts[model.StatusSent] != 250 {
		t.Fatalf("result = %+v, want all 250 rows sent", res)
	}
	if len(h.messages.inserted) != 250 {
		t.Errorf("persisted messages = %d, want 250", len(h.messages.inserted))
	}
	if len(h.ch.sent) != 1 || len(h.ch.sent[0]) != 250 {
		t.Errorf("send batches = %d, want one batch carrying every destination", len(h.ch.sent))
	}
	if h.conn.commits != 1 {
		t.Errorf("commits = %d, want 1", h.conn.commits)
	}
}

func TestDispatchValidation(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(nil, nil, nil, nil, nil, nil, "campaigns.dispatched", nil)

	if _, err := c.Dispatch(context.Background(), Request{
		Channel: model.ChannelSMS, Rows: []Row{{AccountID: 1, Address: "+380501112233"}},
	}); err != ErrEmptyMessage {
		t.Fatalf("empty text: err = %v, want ErrEmptyMessage", err)
	}

	if _, err := c.Dispatch(context.Background(), Request{
		Text: "hi", Channel: model.ChannelSMS,
	}); err != ErrEmptyBatch {
		t.Fatalf("empty batch: err = %v, want ErrEmptyBatch", err)
	}

	if _, err := c.Dispatch(context.Background(), Request{
		Text: "hi", Channel: "pigeon", Rows: []Row{{AccountID: 1, Address: "+380501112233"}},
	}); err == nil {
		t.Fatal("unknown channel: err = nil, want ErrUnknownChannel")
	}
}
