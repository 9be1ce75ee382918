package channel

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/vharuk/notify-gateway/internal/model"
	"github.com/vharuk/notify-gateway/internal/util"
)

// sender is the slice of *tele.Bot the adapter needs; narrowed for tests.
type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Telegram is the fan-out adapter: one request per chat, issued
// concurrently under a concurrency cap and a flood-control rate limit. A
// failed chat does not cancel its siblings; the overall result is the AND
// of all outcomes, with per-chat failures logged before aggregation.
type Telegram struct {
	bot         sender
	limiter     *rate.Limiter
	concurrency int
	live        bool
	log         *zap.Logger
}

type TelegramOpts struct {
	Token       string
	SendRPS     int // Telegram flood limit is ~30 msg/s per bot
	Concurrency int
	Live        bool
}

func NewTelegram(opts TelegramOpts, log *zap.Logger) (*Telegram, error) {
	b, err := tele.NewBot(tele.Settings{Token: opts.Token, Offline: !opts.Live})
	if err != nil {
		return nil, err
	}
	return newTelegram(b, opts, log), nil
}

func newTelegram(b sender, opts TelegramOpts, log *zap.Logger) *Telegram {
	rps := opts.SendRPS
	if rps <= 0 {
		rps = 25
	}
	conc := opts.Concurrency
	if conc <= 0 {
		conc = 16
	}
	return &Telegram{
		bot:         b,
		limiter:     rate.NewLimiter(rate.Limit(rps), rps),
		concurrency: conc,
		live:        opts.Live,
		log:         log,
	}
}

var _ Channel = (*Telegram)(nil)

func (t *Telegram) Kind() model.ChannelKind { return model.ChannelTelegram }

// Normalize applies the same phone grammar as SMS: uploaded rows carry the
// subscriber's phone; chat resolution happens later against the identity
// index.
func (t *Telegram) Normalize(raw string) (string, bool) {
	s := util.NormalizePhone(raw)
	return s, util.ValidPhone(s)
}

// Send delivers text to every chat id in destinations.
func (t *Telegram) Send(ctx context.Context, destinations []string, text string) bool {
	if !t.live {
		t.log.Info("telegram send skipped (live disabled)",
			zap.Int("destinations", len(destinations)))
		return true
	}

	var (
		mu     sync.Mutex
		failed int
	)

	g := &errgroup.Group{}
	g.SetLimit(t.concurrency)
	for _, dest := range destinations {
		g.Go(func() error {
			chatID, err := strconv.ParseInt(dest, 10, 64)
			if err == nil {
				if err = t.limiter.Wait(ctx); err == nil {
					_, err = t.bot.Send(tele.ChatID(chatID), text)
				}
			}
			if err != nil {
				t.log.Warn("telegram send failed",
					zap.String("chat", dest), zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
			}
			// Never propagate: a slow or failing chat must not cancel the rest.
			return nil
		})
	}
	_ = g.Wait()

	if failed > 0 {
		t.log.Warn("telegram fan-out incomplete",
			zap.Int("failed", failed), zap.Int("total", len(destinations)))
		return false
	}
	return true
}
