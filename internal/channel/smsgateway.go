package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vharuk/notify-gateway/internal/model"
	"github.com/vharuk/notify-gateway/internal/util"
)

// Gateway is the batch SMS adapter. One Send covers the whole batch: the
// gateway authenticates, submits all destinations in one call and acks with
// a single flag. Transport and protocol errors are absorbed into a false
// return; only Balance propagates errors, since callers need to distinguish
// "zero credits" from "could not ask".
type Gateway struct {
	baseURL  string
	login    string
	password string
	sender   string
	live     bool
	client   *http.Client
	log      *zap.Logger
}

type GatewayOpts struct {
	BaseURL  string
	Login    string
	Password string
	Sender   string
	Live     bool
	Timeout  time.Duration
}

func NewGateway(opts GatewayOpts, log *zap.Logger) *Gateway {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{
		baseURL:  opts.BaseURL,
		login:    opts.Login,
		password: opts.Password,
		sender:   opts.Sender,
		live:     opts.Live,
		client:   &http.Client{Timeout: timeout},
		log:      log,
	}
}

var _ Channel = (*Gateway)(nil)

func (g *Gateway) Kind() model.ChannelKind { return model.ChannelSMS }

func (g *Gateway) Normalize(raw string) (string, bool) {
	s := util.NormalizePhone(raw)
	return s, util.ValidPhone(s)
}

// Send authenticates and submits the batch. When live delivery is disabled
// (staging) it is a no-op success.
func (g *Gateway) Send(ctx context.Context, destinations []string, text string) bool {
	if !g.live {
		g.log.Info("gateway send skipped (live disabled)",
			zap.Int("destinations", len(destinations)))
		return true
	}

	token, err := g.auth(ctx)
	if err != nil {
		g.log.Error("gateway auth failed", zap.Error(err))
		return false
	}

	body := map[string]any{
		"sender":       g.sender,
		"destinations": destinations,
		"text":         text,
	}
	var res struct {
		Success bool `json:"success"`
	}
	if err := g.post(ctx, "/send", token, body, &res); err != nil {
		g.log.Error("gateway send failed",
			zap.Int("destinations", len(destinations)), zap.Error(err))
		return false
	}
	if !res.Success {
		g.log.Warn("gateway rejected batch",
			zap.Int("destinations", len(destinations)))
		return false
	}
	return true
}

// Balance returns the remaining gateway credits. Unlike Send, errors
// propagate.
func (g *Gateway) Balance(ctx context.Context) (float64, error) {
	token, err := g.auth(ctx)
	if err != nil {
		return 0, fmt.Errorf("gateway auth: %w", err)
	}

	var res struct {
		Balance float64 `json:"balance"`
	}
	if err := g.post(ctx, "/balance", token, map[string]any{}, &res); err != nil {
		return 0, fmt.Errorf("gateway balance: %w", err)
	}
	return res.Balance, nil
}

func (g *Gateway) auth(ctx context.Context) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	body := map[string]any{"login": g.login, "password": g.password}
	if err := g.post(ctx, "/auth", "", body, &res); err != nil {
		return "", err
	}
	if res.Token == "" {
		return "", fmt.Errorf("gateway auth: empty token")
	}
	return res.Token, nil
}

func (g *Gateway) post(ctx context.Context, path, token string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("gateway path=%s status=%d", path, res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
