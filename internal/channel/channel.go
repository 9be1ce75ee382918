package channel

import (
	"context"

	"github.com/vharuk/notify-gateway/internal/model"
)

// Channel is the uniform send contract the dispatch coordinator works
// against. Implementations own their address grammar and their transport;
// Send reports batch success only — the gateway acks a whole batch with one
// flag, so per-destination detail stays inside the adapter (logged there).
type Channel interface {
	Kind() model.ChannelKind

	// Normalize validates raw against the channel's address grammar and
	// returns the canonical form. ok=false means the address is malformed.
	Normalize(raw string) (addr string, ok bool)

	// Send delivers text to all destinations. A false return means the
	// batch must be treated as not delivered.
	Send(ctx context.Context, destinations []string, text string) bool
}
