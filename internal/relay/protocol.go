// Package relay runs network speech back ends on behalf of clients that must
// not hold credentials or cannot reach the service themselves.
//
// Clients keep one websocket to the relay and send [Request] messages; the
// relay answers each with a [Response] carrying the same ID. Requests on one
// connection are served concurrently, so responses may arrive out of order.
// The relay also answers the Azure proxy protocol on POST /v1/azure/speech,
// and exposes /healthz, /readyz and /metrics.
package relay

import (
	"errors"

	"github.com/MrWong99/yuetip/pkg/provider/speech"
)

// WSPath is where the relay accepts websocket connections.
const WSPath = "/ws"

// maxMessageBytes bounds one websocket message. Audio for a single headword
// is far below this.
const maxMessageBytes = 8 << 20

// ErrClosed is returned by [Client] calls after Close.
var ErrClosed = errors.New("relay: client closed")

// Request asks the relay to synthesize text with a network engine.
type Request struct {
	ID     uint64        `json:"id"`
	Engine speech.Engine `json:"engine"`
	Text   string        `json:"text"`
	Rate   float64       `json:"rate"`
}

// Response answers the [Request] with the same ID. Exactly one of Audio and
// Error is set.
type Response struct {
	ID    uint64 `json:"id"`
	Audio []byte `json:"audio,omitempty"`
	MIME  string `json:"mime,omitempty"`
	Error string `json:"error,omitempty"`
}
