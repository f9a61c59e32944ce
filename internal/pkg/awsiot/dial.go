package awsiot

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"nhooyr.io/websocket"

	"github.com/autopeer-io/geotrack/pkg/log"
)

const mqttSubprotocol = "mqtt"

// Dialer opens MQTT-over-websocket connections, presigning the URL on every
// attempt so reconnects after credential refresh use fresh signatures.
type Dialer struct {
	Presigner  *Presigner
	HTTPClient *http.Client
}

// Dial ignores the URL chosen by the MQTT client in favour of a freshly
// presigned one for the same endpoint.
func (d *Dialer) Dial(ctx context.Context, _ *url.URL) (net.Conn, error) {
	u, err := d.Presigner.Presign(ctx)
	if err != nil {
		return nil, err
	}

	log.Debug("Dialing IoT websocket", "host", u.Host)

	c, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPClient:   d.HTTPClient,
		Subprotocols: []string{mqttSubprotocol},
	})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	// The connection outlives ctx, which only bounds the handshake.
	return websocket.NetConn(context.Background(), c, websocket.MessageBinary), nil
}
