package mqtt

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// DialFunc establishes the raw network connection for a broker URL.
// It is used when the broker requires a custom handshake such as a presigned websocket.
type DialFunc func(ctx context.Context, u *url.URL) (net.Conn, error)

// ClientConfig holds the configuration for creating a new MQTT Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout bounds a single connection attempt. Default is 5s.
	ConnectTimeout time.Duration

	// SessionExpiry in seconds, sent with CONNECT.
	SessionExpiry uint32

	// CleanStart indicates whether to start a clean session on the first connection.
	CleanStart bool

	// BackoffMin and BackoffMax bound the exponential reconnect delay.
	BackoffMin time.Duration
	BackoffMax time.Duration

	// InsecureSkipVerify disables TLS certificate verification. Test brokers only.
	InsecureSkipVerify bool

	// Dial, when set, replaces the transport's own connection logic.
	Dial DialFunc

	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool

	// Debug routes the transport's internal trace logging to pkg/log.
	Debug bool
}

// setDefaultConfig applies safe default values to the configuration.
func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}

	if cfg.BackoffMin == 0 {
		cfg.BackoffMin = time.Second
	}

	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 2 * time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	if _, err := url.Parse(c.BrokerURL); err != nil {
		return err
	}
	if c.ClientID == "" {
		return errors.New("client id is required")
	}
	if c.BackoffMax < c.BackoffMin {
		return fmt.Errorf("backoff max %s is lower than backoff min %s", c.BackoffMax, c.BackoffMin)
	}
	return nil
}
